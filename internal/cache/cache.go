// Package cache persists build metadata between invocations: the content
// hash of each library's exported header (so binding generation is skipped
// when the header did not change) and a validation record per generated
// object (so externally modified or truncated objects are never reused).
//
// Metadata lives in a BoltDB file inside the build directory; the artifacts
// themselves stay where the compiler wrote them.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// DefaultCacheDir is the cache directory name inside the build dir.
	DefaultCacheDir = ".ispcb-cache"

	headerBucket   = "headers"
	artifactBucket = "artifacts"
)

// Cache manages build metadata using BoltDB.
type Cache struct {
	db   *bbolt.DB
	root string
}

// New opens (or creates) the cache under cacheDir.
func New(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "cache.db")
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{headerBucket, artifactBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache buckets: %w", err)
	}

	return &Cache{db: db, root: cacheDir}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Binding is the recorded binding-generation state for one library: the
// content hash of its exported header and the warnings the generation
// reported. Warnings are kept so a build that skips regeneration on a hash
// match still surfaces them.
type Binding struct {
	Hash     string   `json:"hash"`
	Warnings []string `json:"warnings,omitempty"`
}

// Binding returns the recorded binding state for lib, or nil when none was
// recorded.
func (c *Cache) Binding(lib string) (*Binding, error) {
	var b *Binding
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(headerBucket)).Get([]byte(lib))
		if data == nil {
			return nil
		}

		var rec Binding
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil // corrupt entry, treat as miss
		}

		b = &rec

		return nil
	})

	return b, err
}

// PutBinding records the binding state for lib.
func (c *Cache) PutBinding(lib string, b *Binding) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}

		return tx.Bucket([]byte(headerBucket)).Put([]byte(lib), data)
	})
}

// Artifact retrieves the validation record for an object path. Returns nil
// on a cache miss.
func (c *Cache) Artifact(object string) (*Artifact, error) {
	var art *Artifact
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(artifactBucket)).Get([]byte(object))
		if data == nil {
			return nil
		}

		var a Artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return nil // corrupt entry, treat as miss
		}

		art = &a

		return nil
	})

	return art, err
}

// PutArtifact stores the validation record for an object.
func (c *Cache) PutArtifact(a *Artifact) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}

		return tx.Bucket([]byte(artifactBucket)).Put([]byte(a.Object), data)
	})
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{headerBucket, artifactBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}

			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
}

// Stats returns the number of artifact records and the database file size.
func (c *Cache) Stats() (int, int64, error) {
	var count int
	err := c.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(artifactBucket)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	var size int64
	if info, err := os.Stat(filepath.Join(c.root, "cache.db")); err == nil {
		size = info.Size()
	}

	return count, size, nil
}
