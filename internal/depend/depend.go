// Package depend implements the incremental-build decision for each source
// file. After a successful compile a Record is written next to the generated
// objects, listing every file the compiler reported as an input. On later
// builds the record is compared against the filesystem to decide whether the
// cached objects can be reused.
package depend

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Record is the persisted dependency state for one source file.
type Record struct {
	// Source is the absolute path of the compiled source file.
	Source string `json:"source"`

	// Deps are the files the compiler reported as transitively included,
	// from its dependency-emission output.
	Deps []string `json:"deps"`

	// Objects are the object files this compile produced. All of them must
	// still exist for the record to be trusted.
	Objects []string `json:"objects"`

	// ArgsHash fingerprints the compiler command line. A flag change
	// invalidates cached objects even when no source changed.
	ArgsHash string `json:"args_hash"`

	// BuiltAt is when the compile that produced this record finished.
	BuiltAt time.Time `json:"built_at"`
}

// RecordPath returns the side-file path for a source file's record, next to
// its objects in the build directory.
func RecordPath(buildDir, stem string) string {
	return filepath.Join(buildDir, stem+"_ispc.d.json")
}

// Load reads a record from path. A missing file is a cache miss, not an
// error: it returns (nil, nil).
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read dependency record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt record (e.g. from an interrupted build) is treated as
		// absent so the unit recompiles.
		return nil, nil
	}

	return &rec, nil
}

// Write persists the record.
func (r *Record) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dependency record: %w", err)
	}

	return nil
}

// Fresh reports whether the record can be trusted for the given command-line
// hash. When it cannot, the returned reason says why the unit is stale.
func (r *Record) Fresh(argsHash string) (bool, string) {
	if r == nil {
		return false, "no dependency record"
	}

	if r.ArgsHash != argsHash {
		return false, "compiler flags changed"
	}

	info, err := os.Stat(r.Source)
	if err != nil {
		return false, fmt.Sprintf("source %s missing", r.Source)
	}

	if info.ModTime().After(r.BuiltAt) {
		return false, fmt.Sprintf("source %s modified", r.Source)
	}

	for _, dep := range r.Deps {
		di, err := os.Stat(dep)
		if err != nil {
			return false, fmt.Sprintf("dependency %s missing", dep)
		}

		if di.ModTime().After(r.BuiltAt) {
			return false, fmt.Sprintf("dependency %s modified", dep)
		}
	}

	for _, obj := range r.Objects {
		if _, err := os.Stat(obj); err != nil {
			return false, fmt.Sprintf("object %s missing", obj)
		}
	}

	return true, ""
}

// ParseDepFile reads the compiler's dependency-emission output: one included
// file path per line. The source file itself may or may not be listed
// depending on compiler version, so it is filtered out here.
func ParseDepFile(path, source string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dependency file: %w", err)
	}
	defer f.Close()

	var deps []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == source {
			continue
		}

		deps = append(deps, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dependency file: %w", err)
	}

	return deps, nil
}
