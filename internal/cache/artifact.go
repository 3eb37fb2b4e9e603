package cache

import (
	"os"
	"time"
)

// Artifact is the validation record for one generated object file. An
// object is only reused when it still matches the record; anything written
// by an interrupted build fails verification and is recompiled.
type Artifact struct {
	// Object is the absolute path of the object file.
	Object string `json:"object"`

	// Target is the ISA the object was compiled for ("dispatch" for the
	// multi-target dispatch stub).
	Target string `json:"target"`

	// Hash is the SHA256 of the object contents at recording time.
	Hash string `json:"hash"`

	// ModTime is the object's modification time at recording time.
	ModTime time.Time `json:"mod_time"`

	// RecordedAt is when this record was written.
	RecordedAt time.Time `json:"recorded_at"`
}

// NewArtifact builds a validation record for an object on disk.
func NewArtifact(object, target string) (*Artifact, error) {
	info, err := os.Stat(object)
	if err != nil {
		return nil, err
	}

	hash, err := HashFile(object)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Object:     object,
		Target:     target,
		Hash:       hash,
		ModTime:    info.ModTime(),
		RecordedAt: time.Now(),
	}, nil
}

// Verify reports whether the object on disk still matches the record. The
// cheap mtime check runs first; the hash is only computed on an mtime
// mismatch, which catches tools that restore timestamps.
func (a *Artifact) Verify() bool {
	info, err := os.Stat(a.Object)
	if err != nil {
		return false
	}

	if info.ModTime().Equal(a.ModTime) {
		return true
	}

	hash, err := HashFile(a.Object)
	if err != nil {
		return false
	}

	return hash == a.Hash
}
