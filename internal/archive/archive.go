// Package archive combines per-ISA object files into a single static
// library the host linker understands, using ar on Unix-like systems and
// lib.exe on Windows.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ispc-build/ispcb/internal/errs"
	"github.com/ispc-build/ispcb/internal/utils"
)

// Commander is the minimal process interface, injectable for testing.
type Commander interface {
	Run() error
}

// Archiver creates static libraries from object files.
type Archiver struct {
	goos        string
	execCommand func(name string, args ...string) Commander
}

// New creates an archiver for the host platform.
func New() *Archiver {
	return &Archiver{
		goos: runtime.GOOS,
		execCommand: func(name string, args ...string) Commander {
			return exec.Command(name, args...)
		},
	}
}

// Create archives objects into a library named libfile (no prefix or
// extension) inside dir, and returns the full path of the archive. Objects
// must be passed in deterministic order; they are archived exactly as given
// so identical inputs reproduce the archive byte for byte.
func (a *Archiver) Create(dir, libfile string, objects []string) (string, error) {
	if len(objects) == 0 {
		return "", &errs.LinkError{Lib: libfile, Reason: "no objects to archive"}
	}

	// A missing object means a compile was skipped or an artifact was
	// removed externally. Producing a partial archive would hide that, so
	// the link fails instead.
	for _, obj := range objects {
		if _, err := os.Stat(obj); err != nil {
			return "", &errs.LinkError{Lib: libfile, Reason: fmt.Sprintf("object %s missing", obj)}
		}
	}

	out := filepath.Join(dir, utils.LibFilename(libfile))

	// ar only appends members, so a leftover archive from a previous build
	// with a different object set must not survive.
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return "", &errs.LinkError{Lib: libfile, Reason: err.Error()}
	}

	var tool string
	var args []string
	if a.goos == "windows" {
		tool = "lib.exe"
		args = append(args, "/OUT:"+out)
		args = append(args, objects...)
	} else {
		tool = "ar"
		// D puts ar in deterministic mode: zeroed uids and timestamps, so
		// the archive bytes depend only on the object contents and order.
		args = append(args, "crsD", out)
		args = append(args, objects...)
	}

	var stderr bytes.Buffer
	c := a.execCommand(tool, args...)
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Stderr = &stderr
	}

	if err := c.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", &errs.ToolNotFoundError{Tool: tool}
		}

		reason := err.Error()
		if s := stderr.String(); s != "" {
			reason = s
		}

		return "", &errs.LinkError{Lib: libfile, Reason: reason}
	}

	return out, nil
}
