// Package locate resolves previously built libraries for builds that run
// without the compiler installed (prebuilt distribution mode). It searches
// a configured path list for an archive matching the host target triple and
// reports the link directives for it.
package locate

import (
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"

	"github.com/ispc-build/ispcb/internal/errs"
	"github.com/ispc-build/ispcb/internal/utils"
)

// EnvSearchPath is the environment variable holding extra search
// directories, separated by the platform list separator.
const EnvSearchPath = "ISPCB_LIB_PATH"

// Locator searches for a prebuilt library. Search paths are explicit
// configuration so tests can substitute fake paths without touching the
// process environment.
type Locator struct {
	// Lib is the logical library name, without prefix or extension.
	Lib string

	// Paths are the directories searched, in order.
	Paths []string

	// Triple overrides the host target triple when non-empty.
	Triple string
}

// New creates a locator over the default search paths: any explicitly
// passed directories first, then the ISPCB_LIB_PATH entries, then the
// conventional lib/ subdirectory of the working directory.
func New(lib string, paths ...string) *Locator {
	searched := append([]string{}, paths...)

	if extra := env.Str(EnvSearchPath); extra != "" {
		searched = append(searched, filepath.SplitList(extra)...)
	}

	searched = append(searched, "lib")

	return &Locator{Lib: lib, Paths: searched}
}

// Result is a resolved prebuilt library.
type Result struct {
	// Path is the archive on disk.
	Path string

	// LinkDirectives are the flags a host linker needs to link the archive.
	LinkDirectives []string
}

// Resolve searches the path list for the library. There is no fallback: a
// miss is a distinct fatal error so the caller never silently skips the
// link step.
func (l *Locator) Resolve() (*Result, error) {
	triple := l.Triple
	if triple == "" {
		triple = utils.HostTriple()
	}

	libfile := l.Lib + triple
	filename := utils.LibFilename(libfile)

	for _, dir := range l.Paths {
		candidate := filepath.Join(dir, filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				abs = candidate
			}

			return &Result{
				Path:           abs,
				LinkDirectives: []string{"-L" + filepath.Dir(abs), "-l" + libfile},
			}, nil
		}
	}

	return nil, &errs.ArtifactNotFoundError{
		Lib:      l.Lib,
		Filename: filename,
		Searched: l.Paths,
	}
}
