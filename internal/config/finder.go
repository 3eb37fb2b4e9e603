package config

import (
	"os"
	"path/filepath"
)

// localConfigPrefix is the basename prefix of per-project config files,
// completed by one of configExtensions.
const localConfigPrefix = ".ispcb."

// FindLocalConfig walks from dir toward the filesystem root and returns the
// first per-project config file it finds, or "" when there is none. The
// nearest directory wins, and within a directory the configExtensions order
// decides.
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range configExtensions {
			path := filepath.Join(dir, localConfigPrefix+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}
