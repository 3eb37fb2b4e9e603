package utils

import (
	"fmt"
	"runtime"
	"strings"
)

// HostTriple returns the target-triple suffix appended to library filenames,
// following the naming convention used when libraries are built and
// distributed prebuilt. The triple keys the archive to the platform it was
// compiled for so a locator never links a mismatched binary.
func HostTriple() string {
	return Triple(runtime.GOOS, runtime.GOARCH)
}

// Triple maps a GOOS/GOARCH pair to the conventional target triple.
func Triple(goos, goarch string) string {
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "386":
		arch = "i686"
	case "arm64":
		arch = "aarch64"
	}

	switch goos {
	case "linux":
		return fmt.Sprintf("%s-unknown-linux-gnu", arch)
	case "darwin":
		return fmt.Sprintf("%s-apple-darwin", arch)
	case "windows":
		return fmt.Sprintf("%s-pc-windows-msvc", arch)
	default:
		return fmt.Sprintf("%s-unknown-%s", arch, goos)
	}
}

// LibFilename returns the platform filename for a static library whose
// logical name (without prefix or extension) is libfile.
func LibFilename(libfile string) string {
	return libFilenameFor(libfile, runtime.GOOS)
}

func libFilenameFor(libfile, goos string) string {
	if goos == "windows" || strings.Contains(libfile, "windows") {
		return libfile + ".lib"
	}

	return "lib" + libfile + ".a"
}
