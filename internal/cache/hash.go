package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// HashFile returns the SHA256 of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashArgs fingerprints a compiler command line. The args are hashed in
// order, so the caller must construct them deterministically.
func HashArgs(args []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(args, "\x00")))

	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes returns the SHA256 of a byte slice.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)

	return hex.EncodeToString(h[:])
}
