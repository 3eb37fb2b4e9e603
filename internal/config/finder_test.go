package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
}

func TestFindLocalConfig(t *testing.T) {
	t.Run("finds config in the same directory", func(t *testing.T) {
		dir := t.TempDir()
		want := filepath.Join(dir, ".ispcb.yml")
		touch(t, want)

		assert.Equal(t, want, FindLocalConfig(dir))
	})

	t.Run("walks up to a parent directory", func(t *testing.T) {
		root := t.TempDir()
		nested := filepath.Join(root, "src", "kernels")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		want := filepath.Join(root, ".ispcb.json")
		touch(t, want)

		assert.Equal(t, want, FindLocalConfig(nested))
	})

	t.Run("yml wins over json in the same directory", func(t *testing.T) {
		dir := t.TempDir()
		want := filepath.Join(dir, ".ispcb.yml")
		touch(t, want)
		touch(t, filepath.Join(dir, ".ispcb.json"))

		assert.Equal(t, want, FindLocalConfig(dir))
	})

	t.Run("nearest config wins", func(t *testing.T) {
		root := t.TempDir()
		nested := filepath.Join(root, "project")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		touch(t, filepath.Join(root, ".ispcb.yml"))
		want := filepath.Join(nested, ".ispcb.yml")
		touch(t, want)

		assert.Equal(t, want, FindLocalConfig(nested))
	})

	t.Run("returns empty when nothing is found", func(t *testing.T) {
		assert.Empty(t, FindLocalConfig(t.TempDir()))
	})

	t.Run("every supported format is discoverable", func(t *testing.T) {
		for _, ext := range configExtensions {
			dir := t.TempDir()
			want := filepath.Join(dir, localConfigPrefix+ext)
			touch(t, want)

			assert.Equal(t, want, FindLocalConfig(dir), ext)
		}
	})
}
