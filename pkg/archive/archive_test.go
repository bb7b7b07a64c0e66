package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestExtractAll(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "release.zip")
	writeZip(t, archivePath, map[string]string{
		"addon/addon.lua":      "-- entry\n",
		"addon/libs/util.lua":  "-- lib\n",
		"docs/addon/notes.txt": "notes\n",
	})

	destDir := filepath.Join(tempDir, "out")
	m := NewManager()
	require.NoError(t, m.ExtractAll(context.Background(), archivePath, destDir))

	data, err := os.ReadFile(filepath.Join(destDir, "addon", "addon.lua"))
	require.NoError(t, err)
	assert.Equal(t, "-- entry\n", string(data))
	assert.FileExists(t, filepath.Join(destDir, "addon", "libs", "util.lua"))
	assert.FileExists(t, filepath.Join(destDir, "docs", "addon", "notes.txt"))
}

func TestExtractAllMissingArchive(t *testing.T) {
	m := NewManager()
	err := m.ExtractAll(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	assert.Error(t, err)
}

func TestExtractAllNotAnArchive(t *testing.T) {
	tempDir := t.TempDir()
	bogus := filepath.Join(tempDir, "bogus.zip")
	require.NoError(t, os.WriteFile(bogus, []byte("not a zip"), 0o644))

	m := NewManager()
	err := m.ExtractAll(context.Background(), bogus, filepath.Join(tempDir, "out"))
	assert.Error(t, err)
}
