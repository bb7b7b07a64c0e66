package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EnsureDir creates a directory and all necessary parents with default
// permissions if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureDirPrivate is EnsureDir with owner-only permissions, for directories
// holding credentials.
func EnsureDirPrivate(path string) error {
	return os.MkdirAll(path, DirModePrivate)
}

// RemoveAllSafe removes a directory tree, retrying with a permission reset
// when the first attempt fails. Windows frequently reports read-only or
// locked files inside cloned repositories (.git object files in particular).
func RemoveAllSafe(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(path); err == nil {
		return nil
	}

	// Reset permissions bottom-up, then retry.
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort permission reset
		}
		if d.IsDir() {
			_ = os.Chmod(p, DirModeDefault)
		} else {
			_ = os.Chmod(p, FileModeDefault)
		}
		return nil
	})

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// PruneEmptyParents removes empty parent directories of path, walking upward
// until stopRoot (exclusive) or a non-empty directory is reached. Best
// effort: a directory-not-empty error simply stops the walk.
func PruneEmptyParents(path, stopRoot string) {
	parent := filepath.Dir(path)
	stop := filepath.Clean(stopRoot)
	for parent != stop && len(parent) > len(stop) {
		if err := os.Remove(parent); err != nil {
			return
		}
		parent = filepath.Dir(parent)
	}
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
