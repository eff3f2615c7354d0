package util

import (
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FlattenPath turns path, relative to root, into a single dotted file name:
// "/media/a/b/c.mp4" under "/media" becomes "a.b.c.mp4". When root is empty
// the directory of path is used.
func FlattenPath(root, path string) string {
	path = filepath.Clean(path)
	if root == "" {
		root = filepath.Dir(path)
	}

	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = strings.TrimPrefix(filepath.ToSlash(path), "/")
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}
