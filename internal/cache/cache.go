// Package cache stores per-video records as flat files under one directory.
//
// A video's key is its path relative to the scan root with separators
// replaced by dots, so every record for a video lives side by side:
//
//	<dir>/<key>.meta          metadata and status
//	<dir>/<key>.data          raw features and detector results
//	<dir>/<key>.summary.json  portable summary
//
// Writes replace the whole record through a temp file and rename. Concurrent
// writers from different processes are not coordinated; the last one wins.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kikiluvv/shotscan/pkg/util"
)

const (
	MetaSuffix    = ".meta"
	DataSuffix    = ".data"
	SummarySuffix = ".summary.json"
)

var ErrReadOnly = errors.New("cache: read-only")

// Store reads and writes records under Dir.
type Store struct {
	Dir      string
	Root     string // scan root used to derive keys; empty means the video's own directory
	ReadOnly bool
}

func New(dir, root string, readOnly bool) Store {
	s := Store{
		Dir:      filepath.Clean(strings.TrimSpace(dir)),
		ReadOnly: readOnly,
	}
	if root = strings.TrimSpace(root); root != "" {
		s.Root = filepath.Clean(root)
	}
	return s
}

// Key derives the record key for a video path.
func (s Store) Key(videoPath string) (string, error) {
	if strings.TrimSpace(videoPath) == "" {
		return "", fmt.Errorf("cache: video path is empty")
	}
	key := util.FlattenPath(s.Root, videoPath)
	if key == "" || key == "." {
		return "", fmt.Errorf("cache: cannot derive key for %q under root %q", videoPath, s.Root)
	}
	return key, nil
}

// Path returns the absolute record path for key and suffix.
func (s Store) Path(key, suffix string) string {
	return filepath.Join(s.Dir, key+suffix)
}

// Read returns the record contents. A missing record is (nil, false, nil).
func (s Store) Read(key, suffix string) ([]byte, bool, error) {
	b, err := os.ReadFile(s.Path(key, suffix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Exists reports whether the record is present.
func (s Store) Exists(key, suffix string) bool {
	return util.FileExists(s.Path(key, suffix))
}

// Write replaces the record with data.
func (s Store) Write(key, suffix string, data []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	return writeFileAtomic(s.Dir, key+suffix, data)
}

// Remove deletes the given records of key; missing records are ignored.
func (s Store) Remove(key string, suffixes ...string) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if len(suffixes) == 0 {
		suffixes = []string{MetaSuffix, DataSuffix, SummarySuffix}
	}
	for _, suffix := range suffixes {
		if err := util.RemoveIfExists(s.Path(key, suffix)); err != nil {
			return fmt.Errorf("cache: remove %s%s: %w", key, suffix, err)
		}
	}
	return nil
}

func writeFileAtomic(dir, name string, data []byte) error {
	if err := util.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}
