package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	digest "github.com/opencontainers/go-digest"
)

// entry is one committed mirror file.
type entry struct {
	path    string
	size    int64
	modTime time.Time
}

// isMirrorName reports whether name is a URL digest written by Put.
// Temp files and anything else sharing the directory do not match.
func isMirrorName(name string) bool {
	return digest.NewDigestFromEncoded(digest.SHA256, name).Validate() == nil
}

// scan lists the mirror files under root, oldest first, and their total size.
func scan(root string) ([]entry, int64, error) {
	var (
		entries []entry
		total   int64
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !isMirrorName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil // deleted since the directory was read
		}
		if err != nil {
			return err
		}
		entries = append(entries, entry{path: path, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})
	return entries, total, nil
}

// evict removes entries in order until total is at most limit.
// It returns the bytes freed and the bytes left.
func evict(entries []entry, total, limit int64) (freed, left int64, err error) {
	left = total
	for _, e := range entries {
		if left <= limit {
			break
		}
		if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return freed, left, err
		}
		left -= e.size
		freed += e.size
	}
	return freed, left, nil
}
