// Package disk provides the on-disk mirror of fetched images.
//
// Each URL maps to one file named by the SHA-256 digest of the URL, with no
// extension. Files hold PNG-encoded images and are written atomically.
package disk

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	digest "github.com/opencontainers/go-digest"

	"github.com/meigma/imgcache/internal/codec"
)

const (
	defaultShardPrefixLen = 0
	defaultDirPerm        = 0o700
	tempPattern           = "mirror-*"
)

// ErrPersist is returned when an image cannot be written to the mirror.
var ErrPersist = errors.New("disk: persist failed")

// Mirror stores decoded images as PNG files under a single directory.
// The mirror is safe for concurrent use.
type Mirror struct {
	dir            string               // root directory for mirror files
	shardPrefixLen int                  // number of hex chars for subdirectory sharding
	dirPerm        os.FileMode          // permissions for created directories
	maxBytes       int64                // maximum mirror size (0 = unlimited)
	compression    png.CompressionLevel // PNG compression for written files
	bytes          atomic.Int64         // current total size of mirror files
	pruneMu        sync.Mutex           // serializes prune operations
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 for a flat directory. Defaults to 0.
func WithShardPrefixLen(n int) Option {
	return func(m *Mirror) {
		m.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for mirror directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(m *Mirror) {
		m.dirPerm = mode
	}
}

// WithMaxBytes bounds the mirror size in bytes. Oldest files are pruned to
// make room for new ones. Values < 0 are invalid. Use 0 to disable the limit.
func WithMaxBytes(n int64) Option {
	return func(m *Mirror) {
		m.maxBytes = n
	}
}

// WithCompression sets the PNG compression level for written files.
func WithCompression(level png.CompressionLevel) Option {
	return func(m *Mirror) {
		m.compression = level
	}
}

// New creates a mirror rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Mirror, error) {
	if dir == "" {
		return nil, errors.New("mirror dir is empty")
	}
	m := &Mirror{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
		compression:    png.DefaultCompression,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if m.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}
	if err := os.MkdirAll(dir, m.dirPerm); err != nil {
		return nil, err
	}
	_, size, err := scan(dir)
	if err != nil {
		return nil, err
	}
	m.bytes.Store(size)
	return m, nil
}

// Dir returns the mirror root directory.
func (m *Mirror) Dir() string {
	return m.dir
}

// Name returns the mirror file name for url: the hex SHA-256 of the URL.
func Name(url string) string {
	return digest.FromString(url).Encoded()
}

// Path returns the mirror file path for url.
func (m *Mirror) Path(url string) string {
	name := Name(url)
	if m.shardPrefixLen <= 0 {
		return filepath.Join(m.dir, name)
	}
	prefixLen := min(m.shardPrefixLen, len(name))
	return filepath.Join(m.dir, name[:prefixLen], name)
}

// Contains reports whether a mirror file exists for url.
func (m *Mirror) Contains(url string) bool {
	_, err := os.Stat(m.Path(url))
	return err == nil
}

// Get decodes the mirror file for url.
// Returns nil, false if the file is missing. A file that no longer
// decodes is removed and reported as missing.
func (m *Mirror) Get(url string) (image.Image, bool) {
	path := m.Path(url)
	f, err := os.Open(path) //nolint:gosec // path is derived from a digest, not user input
	if err != nil {
		return nil, false
	}
	img, _, err := codec.Decode(f)
	f.Close()
	if err != nil {
		_ = m.Delete(url)
		return nil, false
	}
	return img, true
}

// Put encodes img as PNG and stores it for url, replacing any existing file.
// Errors wrap ErrPersist.
func (m *Mirror) Put(url string, img image.Image) error {
	if err := m.put(url, img); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (m *Mirror) put(url string, img image.Image) error {
	path := m.Path(url)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, m.dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := codec.EncodePNG(tmp, img, m.compression); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	written := info.Size()

	var replaced int64
	if prev, statErr := os.Stat(path); statErr == nil {
		replaced = prev.Size()
	}

	if ok, err := m.ensureCapacity(written - replaced); err != nil {
		_ = os.Remove(tmpPath)
		return err
	} else if !ok {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("image of %d bytes exceeds mirror limit of %d bytes", written, m.maxBytes)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	m.bytes.Add(written - replaced)
	return nil
}

// Delete removes the mirror file for url. Missing files are a no-op.
func (m *Mirror) Delete(url string) error {
	path := m.Path(url)
	info, statErr := os.Stat(path)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return nil
		}
		return statErr
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	m.bytes.Add(-info.Size())
	return nil
}

// Clear removes every mirror file and returns the number of bytes freed.
func (m *Mirror) Clear() (int64, error) {
	return m.Prune(0)
}

// MaxBytes returns the configured size limit (0 = unlimited).
func (m *Mirror) MaxBytes() int64 {
	return m.maxBytes
}

// SizeBytes returns the current mirror size in bytes.
func (m *Mirror) SizeBytes() int64 {
	return m.bytes.Load()
}

// Prune removes the oldest mirror files until the mirror is at or below
// targetBytes. Returns the number of bytes freed. Files in the directory
// that are not named by a URL digest are never removed.
func (m *Mirror) Prune(targetBytes int64) (int64, error) {
	m.pruneMu.Lock()
	defer m.pruneMu.Unlock()

	entries, total, err := scan(m.dir)
	if err != nil {
		return 0, err
	}
	freed, left, err := evict(entries, total, max(targetBytes, 0))
	m.bytes.Store(left)
	return freed, err
}

func (m *Mirror) ensureCapacity(need int64) (bool, error) {
	if m.maxBytes <= 0 || need <= 0 {
		return true, nil
	}
	if need > m.maxBytes {
		return false, nil
	}
	if m.SizeBytes()+need <= m.maxBytes {
		return true, nil
	}
	if _, err := m.Prune(m.maxBytes - need); err != nil {
		return false, err
	}
	return m.SizeBytes()+need <= m.maxBytes, nil
}
