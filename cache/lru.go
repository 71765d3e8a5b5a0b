package cache

import (
	"errors"
	"image"

	lru "github.com/hashicorp/golang-lru"
)

// LRU is a Table bounded to a fixed number of entries.
// Adding beyond the bound evicts the least recently used entry.
type LRU struct {
	entries *lru.Cache
}

// NewLRU creates a table holding at most size entries.
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		return nil, errors.New("cache: lru size must be > 0")
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LRU{entries: c}, nil
}

// Get returns the image stored for url and marks it recently used.
func (l *LRU) Get(url string) (image.Image, bool) {
	v, ok := l.entries.Get(url)
	if !ok {
		return nil, false
	}
	// Stored nil images come back as a nil interface.
	img, _ := v.(image.Image)
	return img, true
}

// Put stores img for url, evicting the oldest entry when full.
func (l *LRU) Put(url string, img image.Image) {
	l.entries.Add(url, img)
}

// Delete removes the entry for url.
func (l *LRU) Delete(url string) {
	l.entries.Remove(url)
}

// Len returns the number of entries.
func (l *LRU) Len() int {
	return l.entries.Len()
}

// Clear removes all entries.
func (l *LRU) Clear() {
	l.entries.Purge()
}
