package cache

import (
	"image"
	"sync"
)

// Memory is an unbounded Table. Entries live until Delete or Clear.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]image.Image
}

// NewMemory creates an empty unbounded table.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]image.Image)}
}

// Get returns the image stored for url.
func (m *Memory) Get(url string) (image.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.entries[url]
	return img, ok
}

// Put stores img for url.
func (m *Memory) Put(url string, img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[url] = img
}

// Delete removes the entry for url.
func (m *Memory) Delete(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, url)
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear removes all entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]image.Image)
}
