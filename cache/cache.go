// Package cache provides the in-memory table of decoded images keyed by URL.
//
// A table entry holding a nil image records that the URL produced no image.
// Such entries are hits: callers must not fetch the URL again.
//
// [NewMemory] never evicts. [NewLRU] bounds the table to a fixed number of
// entries and evicts the least recently used one.
package cache

import "image"

// Table maps request URLs to decoded images.
//
// Implementations must be safe for concurrent use: the loader reads the
// table from the caller's goroutine and writes it from the fetch worker.
type Table interface {
	// Get returns the image stored for url.
	// ok is true for stored nil images.
	Get(url string) (img image.Image, ok bool)

	// Put stores img for url, replacing any previous entry.
	Put(url string, img image.Image)

	// Delete removes the entry for url. Missing entries are a no-op.
	Delete(url string)

	// Len returns the number of entries.
	Len() int

	// Clear removes all entries.
	Clear()
}
