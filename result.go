package imgcache

import (
	"errors"
	"fmt"
	"image"
)

// Source records where a result came from.
type Source int

const (
	// SourceNone means nothing was read: the loader was closed or the
	// caller stopped waiting.
	SourceNone Source = iota
	// SourceMemory means the memory table already held the URL.
	SourceMemory
	// SourceMirror means the image was decoded from its mirror file.
	SourceMirror
	// SourceNetwork means the URL was downloaded.
	SourceNetwork
)

func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceMemory:
		return "memory"
	case SourceMirror:
		return "mirror"
	case SourceNetwork:
		return "network"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Outcome classifies a result for the display boundary.
type Outcome int

const (
	// OutcomeImage means an image is available.
	OutcomeImage Outcome = iota
	// OutcomeEmpty means the URL produced no bytes, or the memory table
	// holds a previously failed URL.
	OutcomeEmpty
	// OutcomeFailed means the download or decode failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeImage:
		return "image"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the resolution of one URL.
type Result struct {
	URL    string
	Image  image.Image // nil when no image is available
	Source Source

	// Err explains a nil Image from a fresh resolution. It wraps ErrDownload,
	// ErrNoContent or ErrDecode. Memory hits on failed URLs carry no error.
	Err error

	// PersistErr is set when the image could not be written to the mirror.
	// The image is still usable.
	PersistErr error
}

// Outcome classifies the result.
func (r Result) Outcome() Outcome {
	switch {
	case r.Image != nil:
		return OutcomeImage
	case r.Err == nil, errors.Is(r.Err, ErrNoContent):
		return OutcomeEmpty
	default:
		return OutcomeFailed
	}
}

// OK reports whether an image is available.
func (r Result) OK() bool {
	return r.Image != nil
}
