package display

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopClosed is returned by Loop.Run after Close.
var ErrLoopClosed = errors.New("display: loop closed")

// Poster schedules fn on the goroutine that owns the display targets.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to a Poster.
type PosterFunc func(fn func())

// Post calls f(fn).
func (f PosterFunc) Post(fn func()) { f(fn) }

// Immediate runs posted functions inline on the caller's goroutine.
type Immediate struct{}

// Post runs fn before returning.
func (Immediate) Post(fn func()) { fn() }

// Loop confines posted functions to the goroutine that calls Run.
// It plays the part of a UI thread for callers without one.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoop creates a loop that buffers up to buffer posted functions
// before Post blocks.
func NewLoop(buffer int) *Loop {
	if buffer < 0 {
		buffer = 0
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post queues fn for Run. Functions posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Run executes posted functions in order until ctx is done or Close is
// called. Functions already queued when Close is called are run first.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			for {
				select {
				case fn := <-l.tasks:
					fn()
				default:
					return ErrLoopClosed
				}
			}
		}
	}
}

// Close stops Run after it has run the functions already queued.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}
