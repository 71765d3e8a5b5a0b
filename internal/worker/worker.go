// Package worker runs the single background goroutine that drains a queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/imgcache/internal/queue"
)

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("worker: stopped")

// State is a point in the worker lifecycle.
type State int

const (
	// StateNew means the loop goroutine has not been started.
	StateNew State = iota
	// StateIdle means the loop is blocked waiting for an entry.
	StateIdle
	// StateDraining means the loop is handling an entry.
	StateDraining
	// StateStopped means the loop has exited and will not restart.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Worker pops entries from a queue one at a time and hands each to a
// handler on a single goroutine. The goroutine starts on the first Submit.
type Worker[T any] struct {
	queue  *queue.Queue[T]
	handle func(context.Context, T)
	parent context.Context
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	outstanding int           // queued plus in-flight entries
	changed     chan struct{} // closed and replaced on every state or count change
	cancel      context.CancelFunc
	group       *errgroup.Group
}

// Option configures a Worker.
type Option[T any] func(*Worker[T])

// WithLogger sets the logger for recovered handler panics and lifecycle events.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(w *Worker[T]) {
		w.logger = logger
	}
}

// WithContext sets the parent context of the loop goroutine.
// Cancelling it stops the worker like Stop does.
func WithContext[T any](ctx context.Context) Option[T] {
	return func(w *Worker[T]) {
		w.parent = ctx
	}
}

// New creates a worker draining q with handle. Nothing runs until Submit.
func New[T any](q *queue.Queue[T], handle func(context.Context, T), opts ...Option[T]) *Worker[T] {
	w := &Worker[T]{
		queue:   q,
		handle:  handle,
		parent:  context.Background(),
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	return w
}

// Submit queues v and starts the loop if it has never run.
func (w *Worker[T]) Submit(v T) error {
	_, err := w.Replace(v, nil)
	return err
}

// Replace removes every queued entry matching match, then queues v, as one
// step. It returns the number of entries removed. A nil match removes
// nothing.
func (w *Worker[T]) Replace(v T, match func(T) bool) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateStopped {
		return 0, ErrStopped
	}
	removed := 0
	if match != nil {
		removed = w.queue.RemoveIf(match)
		w.outstanding -= removed
	}
	w.queue.Push(v)
	w.outstanding++
	if w.state == StateNew {
		w.startLocked()
	}
	w.broadcastLocked()
	return removed, nil
}

// Remove drops every queued entry matching match and returns the count.
// An entry already handed to the handler is not affected.
func (w *Worker[T]) Remove(match func(T) bool) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.queue.RemoveIf(match)
	if n > 0 {
		w.outstanding -= n
		w.broadcastLocked()
	}
	return n
}

// State returns the current lifecycle state.
func (w *Worker[T]) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Outstanding returns the number of queued and in-flight entries.
func (w *Worker[T]) Outstanding() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outstanding
}

// Drain blocks until no entry is queued or in flight, the worker stops,
// or ctx is done.
func (w *Worker[T]) Drain(ctx context.Context) error {
	for {
		w.mu.Lock()
		if w.outstanding == 0 || w.state == StateStopped {
			w.mu.Unlock()
			return nil
		}
		changed := w.changed
		w.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop cancels the loop and waits for it to exit. An entry being handled
// sees its context cancelled. Stop is idempotent; a stopped worker never
// restarts.
func (w *Worker[T]) Stop() error {
	w.mu.Lock()
	prev := w.state
	w.state = StateStopped
	cancel, group := w.cancel, w.group
	w.broadcastLocked()
	w.mu.Unlock()

	if prev == StateNew || prev == StateStopped {
		if group != nil {
			return w.wait(group)
		}
		return nil
	}
	cancel()
	return w.wait(group)
}

func (w *Worker[T]) wait(group *errgroup.Group) error {
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (w *Worker[T]) startLocked() {
	ctx, cancel := context.WithCancel(w.parent)
	group, ctx := errgroup.WithContext(ctx)
	w.cancel = cancel
	w.group = group
	w.state = StateIdle
	group.Go(func() error {
		defer cancel()
		return w.loop(ctx)
	})
	w.logger.Debug("worker started", slog.String("policy", w.queue.Policy().String()))
}

func (w *Worker[T]) loop(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		w.state = StateStopped
		w.broadcastLocked()
		w.mu.Unlock()
		w.logger.Debug("worker stopped")
	}()

	for {
		v, err := w.queue.Pop(ctx)
		if err != nil {
			return err
		}

		if !w.transition(StateDraining) {
			return ctx.Err()
		}
		w.run(ctx, v)

		w.mu.Lock()
		w.outstanding--
		if w.state == StateDraining {
			w.state = StateIdle
		}
		w.broadcastLocked()
		w.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// transition moves a running worker to s. It reports false once Stop has
// been called.
func (w *Worker[T]) transition(s State) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateStopped {
		return false
	}
	w.state = s
	w.broadcastLocked()
	return true
}

func (w *Worker[T]) run(ctx context.Context, v T) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker handler panicked", slog.Any("panic", r))
		}
	}()
	w.handle(ctx, v)
}

func (w *Worker[T]) broadcastLocked() {
	close(w.changed)
	w.changed = make(chan struct{})
}
