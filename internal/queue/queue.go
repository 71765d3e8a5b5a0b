// Package queue provides the pending request queue drained by the fetch worker.
package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Policy selects which queued entry Pop returns next.
type Policy int

const (
	// LIFO pops the most recently pushed entry first. Older entries may
	// starve while new ones keep arriving.
	LIFO Policy = iota

	// FIFO pops the oldest entry first.
	FIFO
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case LIFO:
		return "lifo"
	case FIFO:
		return "fifo"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration string into a Policy.
// An empty string selects LIFO.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lifo":
		return LIFO, nil
	case "fifo":
		return FIFO, nil
	default:
		return LIFO, fmt.Errorf("queue: unknown policy %q", s)
	}
}

// Queue is an ordered collection of pending entries guarded by one mutex.
// A single consumer blocks in Pop until a producer pushes.
// The queue is safe for concurrent use.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	policy Policy
	notify chan struct{} // buffered(1); signalled on every push
}

// New creates an empty queue using policy.
func New[T any](policy Policy) *Queue[T] {
	return &Queue[T]{
		policy: policy,
		notify: make(chan struct{}, 1),
	}
}

// Policy returns the pop policy of the queue.
func (q *Queue[T]) Policy() Policy {
	return q.policy
}

// Push appends v and wakes a waiting consumer.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the next entry without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop removes and returns the next entry, blocking while the queue is empty.
// It returns ctx.Err() if ctx is done before an entry becomes available.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok := q.TryPop(); ok {
			return v, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// RemoveIf removes every queued entry for which match returns true and
// reports how many were removed. Relative order of the rest is kept.
func (q *Queue[T]) RemoveIf(match func(T) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, v := range q.items {
		if match(v) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	var zero T
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = zero
	}
	q.items = kept
	return removed
}

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	n := len(q.items)
	if n == 0 {
		return zero, false
	}

	var v T
	switch q.policy {
	case FIFO:
		v = q.items[0]
		q.items[0] = zero
		q.items = q.items[1:]
	default:
		v = q.items[n-1]
		q.items[n-1] = zero
		q.items = q.items[:n-1]
	}
	return v, true
}
