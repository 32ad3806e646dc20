// Package queue provides a bounded FIFO with an atomic flush, used to hand
// audio and coordinator events between pipeline goroutines.
package queue

import (
	"context"
	"sync"
	"time"
)

// Queue is a bounded FIFO of T.
//
// Flush atomically replaces the underlying channel with a fresh one, so a
// producer and a flusher can never race into a partially drained queue.
// Consumers must therefore poll with a timeout (Get re-reads the current
// channel on every call) instead of holding one receive open forever.
type Queue[T any] struct {
	mu   sync.RWMutex
	size int
	ch   chan T
}

// New creates a queue holding up to size items.
func New[T any](size int) *Queue[T] {
	if size < 1 {
		size = 1
	}
	return &Queue[T]{
		size: size,
		ch:   make(chan T, size),
	}
}

// Put appends an item, blocking while the queue is full.
// If the queue is flushed while Put is blocked, the item counts as
// discarded by that flush.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	q.mu.RLock()
	ch := q.ch
	q.mu.RUnlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch <- v:
		return nil
	}
}

// TryPut appends an item without blocking and reports whether it fit.
func (q *Queue[T]) TryPut(v T) bool {
	q.mu.RLock()
	ch := q.ch
	q.mu.RUnlock()

	select {
	case ch <- v:
		return true
	default:
		return false
	}
}

// Get waits up to timeout for the next item. The boolean is false when the
// timeout elapsed with nothing to read; the error is non-nil only when ctx
// ended.
func (q *Queue[T]) Get(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T

	q.mu.RLock()
	ch := q.ch
	q.mu.RUnlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case v := <-ch:
		return v, true, nil
	case <-timer.C:
		return zero, false, nil
	}
}

// Flush discards everything queued and returns how many items were dropped.
// Items a blocked producer was still trying to add land in the discarded
// channel and are dropped with it.
func (q *Queue[T]) Flush() int {
	q.mu.Lock()
	old := q.ch
	q.ch = make(chan T, q.size)
	q.mu.Unlock()

	n := 0
	for {
		select {
		case <-old:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of items currently queued.
func (q *Queue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.ch)
}
