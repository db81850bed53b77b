// Package signal provides a bounded in-memory queue used to deliver ordered
// completion and journal events between the engine's goroutines.
package signal

import "context"

// Queue is a FIFO delivery channel for values of type T. Publish and Consume
// honour context cancellation; delivery order matches publish order.
type Queue[T any] struct {
	ch chan T
}

// NewQueue creates a queue with the given buffer capacity.
func NewQueue[T any](buffer int) *Queue[T] {
	if buffer <= 0 {
		buffer = 1
	}
	return &Queue[T]{ch: make(chan T, buffer)}
}

// Publish appends a value to the queue, blocking while the buffer is full.
func (q *Queue[T]) Publish(ctx context.Context, value T) error {
	select {
	case q.ch <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish appends a value when buffer space is immediately available.
// It reports whether the value was accepted.
func (q *Queue[T]) TryPublish(value T) bool {
	select {
	case q.ch <- value:
		return true
	default:
		return false
	}
}

// Consume removes and returns the oldest value, blocking until one arrives.
func (q *Queue[T]) Consume(ctx context.Context) (T, error) {
	var zero T
	select {
	case value := <-q.ch:
		return value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryConsume removes the oldest value when one is immediately available.
func (q *Queue[T]) TryConsume() (T, bool) {
	var zero T
	select {
	case value := <-q.ch:
		return value, true
	default:
		return zero, false
	}
}

// Drain removes and returns every value currently buffered.
func (q *Queue[T]) Drain() []T {
	var out []T
	for {
		value, ok := q.TryConsume()
		if !ok {
			return out
		}
		out = append(out, value)
	}
}

// Size returns the number of buffered values.
func (q *Queue[T]) Size() int { return len(q.ch) }
