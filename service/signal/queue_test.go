package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueOrdering(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[int](8)
	for i := 0; i < 5; i++ {
		assert.NoError(t, queue.Publish(ctx, i))
	}
	assert.Equal(t, 5, queue.Size())
	for i := 0; i < 5; i++ {
		value, err := queue.Consume(ctx)
		assert.NoError(t, err)
		assert.Equal(t, i, value)
	}
	_, ok := queue.TryConsume()
	assert.False(t, ok)
}

func TestQueueDrain(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue[string](4)
	assert.NoError(t, queue.Publish(ctx, "a"))
	assert.NoError(t, queue.Publish(ctx, "b"))
	assert.Equal(t, []string{"a", "b"}, queue.Drain())
	assert.Empty(t, queue.Drain())
}

func TestQueueContextCancellation(t *testing.T) {
	queue := NewQueue[int](1)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := queue.Consume(cancelled)
	assert.Error(t, err)

	// Publish into a full buffer must respect the deadline.
	ctx, cancelTimeout := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelTimeout()
	assert.NoError(t, queue.Publish(context.Background(), 1))
	assert.Error(t, queue.Publish(ctx, 2))
}
