package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMemoryStore_SingleHolderUnderConcurrency(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var winners atomic.Int32
	var g errgroup.Group
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		token := string(rune('a' + i%26))
		g.Go(func() error {
			<-start
			ok, err := s.TryAcquire(ctx, "lock:m:payment_link:p", token, time.Minute)
			if ok {
				winners.Add(1)
			}
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), winners.Load())
}

func TestMemoryStore_ExpiryAndOwnership(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	s := NewMemoryStoreWithClock(clock)
	ctx := context.Background()

	ok, err := s.TryAcquire(ctx, "k", "t1", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = s.TryAcquire(ctx, "k", "t2", 100*time.Millisecond)
	assert.False(t, ok, "held key must not be acquirable")

	held, _ := s.IsHeld(ctx, "k")
	assert.True(t, held)

	advance(100 * time.Millisecond)

	held, _ = s.IsHeld(ctx, "k")
	assert.False(t, held, "expired key must not count as held")

	ok, _ = s.TryAcquire(ctx, "k", "t2", time.Second)
	assert.True(t, ok, "expired key must be acquirable")

	deleted, _ := s.Release(ctx, "k", "t1")
	assert.False(t, deleted, "stale owner must not release the new holder's lock")

	deleted, _ = s.Release(ctx, "k", "t2")
	assert.True(t, deleted)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().TryAcquire(ctx, "k", "t", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
