package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowBudget(t *testing.T) {
	l := NewSlidingWindow(5, time.Hour)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		res, err := l.TryConsume(ctx, "user-1", start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 4-i, res.Remaining)
	}

	// Sixth call inside the window is denied without mutating the bucket.
	denied, err := l.TryConsume(ctx, "user-1", start.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, start.Add(time.Hour), denied.ResetAt)

	// Still denied just before the oldest action expires.
	denied, err = l.TryConsume(ctx, "user-1", start.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, denied.Allowed)

	// Allowed again strictly after resetAt.
	allowed, err := l.TryConsume(ctx, "user-1", start.Add(time.Hour+time.Second))
	require.NoError(t, err)
	assert.True(t, allowed.Allowed)
}

func TestEmptyKeyFailsClosed(t *testing.T) {
	l := NewSlidingWindow(5, time.Hour)
	now := time.Now()

	res, err := l.TryConsume(context.Background(), "", now)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewSlidingWindow(1, time.Hour)
	ctx := context.Background()
	now := time.Now()

	first, err := l.TryConsume(ctx, "user-1", now)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	blocked, err := l.TryConsume(ctx, "user-1", now)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := l.TryConsume(ctx, "user-2", now)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestDenialDoesNotExtendWindow(t *testing.T) {
	l := NewSlidingWindow(1, time.Hour)
	ctx := context.Background()
	start := time.Now()

	_, err := l.TryConsume(ctx, "user-1", start)
	require.NoError(t, err)

	// Repeated denials must not push resetAt forward.
	for i := 1; i <= 3; i++ {
		res, err := l.TryConsume(ctx, "user-1", start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, start.Add(time.Hour), res.ResetAt)
	}
}

func TestConcurrentConsume(t *testing.T) {
	l := NewSlidingWindow(5, time.Hour)
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.TryConsume(context.Background(), "user-1", now)
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, allowed)
}

func TestEvict(t *testing.T) {
	l := NewSlidingWindow(5, time.Hour)
	ctx := context.Background()
	start := time.Now()

	_, err := l.TryConsume(ctx, "user-1", start)
	require.NoError(t, err)
	_, err = l.TryConsume(ctx, "user-2", start.Add(2*time.Hour))
	require.NoError(t, err)

	l.Evict(start.Add(3*time.Hour), 90*time.Minute)

	l.mu.RLock()
	_, hasStale := l.buckets["user-1"]
	_, hasFresh := l.buckets["user-2"]
	l.mu.RUnlock()

	assert.False(t, hasStale)
	assert.True(t, hasFresh)
}
