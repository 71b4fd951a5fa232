package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move the memory store's notion of now.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = func() time.Time { return clock.now }
	return New(store, ttl, nil), clock
}

func TestGetOrComputeReadThrough(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := GetOrCompute(ctx, c, "dashboard:user-1", "dashboard", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	// Second read inside the TTL is served from cache.
	v, err = GetOrCompute(ctx, c, "dashboard:user-1", "dashboard", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestTTLBoundary(t *testing.T) {
	ttl := time.Minute
	c, clock := newTestCache(ttl)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "payload", nil
	}

	_, err := GetOrCompute(ctx, c, "k", "any", compute)
	require.NoError(t, err)

	// Just inside the TTL: hit.
	clock.advance(ttl - time.Millisecond)
	_, err = GetOrCompute(ctx, c, "k", "any", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// Just past the TTL: miss, recompute.
	clock.advance(2 * time.Millisecond)
	_, err = GetOrCompute(ctx, c, "k", "any", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFailedComputeNotCached(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()

	boom := errors.New("db unavailable")
	calls := 0
	failing := func(context.Context) (int, error) {
		calls++
		return 0, boom
	}

	_, err := GetOrCompute(ctx, c, "k", "any", failing)
	assert.ErrorIs(t, err, boom)

	// The failure was not cached: the next call computes again.
	_, err = GetOrCompute(ctx, c, "k", "any", failing)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestInvalidateBySubstring(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()

	seed := func(key string) {
		_, err := GetOrCompute(ctx, c, key, "any", func(context.Context) (string, error) {
			return "v", nil
		})
		require.NoError(t, err)
	}
	seed("dashboard:user-1")
	seed("dashboard:user-2")
	seed("notifications:user-1")

	require.NoError(t, c.Invalidate(ctx, "dashboard"))

	hits := 0
	read := func(key string) {
		_, err := GetOrCompute(ctx, c, key, "any", func(context.Context) (string, error) {
			hits++
			return "v", nil
		})
		require.NoError(t, err)
	}
	read("dashboard:user-1")
	read("dashboard:user-2")
	read("notifications:user-1")

	// The two dashboard keys recomputed; the unrelated key did not.
	assert.Equal(t, 2, hits)
}

func TestInvalidateAll(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}

	_, err := GetOrCompute(ctx, c, "a", "any", compute)
	require.NoError(t, err)
	_, err = GetOrCompute(ctx, c, "b", "any", compute)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, ""))

	_, err = GetOrCompute(ctx, c, "a", "any", compute)
	require.NoError(t, err)
	_, err = GetOrCompute(ctx, c, "b", "any", compute)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestCategoryTTLs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = func() time.Time { return clock.now }
	c := New(store, time.Minute, map[string]time.Duration{"dashboard": time.Hour})

	assert.Equal(t, time.Hour, c.TTL("dashboard"))
	assert.Equal(t, time.Minute, c.TTL("unknown"))
}
