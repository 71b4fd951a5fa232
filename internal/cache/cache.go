// Package cache provides short-TTL read-through memoization for
// expensive aggregate reads. Entries live behind a KeyValueStore so the
// backing can be process-local memory or a shared redis instance; the
// cache itself never assumes which.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// KeyValueStore is the storage backing for cache entries. Values are
// opaque bytes; TTL enforcement belongs to the implementation.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeleteContaining removes every entry whose key contains substr.
	// An empty substr clears the whole store.
	DeleteContaining(ctx context.Context, substr string) error
}

// Cache is a read-through cache with per-category TTLs. Inject it as a
// dependency rather than sharing a package-level instance, so tests and
// independent subsystems get their own.
type Cache struct {
	kv           KeyValueStore
	defaultTTL   time.Duration
	categoryTTLs map[string]time.Duration
}

// New creates a Cache over the given backing. categoryTTLs may be nil;
// unknown categories fall back to defaultTTL.
func New(kv KeyValueStore, defaultTTL time.Duration, categoryTTLs map[string]time.Duration) *Cache {
	return &Cache{
		kv:           kv,
		defaultTTL:   defaultTTL,
		categoryTTLs: categoryTTLs,
	}
}

// TTL returns the time-to-live for a category.
func (c *Cache) TTL(category string) time.Duration {
	if ttl, ok := c.categoryTTLs[category]; ok {
		return ttl
	}
	return c.defaultTTL
}

// Invalidate removes entries whose key contains substr; with an empty
// substr it clears everything.
func (c *Cache) Invalidate(ctx context.Context, substr string) error {
	return c.kv.DeleteContaining(ctx, substr)
}

// GetOrCompute returns the cached value for key if it is still fresh;
// otherwise it runs compute, stores the result under the category's
// TTL, and returns it. A failed compute is returned as-is and never
// cached.
func GetOrCompute[T any](ctx context.Context, c *Cache, key, category string, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("reading cache key %s: %w", key, err)
	}
	if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Undecodable payload: fall through and recompute.
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("encoding cache key %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, key, encoded, c.TTL(category)); err != nil {
		return zero, fmt.Errorf("writing cache key %s: %w", key, err)
	}

	return value, nil
}
