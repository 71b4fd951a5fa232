package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a KeyValueStore backed by a shared redis instance, for
// multi-instance deployments where recomputation should be avoided
// across processes. TTLs are enforced natively by redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a redis-backed store. All keys are namespaced
// under prefix to keep cache entries apart from other redis users.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cache:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get implements KeyValueStore.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting cache key %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements KeyValueStore.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("setting cache key %s: %w", key, err)
	}
	return nil
}

// DeleteContaining implements KeyValueStore by scanning the prefixed
// key space.
func (r *RedisStore) DeleteContaining(ctx context.Context, substr string) error {
	pattern := r.prefix + "*" + substr + "*"
	if substr == "" {
		pattern = r.prefix + "*"
	}

	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting cache key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache keys: %w", err)
	}
	return nil
}
