package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is a Limiter backed by a redis sorted set per key, for
// deployments where the budget must hold across process instances.
// Member scores are action timestamps in nanoseconds.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a shared sliding-window limiter.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// TryConsume implements Limiter.
func (r *RedisLimiter) TryConsume(ctx context.Context, key string, now time.Time) (Result, error) {
	if key == "" {
		return Result{Allowed: false, Remaining: 0, ResetAt: now}, nil
	}

	zkey := "ratelimit:" + key
	cutoff := now.Add(-r.window).UnixNano()

	if err := r.client.ZRemRangeByScore(ctx, zkey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return Result{}, fmt.Errorf("pruning rate-limit window %s: %w", key, err)
	}

	count, err := r.client.ZCard(ctx, zkey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("counting rate-limit window %s: %w", key, err)
	}

	if int(count) >= r.limit {
		resetAt, err := r.oldestPlusWindow(ctx, zkey, now)
		if err != nil {
			return Result{}, err
		}
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := r.client.ZAdd(ctx, zkey, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	}).Err(); err != nil {
		return Result{}, fmt.Errorf("recording rate-limit action %s: %w", key, err)
	}

	// Let idle windows expire on their own.
	r.client.Expire(ctx, zkey, r.window)

	resetAt, err := r.oldestPlusWindow(ctx, zkey, now)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:   true,
		Remaining: r.limit - int(count) - 1,
		ResetAt:   resetAt,
	}, nil
}

// oldestPlusWindow reads the oldest retained action and projects when
// the window frees up.
func (r *RedisLimiter) oldestPlusWindow(ctx context.Context, zkey string, now time.Time) (time.Time, error) {
	oldest, err := r.client.ZRangeWithScores(ctx, zkey, 0, 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading rate-limit window %s: %w", zkey, err)
	}
	if len(oldest) == 0 {
		return now.Add(r.window), nil
	}
	return time.Unix(0, int64(oldest[0].Score)).Add(r.window), nil
}
