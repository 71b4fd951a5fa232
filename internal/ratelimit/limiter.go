// Package ratelimit bounds how often a user may trigger costly external
// actions, using a sliding window over the trailing interval ending at
// "now". The in-memory limiter is process-local; the redis-backed
// limiter shares one window across instances.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is a momentary snapshot of a user's budget.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Limiter guards a per-key action budget.
type Limiter interface {
	// TryConsume records one action for key at instant now if the
	// budget allows it. A missing key is denied outright: the caller
	// cannot attribute cost, so the limiter fails closed.
	TryConsume(ctx context.Context, key string, now time.Time) (Result, error)
}

// bucket holds the action timestamps for one key. Each bucket has its
// own lock so unrelated keys never contend.
type bucket struct {
	mu     sync.Mutex
	stamps []time.Time
}

// SlidingWindow is an in-process Limiter.
type SlidingWindow struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
}

// NewSlidingWindow creates a limiter allowing limit actions per key
// within each trailing window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
	}
}

// TryConsume implements Limiter.
func (s *SlidingWindow) TryConsume(_ context.Context, key string, now time.Time) (Result, error) {
	if key == "" {
		return Result{Allowed: false, Remaining: 0, ResetAt: now}, nil
	}

	b := s.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stamps = prune(b.stamps, now.Add(-s.window))

	if len(b.stamps) >= s.limit {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   b.stamps[0].Add(s.window),
		}, nil
	}

	b.stamps = append(b.stamps, now)
	return Result{
		Allowed:   true,
		Remaining: s.limit - len(b.stamps),
		ResetAt:   b.stamps[0].Add(s.window),
	}, nil
}

// Evict removes buckets whose newest action is older than maxAge,
// bounding memory for keys that went quiet.
func (s *SlidingWindow) Evict(now time.Time, maxAge time.Duration) {
	cutoff := now.Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		b.mu.Lock()
		stale := len(b.stamps) == 0 || b.stamps[len(b.stamps)-1].Before(cutoff)
		b.mu.Unlock()
		if stale {
			delete(s.buckets, key)
		}
	}
}

func (s *SlidingWindow) bucketFor(key string) *bucket {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[key]; ok {
		return b
	}
	b = &bucket{}
	s.buckets[key] = b
	return b
}

// prune drops timestamps strictly older than cutoff. Stamps are
// appended in order, so the first retained index splits the slice.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
