package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// entry is one stored payload with its write time and TTL.
type entry struct {
	value     []byte
	writtenAt time.Time
	ttl       time.Duration
}

// MemoryStore is a process-local KeyValueStore. Expiry is lazy, on
// read; there is no background eviction, so growth is bounded only by
// the key space.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements KeyValueStore. Expired entries are dropped on access.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if m.now().Sub(e.writtenAt) > e.ttl {
		m.mu.Lock()
		// Re-check under the write lock; a fresh write may have landed.
		if cur, ok := m.entries[key]; ok && cur.writtenAt.Equal(e.writtenAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	return e.value, true, nil
}

// Set implements KeyValueStore.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = entry{value: value, writtenAt: m.now(), ttl: ttl}
	m.mu.Unlock()
	return nil
}

// DeleteContaining implements KeyValueStore.
func (m *MemoryStore) DeleteContaining(_ context.Context, substr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if substr == "" {
		m.entries = make(map[string]entry)
		return nil
	}

	for key := range m.entries {
		if strings.Contains(key, substr) {
			delete(m.entries, key)
		}
	}
	return nil
}
