package querycache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/careerlens/careers-cli/internal/model"
)

// MemoryBackend keeps cached queries in a map. Used when no store is
// configured and in tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]model.CachedQuery
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]model.CachedQuery)}
}

func (m *MemoryBackend) GetCachedQuery(_ context.Context, key string) (*model.CachedQuery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	q.Results = slices.Clone(q.Results)
	return &q, nil
}

func (m *MemoryBackend) SetCachedQuery(_ context.Context, q model.CachedQuery) error {
	q.Results = slices.Clone(q.Results)
	m.mu.Lock()
	m.entries[q.Key] = q
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) DeleteExpiredQueries(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for k, q := range m.entries {
		if q.ExpiresAt.Before(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored entries, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
