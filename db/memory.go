package db

import (
	"context"
	"sync"
)

// MemoryBackend keeps records in process memory. State is lost on restart.
type MemoryBackend struct {
	mu    sync.Mutex
	items map[string]int64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]int64)}
}

func (m *MemoryBackend) Expiry(_ context.Context, title string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiresAt, ok := m.items[title]
	return expiresAt, ok, nil
}

func (m *MemoryBackend) Put(_ context.Context, title string, expiresAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[title] = expiresAt
	return nil
}

func (m *MemoryBackend) DeleteExpired(_ context.Context, now int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for title, expiresAt := range m.items {
		if expiresAt <= now {
			delete(m.items, title)
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored records, expired or not
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryBackend) Close() error {
	return nil
}
