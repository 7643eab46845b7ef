package storage

import (
	"context"
	"sync"
)

// MemoryStore backs the transient scope and the "memory" durable driver.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryStore) Apply(_ context.Context, ops ...Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		if op.Delete {
			delete(m.data, op.Key)
			continue
		}
		m.data[op.Key] = op.Value
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
