package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is the in-process Store used by tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.collections[collection][key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (m *Memory) Set(ctx context.Context, collection, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string][]byte)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.collections[collection][key] = stored
	return nil
}

func (m *Memory) Merge(ctx context.Context, collection, key string, fields map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	merged, err := mergeDocument(m.collections[collection][key], fields)
	if err != nil {
		return err
	}
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string][]byte)
	}
	m.collections[collection][key] = merged
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collection], key)
	return nil
}
