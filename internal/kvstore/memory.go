package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a mutex-guarded in-process Store used for tests and
// single-process local development. It carries no cross-instance
// consistency guarantees and none are needed for that use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) SetIfAbsent(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return ErrKeyExists
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) && k > cursor {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	sort.Strings(keys)

	page := Page{}
	if len(keys) > limit {
		page.More = true
		keys = keys[:limit]
	}
	for _, k := range keys {
		val, err := m.Get(context.Background(), k)
		if err != nil {
			// Deleted between snapshot and read; skip.
			continue
		}
		page.Entries = append(page.Entries, Entry{Key: k, Value: val})
	}
	if len(keys) > 0 {
		page.Cursor = keys[len(keys)-1]
	}
	return page, nil
}
