package repository

import (
	"context"
	"slices"
	"sync"
)

// MemoryKV implements KV with in-process maps. Scans are ordered by key.
type MemoryKV struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
	closed bool
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{tables: make(map[string]map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, table, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, unavailable("memory get", ErrClosed)
	}
	v, ok := m.tables[table][key]
	if !ok {
		return nil, notFound(table, key)
	}
	return slices.Clone(v), nil
}

func (m *MemoryKV) Put(_ context.Context, table, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable("memory put", ErrClosed)
	}
	m.tableLocked(table)[key] = slices.Clone(value)
	return nil
}

func (m *MemoryKV) PutIfAbsent(_ context.Context, table, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, unavailable("memory put", ErrClosed)
	}
	t := m.tableLocked(table)
	if _, exists := t[key]; exists {
		return false, nil
	}
	t[key] = slices.Clone(value)
	return true, nil
}

func (m *MemoryKV) Delete(_ context.Context, table, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable("memory delete", ErrClosed)
	}
	delete(m.tables[table], key)
	return nil
}

func (m *MemoryKV) Scan(_ context.Context, table, cursor string, limit int) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Page{}, unavailable("memory scan", ErrClosed)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	t := m.tables[table]
	keys := make([]string, 0, len(t))
	for k := range t {
		if cursor == "" || k > cursor {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var page Page
	for i, k := range keys {
		if i == limit {
			page.Next = page.Items[len(page.Items)-1].Key
			break
		}
		page.Items = append(page.Items, Item{Key: k, Value: slices.Clone(t[k])})
	}
	return page, nil
}

// Len returns the number of records in table.
func (m *MemoryKV) Len(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[table])
}

func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryKV) tableLocked(table string) map[string][]byte {
	t, ok := m.tables[table]
	if !ok {
		t = make(map[string][]byte)
		m.tables[table] = t
	}
	return t
}
