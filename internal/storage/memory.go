package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Durable used by tests and dry runs.
type Memory struct {
	mu     sync.RWMutex
	values map[Key]string

	// FailWrites makes every Set return this error when non-nil.
	FailWrites error
	// FailReads makes every Get return this error when non-nil.
	FailReads error
}

func NewMemory() *Memory {
	return &Memory{values: make(map[Key]string)}
}

func (m *Memory) Get(_ context.Context, key Key) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads != nil {
		return "", false, m.FailReads
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Keys(_ context.Context, namespace string) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []Key
	for k := range m.values {
		if k.Namespace == namespace {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Identity < keys[j].Identity })
	return keys, nil
}

var _ Durable = (*Memory)(nil)
