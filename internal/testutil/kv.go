package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is returned by fakes whose failure switch is on.
var ErrInjected = errors.New("injected failure")

// MemoryKV is an in-memory state.KV.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
	sets map[string]int

	// FailWrites makes Set return ErrInjected.
	FailWrites bool
}

// NewMemoryKV creates an empty store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), sets: make(map[string]int)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrInjected
	}
	m.data[key] = append([]byte(nil), value...)
	m.sets[key]++
	return nil
}

// Put stores a raw value, bypassing the write counter.
func (m *MemoryKV) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = []byte(value)
}

// Raw returns the stored value as a string.
func (m *MemoryKV) Raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[key])
}

// Sets returns how many times key was written through Set.
func (m *MemoryKV) Sets(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets[key]
}
