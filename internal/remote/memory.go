package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Memory is an in-process Remote. Rows are stored encoded, so callers
// never share state with it. Failures can be injected for tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Memory struct {
	mu      sync.Mutex
	rows    map[string][]byte
	offline bool
	fetches int
	upserts int
}

var _ Remote = (*Memory)(nil)

// errOffline is the transport error reported while offline.
var errOffline = errors.New("offline")

// NewMemory creates an empty in-memory remote.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string][]byte)}
}

// SetOffline makes every Fetch and Upsert fail with a network failure.
func (m *Memory) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// Fetch implements Remote.
func (m *Memory) Fetch(_ context.Context, id string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.offline {
		return Row{}, &Error{Code: CodeNetworkFailure, Op: "fetch", ID: id, Err: errOffline}
	}
	raw, ok := m.rows[id]
	if !ok {
		return Row{}, &Error{Code: CodeNotFound, Op: "fetch", ID: id}
	}
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return Row{}, &Error{Code: CodeNetworkFailure, Op: "fetch", ID: id, Err: err}
	}
	return row, nil
}

// Upsert implements Remote.
func (m *Memory) Upsert(_ context.Context, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.offline {
		return &Error{Code: CodeNetworkFailure, Op: "upsert", ID: row.ID, Err: errOffline}
	}
	return m.putLocked(row)
}

// Put stores row directly, as another device would. It is not counted.
func (m *Memory) Put(row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(row)
}

func (m *Memory) putLocked(row Row) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return &Error{Code: CodeRejected, Op: "upsert", ID: row.ID, Err: err}
	}
	m.rows[row.ID] = raw
	return nil
}

// Get returns the stored row, bypassing failure injection and counters.
func (m *Memory) Get(id string) (Row, bool) {
	m.mu.Lock()
	raw, ok := m.rows[id]
	m.mu.Unlock()
	if !ok {
		return Row{}, false
	}
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return Row{}, false
	}
	return row, true
}

// Calls returns how many times Fetch and Upsert were called.
func (m *Memory) Calls() (fetches, upserts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches, m.upserts
}
