package mocks

import (
	"context"
	"sync"
)

// MockLedger is an in-memory Ledger for testing
type MockLedger struct {
	mu       sync.Mutex
	keys     map[string]struct{}
	Appended []string

	LoadErr   error
	AppendErr error
}

func NewMockLedger(keys ...string) *MockLedger {
	l := &MockLedger{keys: make(map[string]struct{})}
	for _, k := range keys {
		l.keys[k] = struct{}{}
	}
	return l
}

func (m *MockLedger) Load(ctx context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make(map[string]struct{}, len(m.keys))
	for k := range m.keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (m *MockLedger) Append(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.keys[key] = struct{}{}
	m.Appended = append(m.Appended, key)
	return nil
}

func (m *MockLedger) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok
}
