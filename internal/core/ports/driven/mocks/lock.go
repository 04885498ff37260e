package mocks

import (
	"context"
	"sync"
	"time"
)

// MockLock is an in-memory DistributedLock for testing
type MockLock struct {
	mu   sync.Mutex
	held map[string]bool

	AcquireErr error
	Released   []string
}

func NewMockLock() *MockLock {
	return &MockLock{held: make(map[string]bool)}
}

func (m *MockLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	return true, nil
}

func (m *MockLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	m.Released = append(m.Released, name)
	return nil
}

func (m *MockLock) Ping(ctx context.Context) error {
	return nil
}

// Hold marks name as taken by another instance.
func (m *MockLock) Hold(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = true
}
