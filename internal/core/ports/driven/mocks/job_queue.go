package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MockJobQueue is an in-memory JobQueue for testing
type MockJobQueue struct {
	mu    sync.Mutex
	jobs  map[string]*domain.Job
	queue []string

	EnqueueErr error
	// EnqueueErrFor fails Enqueue for specific source keys
	EnqueueErrFor map[string]error
	DequeueErr    error

	Enqueued []*domain.Job
}

func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{
		jobs:          make(map[string]*domain.Job),
		EnqueueErrFor: make(map[string]error),
	}
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	if err := m.EnqueueErrFor[job.Key]; err != nil {
		return err
	}
	job.Status = domain.JobStatusQueued
	m.jobs[job.ID] = job
	m.queue = append(m.queue, job.ID)
	m.Enqueued = append(m.Enqueued, job)
	return nil
}

func (m *MockJobQueue) Dequeue(ctx context.Context, waitSeconds int) (*domain.Job, error) {
	m.mu.Lock()
	if m.DequeueErr != nil {
		m.mu.Unlock()
		return nil, m.DequeueErr
	}
	if len(m.queue) == 0 {
		m.mu.Unlock()
		// Emulate a short blocking read
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
		return nil, nil
	}
	defer m.mu.Unlock()
	id := m.queue[0]
	m.queue = m.queue[1:]
	job := m.jobs[id]
	job.MarkStarted()
	return job, nil
}

func (m *MockJobQueue) Finish(ctx context.Context, jobID string, result *domain.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.MarkFinished(result)
	return nil
}

func (m *MockJobQueue) Fail(ctx context.Context, jobID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.MarkFailed(reason)
	return nil
}

func (m *MockJobQueue) ExpireStale(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := 0
	for _, job := range m.jobs {
		if job.Status == domain.JobStatusStarted && now.After(job.LeaseDeadline()) {
			job.MarkFailed(domain.JobTimeoutReason)
			n++
		}
	}
	return n, nil
}

func (m *MockJobQueue) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *MockJobQueue) Len(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.queue)), nil
}

func (m *MockJobQueue) Stats(ctx context.Context) (*domain.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.QueueStats{}
	for _, job := range m.jobs {
		switch job.Status {
		case domain.JobStatusQueued:
			stats.Queued++
		case domain.JobStatusStarted:
			stats.Started++
		case domain.JobStatusFinished:
			stats.Finished++
		case domain.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (m *MockJobQueue) Ping(ctx context.Context) error {
	return nil
}

func (m *MockJobQueue) Close() error {
	return nil
}

// Jobs returns a snapshot of every job known to the queue
func (m *MockJobQueue) Jobs() []domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, 0, len(m.jobs))
	for _, id := range m.order() {
		out = append(out, *m.jobs[id])
	}
	return out
}

func (m *MockJobQueue) order() []string {
	ids := make([]string, 0, len(m.Enqueued))
	for _, j := range m.Enqueued {
		ids = append(ids, j.ID)
	}
	return ids
}
