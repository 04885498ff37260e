package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// JobQueue is a durable competing-consumers queue of ingestion jobs.
// Each job is leased to exactly one worker and is never retried.
type JobQueue interface {
	// Enqueue adds a job to the queue in the queued state.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue leases the next available job, waiting up to waitSeconds.
	// The job is marked started and will not be returned to other workers.
	// Returns nil, nil if no job arrived in time.
	Dequeue(ctx context.Context, waitSeconds int) (*domain.Job, error)

	// Finish records a successful outcome. The record expires after the job's ResultTTL.
	Finish(ctx context.Context, jobID string, result *domain.JobResult) error

	// Fail records a failure reason. Failed jobs are not re-queued.
	Fail(ctx context.Context, jobID string, reason string) error

	// ExpireStale fails started jobs whose lease deadline has passed.
	// Returns the number of jobs expired.
	ExpireStale(ctx context.Context) (int, error)

	// GetJob retrieves a job by ID (for status checking).
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)

	// Len returns the number of queued jobs.
	Len(ctx context.Context) (int64, error)

	// Stats purges expired terminal entries and returns registry counts.
	Stats(ctx context.Context) (*domain.QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}
