package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultJobTimeout bounds a single ingestion run.
	DefaultJobTimeout = 30 * time.Minute

	// DefaultResultTTL is how long a finished job stays visible.
	DefaultResultTTL = time.Hour

	// JobTimeoutReason is recorded on jobs whose lease expired before completion.
	JobTimeoutReason = "job exceeded timeout"
)

// JobStatus represents the lifecycle state of an ingestion job
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusStarted  JobStatus = "started"
	JobStatusFinished JobStatus = "finished"
	JobStatusFailed   JobStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed
}

// Job is a unit of ingestion work for one source key.
// Jobs move queued -> started -> finished|failed and are never retried.
type Job struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// Key is the object store key of the document to ingest
	Key string `json:"key"`

	// Timeout is the maximum wall time a worker may spend on the job
	Timeout time.Duration `json:"timeout"`

	// ResultTTL is how long the finished record is retained
	ResultTTL time.Duration `json:"result_ttl"`

	Status JobStatus `json:"status"`

	// Error contains the failure reason if failed
	Error string `json:"error,omitempty"`

	// Result is set once the job finished
	Result *JobResult `json:"result,omitempty"`

	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// JobResult is the payload stored on a finished job.
type JobResult struct {
	FileName string `json:"file_name"`
	Chunks   int    `json:"chunks"`
}

// NewIngestJob creates a queued job for a source key with default limits.
func NewIngestJob(key string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Key:        key,
		Timeout:    DefaultJobTimeout,
		ResultTTL:  DefaultResultTTL,
		Status:     JobStatusQueued,
		EnqueuedAt: time.Now(),
	}
}

// MarkStarted moves the job into the started state.
func (j *Job) MarkStarted() {
	now := time.Now()
	j.Status = JobStatusStarted
	j.StartedAt = &now
}

// MarkFinished records a successful outcome.
func (j *Job) MarkFinished(result *JobResult) {
	now := time.Now()
	j.Status = JobStatusFinished
	j.Result = result
	j.Error = ""
	j.EndedAt = &now
}

// MarkFailed records a failure reason.
func (j *Job) MarkFailed(reason string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = reason
	j.EndedAt = &now
}

// LeaseDeadline is the instant after which a started job is considered abandoned.
// Zero if the job has not started.
func (j *Job) LeaseDeadline() time.Time {
	if j.StartedAt == nil {
		return time.Time{}
	}
	return j.StartedAt.Add(j.Timeout)
}

// QueueStats holds per-registry job counts
type QueueStats struct {
	Queued   int64 `json:"queued"`
	Started  int64 `json:"started"`
	Finished int64 `json:"finished"`
	Failed   int64 `json:"failed"`
}

// WatchCycleResult summarises one polling cycle of the source watcher.
type WatchCycleResult struct {
	Listed   int `json:"listed"`
	New      int `json:"new"`
	Enqueued int `json:"enqueued"`
	Errors   int `json:"errors"`

	// Skipped is set when another process held the watcher lock
	Skipped bool `json:"skipped,omitempty"`
}
