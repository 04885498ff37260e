package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/metrics"
)

// Processor runs the ingestion pipeline for one source key.
type Processor interface {
	Process(ctx context.Context, key string) (*domain.IngestResult, error)
}

// Worker leases ingestion jobs from the job queue and runs them.
// Failed jobs are recorded and never retried.
type Worker struct {
	queue     driven.JobQueue
	processor Processor
	logger    *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds
	errorBackoff   time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Queue          driven.JobQueue
	Processor      Processor
	Logger         *slog.Logger
	Concurrency    int           // Number of concurrent job processors (default: 2)
	DequeueTimeout int           // Seconds to wait for a job before checking again (default: 5)
	ErrorBackoff   time.Duration // Pause after a dequeue error (default: 1s)
}

// NewWorker creates a new ingestion worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Worker{
		queue:          cfg.Queue,
		processor:      cfg.Processor,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		errorBackoff:   backoff,
	}
}

// Start begins the worker loops.
// They run until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker. Jobs in flight run to completion.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
	w.logger.Info("worker stopped")
}

// Wait blocks until every worker loop has returned.
func (w *Worker) Wait() {
	w.mu.RLock()
	doneCh := w.doneCh
	w.mu.RUnlock()
	if doneCh != nil {
		<-doneCh
	}
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue job", "error", err)
			w.pause(ctx)
			continue
		}
		if job == nil {
			continue
		}

		w.processJob(ctx, job, logger)
	}
}

func (w *Worker) pause(ctx context.Context) {
	t := time.NewTimer(w.errorBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-t.C:
	}
}

// processJob runs one job under its own deadline and records the outcome.
func (w *Worker) processJob(ctx context.Context, job *domain.Job, logger *slog.Logger) {
	logger = logger.With("job_id", job.ID, "key", job.Key)
	logger.Info("processing job")

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultJobTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := w.processor.Process(jobCtx, job.Key)
	duration := time.Since(start)
	metrics.IngestJobDuration.Observe(duration.Seconds())

	// The outcome is recorded even when shutdown cancelled the job.
	recordCtx := context.WithoutCancel(ctx)

	if err != nil {
		reason := err.Error()
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			reason = domain.JobTimeoutReason
			err = fmt.Errorf("%w: %w", domain.ErrJobTimeout, err)
		}
		metrics.IngestJobsTotal.WithLabelValues(string(domain.JobStatusFailed)).Inc()
		logger.Error("job failed", "duration", duration, "error", err)

		if failErr := w.queue.Fail(recordCtx, job.ID, reason); failErr != nil {
			logger.Error("failed to record job failure", "fail_error", failErr)
		}
		return
	}

	metrics.IngestJobsTotal.WithLabelValues(string(domain.JobStatusFinished)).Inc()
	logger.Info("job finished",
		"duration", duration,
		"chunks", result.Chunks,
		"pages", result.Pages,
	)

	jobResult := &domain.JobResult{FileName: result.FileName, Chunks: result.Chunks}
	if finishErr := w.queue.Finish(recordCtx, job.ID, jobResult); finishErr != nil {
		logger.Error("failed to record job result", "finish_error", finishErr)
	}
}

// Health reports the worker state.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
