package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/metrics"
)

// SourceWatcher polls the object store and enqueues an ingestion job for
// every supported key not yet in the ledger.
//
// A key is appended to the ledger as soon as its job is enqueued, before the
// outcome is known, so failed jobs are not re-dispatched. The ledger has a
// single writer: configure a Lock when more than one watcher process may run.
type SourceWatcher struct {
	store  driven.ObjectStore
	ledger driven.Ledger
	queue  driven.JobQueue
	lock   driven.DistributedLock
	logger *slog.Logger

	prefix     string
	extensions map[string]struct{}
	interval   time.Duration
	jobTimeout time.Duration
	resultTTL  time.Duration
	lockTTL    time.Duration

	// Internal state
	mu      sync.Mutex
	cycleMu sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// SourceWatcherConfig holds configuration for the watcher.
type SourceWatcherConfig struct {
	Store      driven.ObjectStore
	Ledger     driven.Ledger
	Queue      driven.JobQueue
	Lock       driven.DistributedLock // Optional: cross-process cycle lock
	Logger     *slog.Logger
	Prefix     string        // Object key prefix to watch (default: all keys)
	Extensions []string      // Supported extensions (default: .pdf, .txt)
	Interval   time.Duration // Poll interval (default: 30s)
	JobTimeout time.Duration // Per-job timeout (default: 30m)
	ResultTTL  time.Duration // Finished job retention (default: 1h)
	LockTTL    time.Duration // Cycle lock expiry (default: 5m)
}

// WatcherLockName is the DistributedLock name held during a cycle.
const WatcherLockName = "source-watcher"

// NewSourceWatcher creates a new source watcher.
func NewSourceWatcher(cfg SourceWatcherConfig) *SourceWatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{".pdf", ".txt"}
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}

	extSet := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = struct{}{}
	}

	return &SourceWatcher{
		store:      cfg.Store,
		ledger:     cfg.Ledger,
		queue:      cfg.Queue,
		lock:       cfg.Lock,
		logger:     logger,
		prefix:     cfg.Prefix,
		extensions: extSet,
		interval:   interval,
		jobTimeout: cfg.JobTimeout,
		resultTTL:  cfg.ResultTTL,
		lockTTL:    lockTTL,
	}
}

// Start begins the polling loop.
// It runs until Stop is called or context is cancelled.
func (w *SourceWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("source watcher starting", "interval", w.interval, "prefix", w.prefix)

	go w.run(ctx)

	return nil
}

// Stop gracefully stops the watcher, waiting for an in-flight cycle.
func (w *SourceWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("source watcher stopped")
}

func (w *SourceWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run immediately on start
	_, _ = w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("source watcher context cancelled")
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single polling cycle. The returned error is non-nil
// only when the listing or the ledger could not be read; per-key failures
// are counted in the result and logged.
func (w *SourceWatcher) RunOnce(ctx context.Context) (domain.WatchCycleResult, error) {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	var result domain.WatchCycleResult

	if w.lock != nil {
		acquired, err := w.lock.Acquire(ctx, WatcherLockName, w.lockTTL)
		if err != nil {
			metrics.WatcherErrorsTotal.WithLabelValues("lock").Inc()
			result.Errors++
			return result, fmt.Errorf("acquire watcher lock: %w", err)
		}
		if !acquired {
			w.logger.Debug("another watcher holds the lock, skipping cycle")
			result.Skipped = true
			return result, nil
		}
		defer func() {
			if err := w.lock.Release(context.WithoutCancel(ctx), WatcherLockName); err != nil {
				w.logger.Warn("failed to release watcher lock", "error", err)
			}
		}()
	}

	keys, err := w.store.List(ctx, w.prefix)
	if err != nil {
		metrics.WatcherErrorsTotal.WithLabelValues("list").Inc()
		w.logger.Error("failed to list source objects", "prefix", w.prefix, "error", err)
		result.Errors++
		return result, fmt.Errorf("list %q: %w", w.prefix, err)
	}

	var supported []string
	for _, key := range keys {
		if w.supported(key) {
			supported = append(supported, key)
		}
	}
	result.Listed = len(supported)

	dispatched, err := w.ledger.Load(ctx)
	if err != nil {
		metrics.WatcherErrorsTotal.WithLabelValues("ledger_load").Inc()
		w.logger.Error("failed to load ledger", "error", err)
		result.Errors++
		return result, fmt.Errorf("load ledger: %w", err)
	}

	for _, key := range supported {
		if _, ok := dispatched[key]; ok {
			continue
		}
		result.New++

		job := w.newJob(key)
		if err := w.queue.Enqueue(ctx, job); err != nil {
			metrics.WatcherErrorsTotal.WithLabelValues("enqueue").Inc()
			w.logger.Error("failed to enqueue ingestion job", "key", key, "error", err)
			result.Errors++
			continue
		}
		result.Enqueued++
		metrics.WatcherDispatchedTotal.Inc()

		if err := w.ledger.Append(ctx, key); err != nil {
			metrics.WatcherErrorsTotal.WithLabelValues("ledger_append").Inc()
			w.logger.Error("failed to record dispatched key, it may be enqueued again",
				"key", key,
				"job_id", job.ID,
				"error", err,
			)
			result.Errors++
			continue
		}

		w.logger.Info("enqueued ingestion job", "key", key, "job_id", job.ID)
	}

	if result.New > 0 {
		if n, err := w.queue.Len(ctx); err == nil {
			w.logger.Info("watch cycle complete", "new", result.New, "enqueued", result.Enqueued, "queue_length", n)
		}
	} else {
		w.logger.Debug("watch cycle complete, no new documents", "listed", result.Listed)
	}

	return result, nil
}

func (w *SourceWatcher) supported(key string) bool {
	_, ok := w.extensions[strings.ToLower(path.Ext(key))]
	return ok
}

func (w *SourceWatcher) newJob(key string) *domain.Job {
	job := domain.NewIngestJob(key)
	if w.jobTimeout > 0 {
		job.Timeout = w.jobTimeout
	}
	if w.resultTTL > 0 {
		job.ResultTTL = w.resultTTL
	}
	return job
}
