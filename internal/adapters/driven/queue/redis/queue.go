package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

const (
	// DefaultPrefix namespaces every key the queue writes
	DefaultPrefix = "docqa"

	// DefaultFailureTTL is how long failed jobs stay visible
	DefaultFailureTTL = 7 * 24 * time.Hour

	// Default consumer name prefix
	consumerPrefix = "worker-"
)

// Verify interface compliance
var _ driven.JobQueue = (*Queue)(nil)

// Config configures the Redis job queue.
type Config struct {
	// Prefix namespaces stream, registry and job keys
	Prefix string

	// ConsumerName should be unique per worker process (e.g. hostname + PID)
	ConsumerName string

	// FailureTTL bounds how long failed jobs are kept
	FailureTTL time.Duration

	Logger *slog.Logger
}

// Queue implements JobQueue using a Redis Stream with a consumer group for
// delivery and four sorted sets as job registries:
//
//	{prefix}:queue:queued    scored by enqueue time
//	{prefix}:queue:started   scored by lease deadline
//	{prefix}:queue:finished  scored by expiry
//	{prefix}:queue:failed    scored by expiry
//
// Job records live at {prefix}:job:{id} and carry the stream message id at
// {prefix}:job:{id}:msg while leased.
type Queue struct {
	client       *redis.Client
	consumerName string
	failureTTL   time.Duration
	logger       *slog.Logger

	stream    string
	group     string
	jobPrefix string
	queued    string
	started   string
	finished  string
	failed    string

	now func() time.Time
}

// NewQueue creates a new Redis-backed job queue and its consumer group.
func NewQueue(ctx context.Context, client *redis.Client, cfg Config) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}
	failureTTL := cfg.FailureTTL
	if failureTTL <= 0 {
		failureTTL = DefaultFailureTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	q := &Queue{
		client:       client,
		consumerName: consumer,
		failureTTL:   failureTTL,
		logger:       logger.With("consumer", consumer),
		stream:       prefix + ":jobs",
		group:        prefix + ":workers",
		jobPrefix:    prefix + ":job:",
		queued:       prefix + ":queue:queued",
		started:      prefix + ":queue:started",
		finished:     prefix + ":queue:finished",
		failed:       prefix + ":queue:failed",
		now:          time.Now,
	}

	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

// Enqueue stores the job and adds it to the stream and the queued registry.
func (q *Queue) Enqueue(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.jobKey(job.ID), data, 0)
	pipe.ZAdd(ctx, q.queued, redis.Z{Score: score(job.EnqueuedAt), Member: job.ID})
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{
			"job_id": job.ID,
			"key":    job.Key,
		},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue leases the next job, blocking up to waitSeconds. Stale leases are
// expired first. Returns nil, nil when nothing arrived or ctx was cancelled.
func (q *Queue) Dequeue(ctx context.Context, waitSeconds int) (*domain.Job, error) {
	if n, err := q.ExpireStale(ctx); err != nil {
		q.logger.Warn("failed to expire stale jobs", "error", err)
	} else if n > 0 {
		q.logger.Info("expired stale jobs", "count", n)
	}

	block := time.Duration(-1)
	if waitSeconds > 0 {
		block = time.Duration(waitSeconds) * time.Second
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumerName,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	jobID, ok := msg.Values["job_id"].(string)
	if !ok {
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	job, err := q.load(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			q.drop(ctx, msg.ID)
			return nil, nil
		}
		return nil, err
	}
	if job.Status != domain.JobStatusQueued {
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	job.MarkStarted()
	startedAt := q.now()
	job.StartedAt = &startedAt

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.jobKey(job.ID), data, 0)
	pipe.Set(ctx, q.msgKey(job.ID), msg.ID, 0)
	pipe.ZRem(ctx, q.queued, job.ID)
	pipe.ZAdd(ctx, q.started, redis.Z{Score: score(job.LeaseDeadline()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to lease job: %w", err)
	}

	return job, nil
}

// Finish records a successful outcome. The record expires after ResultTTL.
func (q *Queue) Finish(ctx context.Context, jobID string, result *domain.JobResult) error {
	_, err := q.complete(ctx, jobID, q.finished, func(job *domain.Job) time.Duration {
		job.MarkFinished(result)
		if job.ResultTTL <= 0 {
			return domain.DefaultResultTTL
		}
		return job.ResultTTL
	})
	return err
}

// Fail records a failure reason. The record expires after the queue's FailureTTL.
func (q *Queue) Fail(ctx context.Context, jobID string, reason string) error {
	_, err := q.complete(ctx, jobID, q.failed, func(job *domain.Job) time.Duration {
		job.MarkFailed(reason)
		return q.failureTTL
	})
	return err
}

// ExpireStale fails started jobs whose lease deadline has passed. A job
// completed concurrently by its worker is left alone.
func (q *Queue) ExpireStale(ctx context.Context) (int, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.started, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan started registry: %w", err)
	}

	expired := 0
	for _, id := range ids {
		job, err := q.complete(ctx, id, q.failed, func(job *domain.Job) time.Duration {
			job.MarkFailed(domain.JobTimeoutReason)
			return q.failureTTL
		})
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, errNotLeased) {
			continue
		}
		if err != nil {
			return expired, err
		}
		q.logger.Warn("job lease expired", "job_id", id, "key", job.Key)
		expired++
	}
	return expired, nil
}

// GetJob retrieves a job by ID.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return q.load(ctx, jobID)
}

// Len returns the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.ZCard(ctx, q.queued).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count queued jobs: %w", err)
	}
	return n, nil
}

// Stats purges expired finished and failed entries and returns registry counts.
func (q *Queue) Stats(ctx context.Context) (*domain.QueueStats, error) {
	cutoff := strconv.FormatInt(q.now().UnixMilli(), 10)

	pipe := q.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, q.finished, "-inf", cutoff)
	pipe.ZRemRangeByScore(ctx, q.failed, "-inf", cutoff)
	queued := pipe.ZCard(ctx, q.queued)
	started := pipe.ZCard(ctx, q.started)
	finished := pipe.ZCard(ctx, q.finished)
	failed := pipe.ZCard(ctx, q.failed)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}

	return &domain.QueueStats{
		Queued:   queued.Val(),
		Started:  started.Val(),
		Finished: finished.Val(),
		Failed:   failed.Val(),
	}, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources.
func (q *Queue) Close() error {
	// Redis client is shared, don't close it here
	return nil
}

// errNotLeased marks a completion attempt on a job that is no longer started.
var errNotLeased = fmt.Errorf("job is not started: %w", domain.ErrInvalidInput)

// maxCompleteAttempts bounds optimistic retries when the job record changes
// between the status check and the write.
const maxCompleteAttempts = 5

// complete moves a started job into a terminal registry and releases its
// stream message. The status check and the write run under WATCH on the job
// key, so exactly one of Finish, Fail and ExpireStale wins for a given job.
// apply sets the outcome and returns the record's TTL.
func (q *Queue) complete(ctx context.Context, jobID, registry string, apply func(*domain.Job) time.Duration) (*domain.Job, error) {
	var done *domain.Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, q.jobKey(jobID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to get job: %w", err)
		}
		var job domain.Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}
		if job.Status != domain.JobStatusStarted {
			return fmt.Errorf("job %s is %s: %w", jobID, job.Status, errNotLeased)
		}

		msgID, err := tx.Get(ctx, q.msgKey(jobID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to get message ID: %w", err)
		}

		ttl := apply(&job)
		out, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if msgID != "" {
				pipe.XAck(ctx, q.stream, q.group, msgID)
				pipe.XDel(ctx, q.stream, msgID)
			}
			pipe.Del(ctx, q.msgKey(jobID))
			pipe.ZRem(ctx, q.queued, jobID)
			pipe.ZRem(ctx, q.started, jobID)
			pipe.ZAdd(ctx, registry, redis.Z{Score: score(q.now().Add(ttl)), Member: jobID})
			pipe.Set(ctx, q.jobKey(jobID), out, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		done = &job
		return nil
	}

	for attempt := 0; attempt < maxCompleteAttempts; attempt++ {
		err := q.client.Watch(ctx, txf, q.jobKey(jobID))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidInput) {
				return nil, fmt.Errorf("failed to complete job %s: %w", jobID, err)
			}
			return nil, err
		}
		return done, nil
	}
	return nil, fmt.Errorf("failed to complete job %s: concurrent updates: %w", jobID, redis.TxFailedErr)
}

func (q *Queue) load(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := q.client.Get(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// drop acknowledges and deletes a message that no longer maps to a queued job.
func (q *Queue) drop(ctx context.Context, msgID string) {
	pipe := q.client.Pipeline()
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Warn("failed to drop stream message", "msg_id", msgID, "error", err)
	}
}

func (q *Queue) jobKey(id string) string {
	return q.jobPrefix + id
}

func (q *Queue) msgKey(id string) string {
	return q.jobPrefix + id + ":msg"
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
