package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestQueue(t *testing.T, client *redis.Client, consumer string) *Queue {
	t.Helper()
	q, err := NewQueue(context.Background(), client, Config{ConsumerName: consumer})
	require.NoError(t, err)
	return q
}

func TestNewQueue_RequiresClient(t *testing.T) {
	_, err := NewQueue(context.Background(), nil, Config{})
	assert.Error(t, err)
}

func TestNewQueue_GroupAlreadyExists(t *testing.T) {
	_, client := setupTestRedis(t)
	newTestQueue(t, client, "a")

	_, err := NewQueue(context.Background(), client, Config{ConsumerName: "b"})
	assert.NoError(t, err)
}

func TestQueue_EnqueueDequeueFinish(t *testing.T) {
	_, client := setupTestRedis(t)
	q := newTestQueue(t, client, "w1")
	ctx := context.Background()

	job := domain.NewIngestJob("reports/q3.pdf")
	require.NoError(t, q.Enqueue(ctx, job))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	leased, err := q.Dequeue(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, leased)
	assert.Equal(t, job.ID, leased.ID)
	assert.Equal(t, "reports/q3.pdf", leased.Key)
	assert.Equal(t, domain.JobStatusStarted, leased.Status)
	assert.Equal(t, domain.DefaultJobTimeout, leased.Timeout)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStats{Started: 1}, *stats)

	require.NoError(t, q.Finish(ctx, job.ID, &domain.JobResult{FileName: "q3.pdf", Chunks: 42}))

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFinished, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 42, got.Result.Chunks)
	assert.NotNil(t, got.EndedAt)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStats{Finished: 1}, *stats)

	pending, err := client.XLen(ctx, q.stream).Result()
	require.NoError(t, err)
	assert.Zero(t, pending, "stream message deleted after completion")
}

func TestQueue_DequeueEmpty(t *testing.T) {
	_, client := setupTestRedis(t)
	q := newTestQueue(t, client, "w1")

	job, err := q.Dequeue(context.Background(), 0)
	assert.NoError(t, err)
	assert.Nil(t, job)
}

func TestQueue_NoDoubleDelivery(t *testing.T) {
	_, client := setupTestRedis(t)
	q1 := newTestQueue(t, client, "w1")
	q2 := newTestQueue(t, client, "w2")
	ctx := context.Background()

	require.NoError(t, q1.Enqueue(ctx, domain.NewIngestJob("a.pdf")))

	first, err := q1.Dequeue(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := q2.Dequeue(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, second, "a leased job is not handed to another consumer")
}

func TestQueue_FIFO(t *testing.T) {
	_, client := setupTestRedis(t)
	q := newTestQueue(t, client, "w1")
	ctx := context.Background()

	keys := []string{"a.pdf", "b.pdf", "c.pdf"}
	for _, k := range keys {
		require.NoError(t, q.Enqueue(ctx, domain.NewIngestJob(k)))
	}

	for _, want := range keys {
		job, err := q.Dequeue(ctx, 0)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, want, job.Key)
	}
}

func TestQueue_Fail(t *testing.T) {
	_, client := setupTestRedis(t)
	q := newTestQueue(t, client, "w1")
	ctx := context.Background()

	job := domain.NewIngestJob("broken.pdf")
	require.NoError(t, q.Enqueue(ctx, job))
	_, err := q.Dequeue(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, job.ID, "download failed"))

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, "download failed", got.Error)

	next, err := q.Dequeue(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, next, "failed jobs are not re-queued")

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestQueue_FinishRequiresLease(t *testing.T) {
	_, client := setupTestRedis(t)
	q := newTestQueue(t, client, "w1")
	ctx := context.Background()

	job := domain.NewIngestJob("a.pdf")
	require.NoError(t, q.Enqueue(ctx, job))

	err := q.Finish(ctx, job.ID, &domain.JobResult{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = q.Fail(ctx, "does-not-exist", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueue_ExpireStale(t *testing.T) {
	_, client := setupTestRedis(t)
	q := newTestQueue(t, client, "w1")
	ctx := context.Background()

	job := domain.NewIngestJob("slow.pdf")
	job.Timeout = time.Minute
	require.NoError(t, q.Enqueue(ctx, job))
	_, err := q.Dequeue(ctx, 0)
	require.NoError(t, err)

	n, err := q.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "lease still valid")

	base := time.Now()
	q.now = func() time.Time { return base.Add(2 * time.Minute) }

	n, err = q.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, domain.JobTimeoutReason, got.Error)

	err = q.Finish(ctx, job.ID, &domain.JobResult{Chunks: 1})
	assert.Error(t, err, "late completion is rejected")

	n, err = q.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueue_FinishRacesExpireStale(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	worker := newTestQueue(t, client, "w1")
	sweeper := newTestQueue(t, client, "w2")
	base := time.Now()
	sweeper.now = func() time.Time { return base.Add(time.Hour) }

	for i := 0; i < 100; i++ {
		job := domain.NewIngestJob("race.pdf")
		require.NoError(t, worker.Enqueue(ctx, job))
		leased, err := worker.Dequeue(ctx, 0)
		require.NoError(t, err)
		require.NotNil(t, leased)

		var (
			wg        sync.WaitGroup
			finishErr error
			expired   int
			sweepErr  error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			finishErr = worker.Finish(ctx, job.ID, &domain.JobResult{Chunks: 1})
		}()
		go func() {
			defer wg.Done()
			expired, sweepErr = sweeper.ExpireStale(ctx)
		}()
		wg.Wait()

		require.NoError(t, sweepErr)
		if finishErr != nil {
			assert.ErrorIs(t, finishErr, domain.ErrInvalidInput)
		}
		assert.True(t, (finishErr == nil) != (expired == 1), "exactly one completion wins")

		got, err := worker.GetJob(ctx, job.ID)
		require.NoError(t, err)

		inFinished := client.ZScore(ctx, worker.finished, job.ID).Err() == nil
		inFailed := client.ZScore(ctx, worker.failed, job.ID).Err() == nil
		assert.NotEqual(t, inFinished, inFailed, "job %d is in exactly one terminal registry", i)
		if got.Status == domain.JobStatusFinished {
			assert.True(t, inFinished)
		} else {
			assert.Equal(t, domain.JobStatusFailed, got.Status)
			assert.True(t, inFailed)
		}
	}

	started, err := client.ZCard(ctx, worker.started).Result()
	require.NoError(t, err)
	assert.Zero(t, started)
}

func TestQueue_TerminalEntriesExpire(t *testing.T) {
	mr, client := setupTestRedis(t)
	q := newTestQueue(t, client, "w1")
	ctx := context.Background()

	job := domain.NewIngestJob("a.pdf")
	job.ResultTTL = time.Hour
	require.NoError(t, q.Enqueue(ctx, job))
	_, err := q.Dequeue(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, q.Finish(ctx, job.ID, &domain.JobResult{Chunks: 3}))

	base := time.Now()
	q.now = func() time.Time { return base.Add(2 * time.Hour) }
	mr.FastForward(2 * time.Hour)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Finished)

	_, err = q.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueue_FailureTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	q, err := NewQueue(context.Background(), client, Config{ConsumerName: "w1", FailureTTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	job := domain.NewIngestJob("a.pdf")
	require.NoError(t, q.Enqueue(ctx, job))
	_, err = q.Dequeue(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, job.ID, "boom"))

	assert.Equal(t, time.Minute, mr.TTL(q.jobKey(job.ID)))
}

func TestQueue_Ping(t *testing.T) {
	_, client := setupTestRedis(t)
	q := newTestQueue(t, client, "w1")

	assert.NoError(t, q.Ping(context.Background()))
	assert.NoError(t, q.Close())
}
