// Package runtime wires adapters and services from configuration. Each
// component is built on first use so a command only connects to the
// backends it needs.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/audit"
	"github.com/custodia-labs/docqa/internal/adapters/driven/auth"
	"github.com/custodia-labs/docqa/internal/adapters/driven/keywords"
	"github.com/custodia-labs/docqa/internal/adapters/driven/ledger"
	"github.com/custodia-labs/docqa/internal/adapters/driven/objectstore/filesystem"
	s3store "github.com/custodia-labs/docqa/internal/adapters/driven/objectstore/s3"
	"github.com/custodia-labs/docqa/internal/adapters/driven/postgres"
	redisqueue "github.com/custodia-labs/docqa/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/docqa/internal/adapters/driven/redis"
	"github.com/custodia-labs/docqa/internal/config"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/worker"
)

// Services holds lazily constructed components.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.Mutex

	cfg    *config.Config
	logger *slog.Logger

	redisClient *redis.Client
	db          *postgres.DB
	queue       *redisqueue.Queue
	embedder    driven.EmbeddingService
	objectStore driven.ObjectStore
	chunkStore  *postgres.ChunkStore
	lock        driven.DistributedLock
	retrieval   *services.RetrievalEngine
	authService driving.AuthService

	closers []func() error
}

// NewServices creates a new Services registry
func NewServices(cfg *config.Config, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	return &Services{cfg: cfg, logger: logger}
}

// Config returns the loaded configuration
func (s *Services) Config() *config.Config {
	return s.cfg
}

// Logger returns the process logger
func (s *Services) Logger() *slog.Logger {
	return s.logger
}

// Redis returns the shared Redis client
func (s *Services) Redis(ctx context.Context) (*redis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redis(ctx)
}

func (s *Services) redis(ctx context.Context) (*redis.Client, error) {
	if s.redisClient != nil {
		return s.redisClient, nil
	}

	opts, err := redis.ParseURL(s.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis: %w", domain.ErrServiceUnavailable, err)
	}

	s.logger.Debug("redis connected", "addr", opts.Addr)
	s.redisClient = client
	s.closers = append(s.closers, client.Close)
	return client, nil
}

// DB returns the PostgreSQL pool, creating the schema when configured to
func (s *Services) DB(ctx context.Context) (*postgres.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.database(ctx)
}

func (s *Services) database(ctx context.Context) (*postgres.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	dbCfg := postgres.DefaultConfig(s.cfg.Database.URL)
	dbCfg.MaxOpenConns = s.cfg.Database.MaxOpenConns
	dbCfg.MaxIdleConns = s.cfg.Database.MaxIdleConns
	dbCfg.ConnMaxLifetime = s.cfg.Database.ConnMaxLifetime
	dbCfg.ConnMaxIdleTime = s.cfg.Database.ConnMaxIdleTime

	db, err := postgres.Connect(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %w", domain.ErrServiceUnavailable, err)
	}

	if s.cfg.Database.InitSchema {
		embedder, err := s.embedding()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := db.InitSchema(ctx, embedder.Dimensions()); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.logger.Info("database schema ready", "dimensions", embedder.Dimensions())
	}

	s.db = db
	s.closers = append(s.closers, db.Close)
	return db, nil
}

// Queue returns the Redis-backed job queue
func (s *Services) Queue(ctx context.Context) (driven.JobQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobQueue(ctx)
}

func (s *Services) jobQueue(ctx context.Context) (*redisqueue.Queue, error) {
	if s.queue != nil {
		return s.queue, nil
	}
	client, err := s.redis(ctx)
	if err != nil {
		return nil, err
	}
	q, err := redisqueue.NewQueue(ctx, client, redisqueue.Config{
		Prefix:     s.cfg.Queue.Prefix,
		FailureTTL: s.cfg.Queue.FailureTTL,
		Logger:     s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.queue = q
	return q, nil
}

// Embedding returns the embedding service
func (s *Services) Embedding() (driven.EmbeddingService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embedding()
}

func (s *Services) embedding() (driven.EmbeddingService, error) {
	if s.embedder != nil {
		return s.embedder, nil
	}
	e, err := ai.NewEmbeddingService(ai.EmbeddingSettings{
		Provider:   s.cfg.Embedding.Provider,
		APIKey:     s.cfg.Embedding.APIKey,
		BaseURL:    s.cfg.Embedding.BaseURL,
		Model:      s.cfg.Embedding.Model,
		Dimensions: s.cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	s.embedder = e
	s.closers = append(s.closers, e.Close)
	return e, nil
}

// ObjectStore returns the configured source document store
func (s *Services) ObjectStore(ctx context.Context) (driven.ObjectStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(ctx)
}

func (s *Services) store(ctx context.Context) (driven.ObjectStore, error) {
	if s.objectStore != nil {
		return s.objectStore, nil
	}

	oc := s.cfg.ObjectStore
	var (
		store driven.ObjectStore
		err   error
	)
	switch oc.Type {
	case config.ObjectStoreS3:
		store, err = s3store.New(ctx, s3store.Config{
			Bucket:       oc.Bucket,
			Region:       oc.Region,
			Endpoint:     oc.Endpoint,
			UsePathStyle: oc.UsePathStyle,
		})
	default:
		store, err = filesystem.New(oc.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	s.objectStore = store
	return store, nil
}

// ChunkStore returns the pgvector chunk store
func (s *Services) ChunkStore(ctx context.Context) (driven.ChunkStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks(ctx)
}

func (s *Services) chunks(ctx context.Context) (*postgres.ChunkStore, error) {
	if s.chunkStore != nil {
		return s.chunkStore, nil
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	s.chunkStore = postgres.NewChunkStore(db, s.logger)
	return s.chunkStore, nil
}

// WatcherLock returns the cross-process watcher lock, or nil when disabled
func (s *Services) WatcherLock(ctx context.Context) (driven.DistributedLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		return s.lock, nil
	}

	switch s.cfg.Watcher.Lock {
	case config.LockRedis:
		client, err := s.redis(ctx)
		if err != nil {
			return nil, err
		}
		s.lock = redisadapter.NewLock(client, s.cfg.Queue.Prefix+":lock:")
	case config.LockPostgres:
		db, err := s.database(ctx)
		if err != nil {
			return nil, err
		}
		s.lock = postgres.NewAdvisoryLock(db)
	default:
		return nil, nil
	}
	return s.lock, nil
}

// Auth returns the token service
func (s *Services) Auth() driving.AuthService {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authService == nil {
		adapter := auth.NewAdapter(s.cfg.HTTP.JWTSecret)
		s.authService = services.NewAuthService(adapter, s.cfg.HTTP.AdminPasswordHash, s.cfg.HTTP.TokenTTL)
	}
	return s.authService
}

// PasswordHasher returns the adapter used to hash admin passwords
func (s *Services) PasswordHasher() driven.AuthAdapter {
	return auth.NewAdapter(s.cfg.HTTP.JWTSecret)
}

// Pipeline builds the ingestion pipeline. withQueue controls whether the
// job queue is connected for Trigger and QueueStats.
func (s *Services) Pipeline(ctx context.Context, withQueue bool) (*services.IngestionPipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}
	embedder, err := s.embedding()
	if err != nil {
		return nil, err
	}
	chunkStore, err := s.chunks(ctx)
	if err != nil {
		return nil, err
	}

	pc := services.IngestionPipelineConfig{
		Store:      store,
		Extractors: extractors.DefaultRegistry(),
		Keywords:   keywords.NewFrequencyExtractor(),
		Embedder:   embedder,
		ChunkStore: chunkStore,
		ScratchDir: s.cfg.Ingest.ScratchDir,
		JobTimeout: s.cfg.Worker.JobTimeout,
		ResultTTL:  s.cfg.Worker.ResultTTL,
		Logger:     s.logger,
	}
	if s.cfg.Ingest.AuditDir != "" {
		pc.Audit = audit.NewCSVExporter(s.cfg.Ingest.AuditDir)
	}
	if withQueue {
		q, err := s.jobQueue(ctx)
		if err != nil {
			return nil, err
		}
		pc.Queue = q
	}

	return services.NewIngestionPipeline(pc), nil
}

// Trigger returns an ingestion service that only needs the job queue.
// Used by commands that enqueue without processing.
func (s *Services) Trigger(ctx context.Context) (driving.IngestionService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.jobQueue(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewIngestionPipeline(services.IngestionPipelineConfig{
		Queue:      q,
		Extractors: extractors.DefaultRegistry(),
		JobTimeout: s.cfg.Worker.JobTimeout,
		ResultTTL:  s.cfg.Worker.ResultTTL,
		Logger:     s.logger,
	}), nil
}

// Retrieval returns the search engine
func (s *Services) Retrieval(ctx context.Context) (*services.RetrievalEngine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retrieval != nil {
		return s.retrieval, nil
	}
	embedder, err := s.embedding()
	if err != nil {
		return nil, err
	}
	chunkStore, err := s.chunks(ctx)
	if err != nil {
		return nil, err
	}
	s.retrieval = services.NewRetrievalEngine(services.RetrievalEngineConfig{
		ChunkStore: chunkStore,
		Embedder:   embedder,
		Keywords:   keywords.NewFrequencyExtractor(),
		Logger:     s.logger,
	})
	return s.retrieval, nil
}

// Watcher builds a source watcher
func (s *Services) Watcher(ctx context.Context) (*services.SourceWatcher, error) {
	lock, err := s.WatcherLock(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.jobQueue(ctx)
	if err != nil {
		return nil, err
	}

	wc := s.cfg.Watcher
	return services.NewSourceWatcher(services.SourceWatcherConfig{
		Store:      store,
		Ledger:     ledger.NewFileLedger(wc.LedgerPath),
		Queue:      q,
		Lock:       lock,
		Logger:     s.logger,
		Prefix:     wc.Prefix,
		Extensions: wc.Extensions,
		Interval:   wc.Interval,
		JobTimeout: s.cfg.Worker.JobTimeout,
		ResultTTL:  s.cfg.Worker.ResultTTL,
		LockTTL:    wc.LockTTL,
	}), nil
}

// Worker builds a worker pool over the ingestion pipeline
func (s *Services) Worker(ctx context.Context) (*worker.Worker, error) {
	pipeline, err := s.Pipeline(ctx, true)
	if err != nil {
		return nil, err
	}
	q, err := s.Queue(ctx)
	if err != nil {
		return nil, err
	}
	return worker.NewWorker(worker.WorkerConfig{
		Queue:          q,
		Processor:      pipeline,
		Logger:         s.logger,
		Concurrency:    s.cfg.Worker.Concurrency,
		DequeueTimeout: s.cfg.Worker.DequeueTimeout,
	}), nil
}

// Close shuts down every connected backend in reverse order
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	s.redisClient = nil
	s.db = nil
	s.queue = nil
	s.embedder = nil
	s.chunkStore = nil
	s.lock = nil
	s.retrieval = nil
	return errors.Join(errs...)
}
