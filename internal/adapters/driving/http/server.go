package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/metrics"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker is implemented by remote model backends.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	router          *http.ServeMux
	version         string
	logger          *slog.Logger
	shutdownTimeout time.Duration
	searchDefaults  SearchDefaults

	// Services
	searchService    driving.SearchService
	ingestionService driving.IngestionService
	authService      driving.AuthService

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger        // Redis health check (optional)
	embedder    HealthChecker // Embedding backend health check (optional)
}

// SearchDefaults fill options a search request leaves unset.
type SearchDefaults struct {
	TopK                int
	SimilarityThreshold float64
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	Version         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Search          SearchDefaults
	Logger          *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Search: SearchDefaults{
			TopK:                domain.DefaultTopK,
			SimilarityThreshold: domain.DefaultSimilarityThreshold,
		},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	searchService driving.SearchService,
	ingestionService driving.IngestionService,
	authService driving.AuthService,
	db Pinger,
	redisClient Pinger, // can be nil
	embedder HealthChecker, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = domain.DefaultTopK
	}
	if cfg.Search.SimilarityThreshold <= 0 {
		cfg.Search.SimilarityThreshold = domain.DefaultSimilarityThreshold
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		logger:           logger,
		shutdownTimeout:  cfg.ShutdownTimeout,
		searchDefaults:   cfg.Search,
		searchService:    searchService,
		ingestionService: ingestionService,
		authService:      authService,
		db:               db,
		redisClient:      redisClient,
		embedder:         embedder,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = metrics.Middleware(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.Handler())

	// Token exchange (public, password checked)
	s.router.HandleFunc("POST /api/v1/auth/token", s.handleIssueToken)

	// Retrieval (public)
	s.router.HandleFunc("POST /api/v1/search", s.handleSearch)
	s.router.HandleFunc("GET /api/v1/stats", s.handleStats)

	// Ingestion (authenticated)
	s.router.Handle("POST /api/v1/ingest",
		authMiddleware.Authenticate(
			authMiddleware.RequireIngest(http.HandlerFunc(s.handleIngest))))
	s.router.Handle("GET /api/v1/queue",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleQueueStats)))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
