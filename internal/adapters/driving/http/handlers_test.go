package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Mock services for testing

type mockAuthService struct {
	issueFn    func(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error)
	validateFn func(ctx context.Context, token string) (*domain.TokenClaims, error)
}

func (m *mockAuthService) IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
	if m.issueFn != nil {
		return m.issueFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Mint(subject string, role domain.Role, ttl time.Duration) (*domain.TokenResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, token)
	}
	switch token {
	case "reader-token":
		return &domain.TokenClaims{Subject: "alice", Role: domain.RoleReader}, nil
	case "ingester-token":
		return &domain.TokenClaims{Subject: "ops", Role: domain.RoleIngester}, nil
	case "expired-token":
		return nil, domain.ErrTokenExpired
	}
	return nil, domain.ErrUnauthorized
}

type mockSearchService struct {
	searchFn func(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
	statsFn  func(ctx context.Context) (*domain.CorpusStats, error)
	lastReq  domain.SearchRequest
}

func (m *mockSearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.lastReq = req
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return &domain.SearchResponse{Question: req.Question, Path: domain.SearchPathVector}, nil
}

func (m *mockSearchService) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &domain.CorpusStats{TotalChunks: 42, UniqueFiles: 3, EmbeddingModel: "text-embedding-3-small"}, nil
}

type mockIngestionService struct {
	triggerFn func(ctx context.Context, key string) (*domain.Job, error)
	statsFn   func(ctx context.Context) (*domain.QueueStats, error)
}

func (m *mockIngestionService) Trigger(ctx context.Context, key string) (*domain.Job, error) {
	if m.triggerFn != nil {
		return m.triggerFn(ctx, key)
	}
	return domain.NewIngestJob(key), nil
}

func (m *mockIngestionService) Process(ctx context.Context, key string) (*domain.IngestResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIngestionService) QueueStats(ctx context.Context) (*domain.QueueStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &domain.QueueStats{Queued: 2, Started: 1, Finished: 5, Failed: 1}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.err
}

type testServer struct {
	server    *Server
	search    *mockSearchService
	ingestion *mockIngestionService
	auth      *mockAuthService
	db        *mockPinger
	redis     *mockPinger
	embedder  *mockHealthChecker
}

func newTestServer() *testServer {
	ts := &testServer{
		search:    &mockSearchService{},
		ingestion: &mockIngestionService{},
		auth:      &mockAuthService{},
		db:        &mockPinger{},
		redis:     &mockPinger{},
		embedder:  &mockHealthChecker{},
	}
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	ts.server = NewServer(cfg, ts.search, ts.ingestion, ts.auth, ts.db, ts.redis, ts.embedder)
	return ts
}

func (ts *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp.Error
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("GET", "/health", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	var resp StatusResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("GET", "/version", "", "")

	var resp VersionResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", resp.Version)
	}
}

func TestHandleReady(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("GET", "/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	ts.redis.err = errors.New("connection refused")
	rec = ts.do("GET", "/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp ReadyResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Components["redis"] != "unavailable" || resp.Components["database"] != "ok" {
		t.Errorf("unexpected components %v", resp.Components)
	}
}

func TestHandleReady_EmbeddingUnavailable(t *testing.T) {
	ts := newTestServer()
	ts.embedder.err = errors.New("401 unauthorized")

	rec := ts.do("GET", "/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp ReadyResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "degraded" {
		t.Errorf("expected degraded, got %q", resp.Status)
	}
	if resp.Components["embedding"] != "unavailable" || resp.Components["redis"] != "ok" {
		t.Errorf("unexpected components %v", resp.Components)
	}
}

func TestHandleMetrics(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("GET", "/metrics", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected prometheus exposition output")
	}
}

func TestHandleSearch(t *testing.T) {
	ts := newTestServer()
	ts.search.searchFn = func(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
		return &domain.SearchResponse{
			Question: req.Question,
			Path:     domain.SearchPathVector,
			Results: []*domain.QueryResult{
				{Chunk: domain.Chunk{FileName: "annual.pdf", ChunkID: "text_1_1"}, Similarity: 0.82},
			},
		}, nil
	}

	rec := ts.do("POST", "/api/v1/search", `{"question":"  revenue growth  "}`, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ChunkID != "text_1_1" {
		t.Errorf("unexpected results %+v", resp.Results)
	}

	got := ts.search.lastReq
	if got.Question != "revenue growth" {
		t.Errorf("expected trimmed question, got %q", got.Question)
	}
	if got.TopK != domain.DefaultTopK || !got.UseKeywords || got.SimilarityThreshold != domain.DefaultSimilarityThreshold {
		t.Errorf("expected server defaults, got %+v", got)
	}
}

func TestHandleSearch_Options(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("POST", "/api/v1/search",
		`{"question":"ebitda","top_k":10,"use_keywords":false,"similarity_threshold":0}`, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := ts.search.lastReq
	if got.TopK != 10 || got.UseKeywords || got.SimilarityThreshold != 0 {
		t.Errorf("expected explicit options, got %+v", got)
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"invalid json", `{"question":`, "invalid request body"},
		{"missing question", `{"question":"   "}`, "question is required"},
		{"threshold out of range", `{"question":"q","similarity_threshold":1.5}`, "similarity_threshold must be between 0 and 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			rec := ts.do("POST", "/api/v1/search", tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if msg := decodeError(t, rec); msg != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, msg)
			}
		})
	}
}

func TestHandleSearch_ServiceError(t *testing.T) {
	ts := newTestServer()
	ts.search.searchFn = func(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
		return nil, errors.New("boom")
	}

	rec := ts.do("POST", "/api/v1/search", `{"question":"q"}`, "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "search failed" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestHandleStats(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("GET", "/api/v1/stats", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats domain.CorpusStats
	_ = json.NewDecoder(rec.Body).Decode(&stats)
	if stats.TotalChunks != 42 || stats.UniqueFiles != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestHandleIngest(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("POST", "/api/v1/ingest", `{"key":"reports/a.pdf"}`, "ingester-token")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var job domain.Job
	_ = json.NewDecoder(rec.Body).Decode(&job)
	if job.Key != "reports/a.pdf" || job.Status != domain.JobStatusQueued {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestHandleIngest_Auth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		status int
		msg    string
	}{
		{"missing token", "", http.StatusUnauthorized, "missing authorization token"},
		{"invalid token", "garbage", http.StatusUnauthorized, "invalid token"},
		{"expired token", "expired-token", http.StatusUnauthorized, "token expired"},
		{"reader role", "reader-token", http.StatusForbidden, "ingester role required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			called := false
			ts.ingestion.triggerFn = func(ctx context.Context, key string) (*domain.Job, error) {
				called = true
				return domain.NewIngestJob(key), nil
			}

			rec := ts.do("POST", "/api/v1/ingest", `{"key":"a.pdf"}`, tt.token)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if msg := decodeError(t, rec); msg != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, msg)
			}
			if called {
				t.Error("trigger must not run for rejected requests")
			}
		})
	}
}

func TestHandleIngest_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty key", domain.ErrInvalidInput, http.StatusBadRequest},
		{"unsupported", domain.ErrUnsupportedSource, http.StatusBadRequest},
		{"no queue", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"redis failure", errors.New("READONLY"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.ingestion.triggerFn = func(ctx context.Context, key string) (*domain.Job, error) {
				return nil, tt.err
			}

			rec := ts.do("POST", "/api/v1/ingest", `{"key":"a.docx"}`, "ingester-token")

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestHandleQueueStats(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("GET", "/api/v1/queue", "", "reader-token")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats domain.QueueStats
	_ = json.NewDecoder(rec.Body).Decode(&stats)
	if stats != (domain.QueueStats{Queued: 2, Started: 1, Finished: 5, Failed: 1}) {
		t.Errorf("unexpected stats %+v", stats)
	}

	if rec := ts.do("GET", "/api/v1/queue", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestHandleIssueToken(t *testing.T) {
	ts := newTestServer()
	ts.auth.issueFn = func(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
		if req.Password != "s3cret" {
			return nil, domain.ErrInvalidCredentials
		}
		return &domain.TokenResponse{Token: "signed", Role: req.Role}, nil
	}

	rec := ts.do("POST", "/api/v1/auth/token", `{"password":"s3cret","role":"ingester"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.TokenResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Token != "signed" || resp.Role != domain.RoleIngester {
		t.Errorf("unexpected response %+v", resp)
	}

	rec = ts.do("POST", "/api/v1/auth/token", `{"password":"nope"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	rec = ts.do("POST", "/api/v1/auth/token", `not json`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer()

	rec := ts.do("GET", "/api/v1/nope", "", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
