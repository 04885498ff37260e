package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the state of backing services
// @Description Readiness response
type ReadyResponse struct {
	Status     string            `json:"status" example:"ready"`
	Components map[string]string `json:"components"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// searchRequest is the body of POST /api/v1/search. Unset options take the
// server defaults.
type searchRequest struct {
	Question            string   `json:"question" example:"What was revenue growth in 2023?"`
	TopK                int      `json:"top_k,omitempty" example:"5"`
	UseKeywords         *bool    `json:"use_keywords,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" example:"0.3"`
}

// ingestRequest is the body of POST /api/v1/ingest
type ingestRequest struct {
	Key string `json:"key" example:"reports/annual-2023.pdf"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the chunk store, the queue backend and the embedding API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Components: map[string]string{}}
	status := http.StatusOK

	check := func(name string, ping func(context.Context) error) {
		if err := ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "component", name, "error", err)
			resp.Components[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			return
		}
		resp.Components[name] = "ok"
	}
	if s.db != nil {
		check("database", s.db.Ping)
	}
	if s.redisClient != nil {
		check("redis", s.redisClient.Ping)
	}
	if s.embedder != nil {
		check("embedding", s.embedder.HealthCheck)
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Auth endpoints

// handleIssueToken godoc
// @Summary      Issue API token
// @Description  Exchange the admin password for a signed API token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.TokenRequest  true  "Password and requested role"
// @Success      200      {object}  domain.TokenResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Router       /auth/token [post]
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.IssueToken(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Search endpoints

// handleSearch godoc
// @Summary      Search documents
// @Description  Hybrid retrieval: vector similarity with keyword boosting, falling back to substring search when the vector path fails.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      searchRequest  true  "Search query"
// @Success      200      {object}  domain.SearchResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request or missing question"
// @Failure      500      {object}  ErrorResponse  "Search failed"
// @Router       /search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	sr := domain.SearchRequest{
		Question:            question,
		TopK:                s.searchDefaults.TopK,
		UseKeywords:         true,
		SimilarityThreshold: s.searchDefaults.SimilarityThreshold,
	}
	if req.TopK != 0 {
		sr.TopK = req.TopK
	}
	if req.UseKeywords != nil {
		sr.UseKeywords = *req.UseKeywords
	}
	if req.SimilarityThreshold != nil {
		if *req.SimilarityThreshold < 0 || *req.SimilarityThreshold > 1 {
			writeError(w, http.StatusBadRequest, "similarity_threshold must be between 0 and 1")
			return
		}
		sr.SimilarityThreshold = *req.SimilarityThreshold
	}

	resp, err := s.searchService.Search(r.Context(), sr)
	if err != nil {
		s.writeServiceError(w, err, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStats godoc
// @Summary      Corpus statistics
// @Description  Returns chunk and file counts and the embedding model in use
// @Tags         Search
// @Produce      json
// @Success      200  {object}  domain.CorpusStats
// @Failure      500  {object}  ErrorResponse  "Failed to read stats"
// @Router       /stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.searchService.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Ingestion endpoints

// handleIngest godoc
// @Summary      Trigger ingestion
// @Description  Enqueue an ingestion job for an object store key. The dispatched-key ledger is not updated.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ingestRequest  true  "Source key"
// @Success      202      {object}  domain.Job
// @Failure      400      {object}  ErrorResponse  "Missing or unsupported key"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Ingester role required"
// @Failure      500      {object}  ErrorResponse  "Failed to enqueue"
// @Router       /ingest [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.ingestionService.Trigger(r.Context(), req.Key)
	if err != nil {
		s.writeServiceError(w, err, "failed to enqueue job")
		return
	}

	if claims := GetClaims(r.Context()); claims != nil {
		s.logger.Info("ingestion triggered over http", "key", job.Key, "job_id", job.ID, "subject", claims.Subject)
	}
	writeJSON(w, http.StatusAccepted, job)
}

// handleQueueStats godoc
// @Summary      Queue statistics
// @Description  Returns job counts per registry (queued, started, finished, failed)
// @Tags         Ingestion
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.QueueStats
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Failed to read queue"
// @Router       /queue [get]
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ingestionService.QueueStats(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "failed to get queue stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeServiceError maps domain errors onto status codes. Unclassified
// errors are logged and reported with fallback.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedSource):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
