package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/metrics"
)

// Ensure RetrievalEngine implements SearchService
var _ driving.SearchService = (*RetrievalEngine)(nil)

// RetrievalEngine answers questions by vector similarity, boosted by
// keyword overlap. When the query cannot be embedded or the vector search
// fails, it degrades to substring search over the stored chunks.
// It holds no per-request state and is safe for concurrent use.
type RetrievalEngine struct {
	chunks   driven.ChunkStore
	embedder driven.EmbeddingService
	keywords driven.KeywordExtractor
	logger   *slog.Logger
}

// RetrievalEngineConfig holds dependencies for RetrievalEngine.
type RetrievalEngineConfig struct {
	ChunkStore driven.ChunkStore
	Embedder   driven.EmbeddingService
	Keywords   driven.KeywordExtractor // Optional: falls back to the word heuristic
	Logger     *slog.Logger
}

// NewRetrievalEngine creates a new retrieval engine.
func NewRetrievalEngine(cfg RetrievalEngineConfig) *RetrievalEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalEngine{
		chunks:   cfg.ChunkStore,
		embedder: cfg.Embedder,
		keywords: cfg.Keywords,
		logger:   logger,
	}
}

// Search runs a hybrid query.
func (e *RetrievalEngine) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	start := time.Now()

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}
	req.Normalize()

	queryKeywords := extractKeywords(ctx, e.keywords, e.logger, req.Question, domain.QueryKeywordCount)
	limit := req.TopK * 3

	path := domain.SearchPathVector
	results, err := e.vectorSearch(ctx, req.Question, req.SimilarityThreshold, limit)
	if err != nil {
		e.logger.Warn("vector search failed, falling back to keyword search", "error", err)
		path = domain.SearchPathKeywordFallback
		results = e.keywordSearch(ctx, queryKeywords, limit)
	}

	if req.UseKeywords && len(queryKeywords) > 0 {
		BoostByKeywords(results, queryKeywords)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > req.TopK {
		results = results[:req.TopK]
	}
	if results == nil {
		results = []*domain.QueryResult{}
	}

	took := time.Since(start)
	metrics.SearchRequestsTotal.WithLabelValues(string(path)).Inc()
	metrics.SearchDuration.Observe(took.Seconds())

	e.logger.Debug("search complete",
		"path", path,
		"results", len(results),
		"keywords", queryKeywords,
		"took", took,
	)

	return &domain.SearchResponse{
		Question:      req.Question,
		Results:       results,
		QueryKeywords: queryKeywords,
		Path:          path,
		Took:          took,
	}, nil
}

// Stats returns corpus counters with the active embedding model.
func (e *RetrievalEngine) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	stats, err := e.chunks.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("chunk store stats: %w", err)
	}
	if e.embedder != nil {
		stats.EmbeddingModel = e.embedder.Model()
	}
	return stats, nil
}

func (e *RetrievalEngine) vectorSearch(ctx context.Context, question string, threshold float64, limit int) ([]*domain.QueryResult, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("no embedding service: %w", domain.ErrServiceUnavailable)
	}
	vec, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := e.chunks.SimilaritySearch(ctx, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return results, nil
}

// keywordSearch never fails: store errors yield an empty result set.
func (e *RetrievalEngine) keywordSearch(ctx context.Context, keywords []string, limit int) []*domain.QueryResult {
	if len(keywords) == 0 {
		return nil
	}
	chunks, err := e.chunks.SubstringSearch(ctx, keywords, limit)
	if err != nil {
		e.logger.Error("keyword search failed", "error", err)
		return nil
	}
	results := make([]*domain.QueryResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, &domain.QueryResult{Chunk: *c, Similarity: domain.FallbackSimilarity})
	}
	return results
}

// BoostByKeywords raises each result's similarity in place: per query
// keyword, StoredKeywordBoost if it is one of the chunk's keywords and
// TextMatchBoost if it occurs in the chunk text. Comparisons ignore case and
// scores are capped at 1.0.
func BoostByKeywords(results []*domain.QueryResult, queryKeywords []string) {
	for _, r := range results {
		stored := make(map[string]struct{}, len(r.Keywords)+len(r.FinancialKeywords))
		for _, k := range r.Keywords {
			stored[strings.ToLower(k)] = struct{}{}
		}
		for _, k := range r.FinancialKeywords {
			stored[strings.ToLower(k)] = struct{}{}
		}
		text := strings.ToLower(r.ChunkText)

		boost := 0.0
		for _, qk := range queryKeywords {
			qk = strings.ToLower(qk)
			if _, ok := stored[qk]; ok {
				boost += domain.StoredKeywordBoost
			}
			if strings.Contains(text, qk) {
				boost += domain.TextMatchBoost
			}
		}
		r.Similarity = min(1.0, r.Similarity+boost)
	}
}
