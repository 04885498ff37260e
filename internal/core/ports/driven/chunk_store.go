package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ChunkStore persists chunks with their embeddings and serves retrieval queries.
type ChunkStore interface {
	// BulkInsert writes chunks in pages. There is no all-or-nothing guarantee
	// across pages.
	BulkInsert(ctx context.Context, chunks []*domain.Chunk) error

	// SimilaritySearch returns chunks whose cosine similarity to vec is above
	// threshold, best first, at most limit results.
	SimilaritySearch(ctx context.Context, vec []float32, threshold float64, limit int) ([]*domain.QueryResult, error)

	// SubstringSearch returns chunks whose text contains any of terms
	// (case-insensitive), at most limit results.
	SubstringSearch(ctx context.Context, terms []string, limit int) ([]*domain.Chunk, error)

	// Stats returns corpus counters. EmbeddingModel is left empty.
	Stats(ctx context.Context) (*domain.CorpusStats, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}
