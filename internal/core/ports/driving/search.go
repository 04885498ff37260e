package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SearchService answers retrieval queries over the ingested corpus
type SearchService interface {
	// Search runs a hybrid query. Store failures degrade to substring search
	// rather than returning an error.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)

	// Stats returns corpus counters
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}
