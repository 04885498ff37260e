package domain

import "time"

const (
	DefaultTopK                = 5
	MaxTopK                    = 50
	DefaultSimilarityThreshold = 0.3

	// FallbackSimilarity is the base score assigned to substring matches.
	FallbackSimilarity = 0.5

	// StoredKeywordBoost is added per query keyword found in a chunk's keywords.
	StoredKeywordBoost = 0.10
	// TextMatchBoost is added per query keyword found in a chunk's text.
	TextMatchBoost = 0.05

	// QueryKeywordCount is how many keywords are extracted from a question.
	QueryKeywordCount = 5
	// ChunkKeywordCount is how many keywords are extracted per chunk.
	ChunkKeywordCount = 8
)

// SearchPath records which retrieval path produced the results
type SearchPath string

const (
	SearchPathVector          SearchPath = "vector"
	SearchPathKeywordFallback SearchPath = "keyword_fallback"
)

// SearchRequest configures a retrieval query
type SearchRequest struct {
	Question            string  `json:"question"`
	TopK                int     `json:"top_k"`
	UseKeywords         bool    `json:"use_keywords"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// NewSearchRequest returns a request with default options.
func NewSearchRequest(question string) SearchRequest {
	return SearchRequest{
		Question:            question,
		TopK:                DefaultTopK,
		UseKeywords:         true,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Normalize fills unset or out of range options with defaults.
func (r *SearchRequest) Normalize() {
	if r.TopK <= 0 {
		r.TopK = DefaultTopK
	}
	if r.TopK > MaxTopK {
		r.TopK = MaxTopK
	}
	if r.SimilarityThreshold < 0 {
		r.SimilarityThreshold = DefaultSimilarityThreshold
	}
}

// QueryResult is a retrieved chunk with its relevance score.
type QueryResult struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// SearchResponse is the outcome of a retrieval query
type SearchResponse struct {
	Question      string         `json:"question"`
	Results       []*QueryResult `json:"results"`
	QueryKeywords []string       `json:"query_keywords"`
	Path          SearchPath     `json:"path"`
	Took          time.Duration  `json:"took" swaggertype:"integer" example:"1500000"`
}
