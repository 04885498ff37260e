package driven

import "context"

// KeywordExtractor ranks the salient terms of a text.
type KeywordExtractor interface {
	// Extract returns at most topN keywords, most relevant first.
	Extract(ctx context.Context, text string, topN int) ([]string, error)
}
