package services

import (
	"context"
	"log/slog"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// extractKeywords asks the extractor for the top keywords of text and falls
// back to the deterministic word heuristic when it fails or is absent.
func extractKeywords(ctx context.Context, extractor driven.KeywordExtractor, logger *slog.Logger, text string, topN int) []string {
	if extractor == nil {
		return postprocessors.FallbackKeywords(text, topN)
	}
	keywords, err := extractor.Extract(ctx, text, topN)
	if err != nil {
		logger.Debug("keyword extraction failed, using fallback", "error", err)
		return postprocessors.FallbackKeywords(text, topN)
	}
	if len(keywords) > topN {
		keywords = keywords[:topN]
	}
	return keywords
}
