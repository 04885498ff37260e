package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentExtractor turns a local file into page text.
type DocumentExtractor interface {
	// Extensions returns the lowercase file extensions handled, e.g. ".pdf".
	Extensions() []string

	// ExtractPages returns the non-blank pages of the file in source order.
	// Pages that fail to extract are skipped.
	ExtractPages(ctx context.Context, path string) ([]domain.Page, error)

	// Priority returns the extractor priority (higher = more specific).
	Priority() int
}

// ExtractorRegistry selects an extractor by file extension.
// When multiple extractors match, the highest priority one is used.
type ExtractorRegistry interface {
	// Get returns the extractor for an extension, or nil.
	Get(ext string) DocumentExtractor

	// Register registers an extractor.
	Register(extractor DocumentExtractor)

	// Extensions returns all registered extensions.
	Extensions() []string
}
