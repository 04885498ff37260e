package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// AuditExporter writes a flat per-document dump of extracted chunks.
type AuditExporter interface {
	// Export writes the chunks of fileName and returns the written path.
	Export(ctx context.Context, fileName string, chunks []*domain.Chunk) (string, error)
}
