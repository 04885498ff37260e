package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IngestionService handles document ingestion
type IngestionService interface {
	// Trigger enqueues an ingestion job for a source key.
	// The dispatched-key ledger is not touched.
	Trigger(ctx context.Context, key string) (*domain.Job, error)

	// Process runs the ingestion pipeline for a key inline.
	Process(ctx context.Context, key string) (*domain.IngestResult, error)

	// QueueStats returns job registry counts
	QueueStats(ctx context.Context) (*domain.QueueStats, error)
}
