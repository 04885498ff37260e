package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/metrics"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// Ensure IngestionPipeline implements IngestionService
var _ driving.IngestionService = (*IngestionPipeline)(nil)

// IngestionPipeline turns one source document into persisted chunks:
//  1. Download to a scratch file
//  2. Extract page text
//  3. Normalise, split, and filter page text into chunk candidates
//  4. Extract tables (heuristic, at most one per page)
//  5. Extract keywords per chunk
//  6. Write the audit export
//  7. Embed all chunks in one batch
//  8. Persist
//
// Failures in download, embedding or persistence fail the job. Page, table,
// keyword and audit failures are logged and skipped.
type IngestionPipeline struct {
	store      driven.ObjectStore
	queue      driven.JobQueue
	extractors driven.ExtractorRegistry
	pages      *postprocessors.Pipeline
	keywords   driven.KeywordExtractor
	embedder   driven.EmbeddingService
	chunks     driven.ChunkStore
	audit      driven.AuditExporter
	scratchDir string
	jobTimeout time.Duration
	resultTTL  time.Duration
	logger     *slog.Logger
}

// IngestionPipelineConfig holds dependencies for IngestionPipeline.
type IngestionPipelineConfig struct {
	Store      driven.ObjectStore
	Queue      driven.JobQueue // Optional: only needed for Trigger and QueueStats
	Extractors driven.ExtractorRegistry
	Pages      *postprocessors.Pipeline // Optional: defaults to postprocessors.DefaultPipeline()
	Keywords   driven.KeywordExtractor  // Optional: falls back to the word heuristic
	Embedder   driven.EmbeddingService
	ChunkStore driven.ChunkStore
	Audit      driven.AuditExporter // Optional
	ScratchDir string               // Optional: defaults to os.TempDir()
	JobTimeout time.Duration        // Optional: defaults to domain.DefaultJobTimeout
	ResultTTL  time.Duration        // Optional: defaults to domain.DefaultResultTTL
	Logger     *slog.Logger
}

// NewIngestionPipeline creates a new ingestion pipeline.
func NewIngestionPipeline(cfg IngestionPipelineConfig) *IngestionPipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pages := cfg.Pages
	if pages == nil {
		pages = postprocessors.DefaultPipeline()
	}

	return &IngestionPipeline{
		store:      cfg.Store,
		queue:      cfg.Queue,
		extractors: cfg.Extractors,
		pages:      pages,
		keywords:   cfg.Keywords,
		embedder:   cfg.Embedder,
		chunks:     cfg.ChunkStore,
		audit:      cfg.Audit,
		scratchDir: cfg.ScratchDir,
		jobTimeout: cfg.JobTimeout,
		resultTTL:  cfg.ResultTTL,
		logger:     logger,
	}
}

// Trigger enqueues an ingestion job for key without touching the ledger.
func (p *IngestionPipeline) Trigger(ctx context.Context, key string) (*domain.Job, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("empty key: %w", domain.ErrInvalidInput)
	}
	if p.queue == nil {
		return nil, fmt.Errorf("no job queue configured: %w", domain.ErrServiceUnavailable)
	}
	if p.extractors.Get(path.Ext(key)) == nil {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrUnsupportedSource)
	}

	job := domain.NewIngestJob(key)
	if p.jobTimeout > 0 {
		job.Timeout = p.jobTimeout
	}
	if p.resultTTL > 0 {
		job.ResultTTL = p.resultTTL
	}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", key, err)
	}

	p.logger.Info("ingestion job triggered", "key", key, "job_id", job.ID)
	return job, nil
}

// QueueStats returns job registry counts.
func (p *IngestionPipeline) QueueStats(ctx context.Context) (*domain.QueueStats, error) {
	if p.queue == nil {
		return nil, fmt.Errorf("no job queue configured: %w", domain.ErrServiceUnavailable)
	}
	return p.queue.Stats(ctx)
}

// Process runs the full pipeline for one source key. A document that yields
// no chunks succeeds with Chunks = 0.
func (p *IngestionPipeline) Process(ctx context.Context, key string) (*domain.IngestResult, error) {
	start := time.Now()
	fileName := path.Base(key)
	ext := strings.ToLower(path.Ext(fileName))
	logger := p.logger.With("key", key)

	extractor := p.extractors.Get(ext)
	if extractor == nil {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrUnsupportedSource)
	}

	scratch, err := p.download(ctx, key, ext)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(scratch); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove scratch file", "path", scratch, "error", err)
		}
	}()

	result := &domain.IngestResult{FileName: fileName}

	pages, err := extractor.ExtractPages(ctx, scratch)
	if err != nil {
		if errors.Is(err, domain.ErrNoText) {
			logger.Warn("document has no extractable text")
			result.Duration = time.Since(start)
			return result, nil
		}
		return nil, fmt.Errorf("extract %s: %w", key, err)
	}
	result.Pages = len(pages)

	var chunks []*domain.Chunk
	for _, page := range pages {
		pr := p.pages.Process(page)
		result.Discarded.Short += pr.Discarded.Short
		result.Discarded.Noise += pr.Discarded.Noise
		if pr.Discarded.Noise > 0 {
			logger.Debug("skipped noise chunks", "page", page.Num, "count", pr.Discarded.Noise)
		}

		for _, c := range pr.Candidates {
			chunks = append(chunks, p.newChunk(ctx, fileName, page.Num, c.ChunkID(page.Num), c.Type, c.Text))
		}
	}

	for _, page := range pages {
		table, err := postprocessors.ExtractTable(page)
		if err != nil {
			logger.Debug("skipping unparseable table", "page", page.Num, "error", err)
			continue
		}
		if table == nil {
			continue
		}
		text, err := postprocessors.TableCSV(table)
		if err != nil {
			logger.Debug("skipping unserialisable table", "page", page.Num, "error", err)
			continue
		}
		result.Tables++
		chunks = append(chunks, p.newChunk(ctx, fileName, page.Num, domain.TableChunkID(page.Num), domain.ChunkTypeTable, text))
	}

	metrics.ChunksDiscardedTotal.WithLabelValues("short").Add(float64(result.Discarded.Short))
	metrics.ChunksDiscardedTotal.WithLabelValues("noise").Add(float64(result.Discarded.Noise))

	logger.Info("extracted chunks",
		"pages", result.Pages,
		"tables", result.Tables,
		"chunks", len(chunks),
		"discarded_short", result.Discarded.Short,
		"discarded_noise", result.Discarded.Noise,
	)

	if p.audit != nil {
		auditPath, err := p.audit.Export(ctx, fileName, chunks)
		if err != nil {
			logger.Warn("audit export failed", "error", err)
		} else {
			result.AuditPath = auditPath
		}
	}

	if len(chunks) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	if err := p.embed(ctx, chunks); err != nil {
		return nil, err
	}

	if err := p.chunks.BulkInsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("insert %d chunks for %s: %w: %w", len(chunks), key, domain.ErrPersistFailed, err)
	}
	for _, c := range chunks {
		metrics.ChunksPersistedTotal.WithLabelValues(string(c.ChunkType)).Inc()
	}

	result.Chunks = len(chunks)
	result.Duration = time.Since(start)
	logger.Info("document ingested", "chunks", result.Chunks, "duration", result.Duration)
	return result, nil
}

// download copies the object into a scratch file with the key's extension.
// The caller removes the file.
func (p *IngestionPipeline) download(ctx context.Context, key, ext string) (string, error) {
	body, err := p.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("get %s: %w: %w", key, domain.ErrDownloadFailed, err)
	}
	defer body.Close()

	f, err := os.CreateTemp(p.scratchDir, "docqa-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w: %w", domain.ErrDownloadFailed, err)
	}
	name := f.Name()

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("copy %s: %w: %w", key, domain.ErrDownloadFailed, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close scratch file: %w: %w", domain.ErrDownloadFailed, err)
	}
	return name, nil
}

func (p *IngestionPipeline) newChunk(ctx context.Context, fileName string, page int, chunkID string, chunkType domain.ChunkType, text string) *domain.Chunk {
	keywords := extractKeywords(ctx, p.keywords, p.logger, text, domain.ChunkKeywordCount)
	return &domain.Chunk{
		ID:                uuid.NewString(),
		FileName:          fileName,
		PageNum:           page,
		ChunkID:           chunkID,
		ChunkType:         chunkType,
		ChunkText:         text,
		Keywords:          keywords,
		FinancialKeywords: postprocessors.FinancialKeywords(keywords),
		CreatedAt:         time.Now(),
	}
}

// embed attaches one vector to every chunk using a single batch call.
func (p *IngestionPipeline) embed(ctx context.Context, chunks []*domain.Chunk) error {
	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = c.EmbeddingInput()
	}

	vectors, err := p.embedder.Embed(ctx, inputs)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w: %w", len(inputs), domain.ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding returned %d vectors for %d chunks: %w", len(vectors), len(chunks), domain.ErrEmbeddingFailed)
	}
	for i, c := range chunks {
		c.Embedding = vectors[i]
	}
	return nil
}
