package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// InsertPageSize is the number of rows written per insert batch.
const InsertPageSize = 50

const chunkColumns = `id, file_name, page_num, chunk_id, chunk_type, chunk_text, keywords, financial_keywords, created_at`

// ChunkStore implements driven.ChunkStore on PostgreSQL with pgvector.
// Keyword lists are stored as JSON text so they can be matched with ILIKE.
type ChunkStore struct {
	db     *DB
	logger *slog.Logger
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB, logger *slog.Logger) *ChunkStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkStore{db: db, logger: logger}
}

// BulkInsert writes all chunks in one transaction, InsertPageSize rows per statement.
func (s *ChunkStore) BulkInsert(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(chunks); start += InsertPageSize {
			end := min(start+InsertPageSize, len(chunks))
			page := chunks[start:end]

			args := make([]interface{}, 0, len(page)*10)
			for _, c := range page {
				keywords, err := encodeKeywords(c.Keywords)
				if err != nil {
					return err
				}
				financial, err := encodeKeywords(c.FinancialKeywords)
				if err != nil {
					return err
				}
				args = append(args,
					c.ID,
					c.FileName,
					c.PageNum,
					c.ChunkID,
					string(c.ChunkType),
					c.ChunkText,
					keywords,
					financial,
					pgvector.NewVector(c.Embedding),
					c.CreatedAt,
				)
			}

			if _, err := tx.ExecContext(ctx, insertQuery(len(page)), args...); err != nil {
				return fmt.Errorf("insert rows %d-%d: %w", start, end, err)
			}
		}
		return nil
	})
}

// insertQuery builds a multi-row INSERT for n chunks.
func insertQuery(n int) string {
	var b strings.Builder
	b.WriteString(`INSERT INTO document_vectors (id, file_name, page_num, chunk_id, chunk_type, chunk_text, keywords, financial_keywords, embedding, created_at) VALUES `)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * 10
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
	}
	return b.String()
}

// SimilaritySearch returns chunks whose cosine similarity to vec exceeds threshold.
func (s *ChunkStore) SimilaritySearch(ctx context.Context, vec []float32, threshold float64, limit int) ([]*domain.QueryResult, error) {
	query := `
		SELECT ` + chunkColumns + `, 1 - (embedding <=> $1) AS similarity
		FROM document_vectors
		WHERE 1 - (embedding <=> $1) > $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vec), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []*domain.QueryResult
	for rows.Next() {
		var r domain.QueryResult
		if err := s.scanChunk(rows, &r.Chunk, &r.Similarity); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// SubstringSearch returns chunks whose text or stored keywords contain any
// term, case-insensitively.
func (s *ChunkStore) SubstringSearch(ctx context.Context, terms []string, limit int) ([]*domain.Chunk, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + chunkColumns + `
		FROM document_vectors
		WHERE keywords ILIKE ANY($1)
		   OR financial_keywords ILIKE ANY($1)
		   OR chunk_text ILIKE ANY($1)
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(likePatterns(terms)), limit)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := s.scanChunk(rows, &c); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// Stats returns corpus counts and the newest insert time.
func (s *ChunkStore) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	var (
		stats domain.CorpusStats
		last  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT file_name), MAX(created_at)
		FROM document_vectors
	`).Scan(&stats.TotalChunks, &stats.UniqueFiles, &last)
	if err != nil {
		return nil, fmt.Errorf("corpus stats: %w", err)
	}
	stats.LastUpdate = TimePtr(last)
	return &stats, nil
}

// Ping checks if the database is reachable
func (s *ChunkStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *ChunkStore) scanChunk(rows *sql.Rows, c *domain.Chunk, extra ...interface{}) error {
	var (
		chunkType string
		keywords  string
		financial string
	)
	dest := []interface{}{
		&c.ID, &c.FileName, &c.PageNum, &c.ChunkID, &chunkType, &c.ChunkText,
		&keywords, &financial, &c.CreatedAt,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return fmt.Errorf("scan chunk: %w", err)
	}
	c.ChunkType = domain.ChunkType(chunkType)
	c.Keywords = s.decodeKeywords(c.ID, keywords)
	c.FinancialKeywords = s.decodeKeywords(c.ID, financial)
	return nil
}

func encodeKeywords(keywords []string) (string, error) {
	if keywords == nil {
		keywords = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(keywords); err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// decodeKeywords parses a stored keyword list. Malformed values yield an
// empty list.
func (s *ChunkStore) decodeKeywords(id, raw string) []string {
	keywords := []string{}
	if raw == "" {
		return keywords
	}
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		s.logger.Debug("malformed stored keywords", "id", id, "error", err)
		return []string{}
	}
	return keywords
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePatterns wraps each term as an escaped %term% pattern.
func likePatterns(terms []string) []string {
	patterns := make([]string, len(terms))
	for i, t := range terms {
		patterns[i] = "%" + likeEscaper.Replace(t) + "%"
	}
	return patterns
}
