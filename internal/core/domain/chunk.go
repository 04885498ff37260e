package domain

import (
	"fmt"
	"strings"
	"time"
)

// MinChunkLength is the shortest text chunk that is ever persisted.
const MinChunkLength = 100

// ChunkType classifies the content of a chunk
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeTable ChunkType = "table"
)

// Chunk is the unit of retrieval: a bounded span of page text or a serialised table.
type Chunk struct {
	ID                string    `json:"id"`
	FileName          string    `json:"file_name"`
	PageNum           int       `json:"page_num"`
	ChunkID           string    `json:"chunk_id"` // {type}_{page}_{index}, unique within a file
	ChunkType         ChunkType `json:"chunk_type"`
	ChunkText         string    `json:"chunk_text"`
	Keywords          []string  `json:"keywords"`           // extractor rank order
	FinancialKeywords []string  `json:"financial_keywords"` // subset of Keywords
	Embedding         []float32 `json:"embedding,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// TextChunkID builds the per-file chunk identifier for a split page chunk.
// index is 1-based.
func TextChunkID(chunkType ChunkType, page, index int) string {
	return fmt.Sprintf("%s_%d_%d", chunkType, page, index)
}

// TableChunkID builds the identifier of the table extracted from a page.
func TableChunkID(page int) string {
	return fmt.Sprintf("%s_%d", ChunkTypeTable, page)
}

// EmbeddingInput returns the text that represents this chunk in vector space:
// the space-joined keywords, or the first 100 characters of the raw text when
// no keywords were extracted.
func (c *Chunk) EmbeddingInput() string {
	if len(c.Keywords) > 0 {
		return strings.Join(c.Keywords, " ")
	}
	return truncateRunes(c.ChunkText, 100)
}

// Page is the raw text of one source page.
type Page struct {
	Num  int    `json:"num"` // 1-based
	Text string `json:"text"`
}

// Table is a row/column structure recovered from a page.
type Table struct {
	PageNum int        `json:"page_num"`
	Header  []string   `json:"header"`
	Rows    [][]string `json:"rows"`
}

// DiscardStats counts chunks dropped by the ingestion filters.
type DiscardStats struct {
	Short int `json:"short"`
	Noise int `json:"noise"`
}

// IngestResult summarises one processed document.
type IngestResult struct {
	FileName  string        `json:"file_name"`
	Pages     int           `json:"pages"`
	Tables    int           `json:"tables"`
	Chunks    int           `json:"chunks"`
	Discarded DiscardStats  `json:"discarded"`
	AuditPath string        `json:"audit_path,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// CorpusStats describes the contents of the chunk store.
type CorpusStats struct {
	TotalChunks    int        `json:"total_chunks"`
	UniqueFiles    int        `json:"unique_files"`
	EmbeddingModel string     `json:"embedding_model"`
	LastUpdate     *time.Time `json:"last_update"`
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
