package mocks

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MockChunkStore is a mock implementation of ChunkStore for testing.
// Similarity search computes cosine similarity over stored embeddings.
type MockChunkStore struct {
	mu     sync.RWMutex
	chunks []*domain.Chunk

	InsertErr     error
	SimilarityErr error
	SubstringErr  error

	// SimilarityResults, when set, is returned by SimilaritySearch as is
	SimilarityResults []*domain.QueryResult

	SimilarityCalls int
	SubstringCalls  int
	LastLimit       int
}

// NewMockChunkStore creates a new MockChunkStore
func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{}
}

func (m *MockChunkStore) BulkInsert(ctx context.Context, chunks []*domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *MockChunkStore) SimilaritySearch(ctx context.Context, vec []float32, threshold float64, limit int) ([]*domain.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SimilarityCalls++
	m.LastLimit = limit
	if m.SimilarityErr != nil {
		return nil, m.SimilarityErr
	}
	if m.SimilarityResults != nil {
		return m.SimilarityResults, nil
	}

	var results []*domain.QueryResult
	for _, c := range m.chunks {
		sim := cosine(vec, c.Embedding)
		if sim > threshold {
			results = append(results, &domain.QueryResult{Chunk: *c, Similarity: sim})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockChunkStore) SubstringSearch(ctx context.Context, terms []string, limit int) ([]*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubstringCalls++
	m.LastLimit = limit
	if m.SubstringErr != nil {
		return nil, m.SubstringErr
	}

	var results []*domain.Chunk
	for _, c := range m.chunks {
		haystack := strings.ToLower(c.ChunkText + " " + strings.Join(c.Keywords, " ") + " " + strings.Join(c.FinancialKeywords, " "))
		for _, term := range terms {
			if strings.Contains(haystack, strings.ToLower(term)) {
				results = append(results, c)
				break
			}
		}
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (m *MockChunkStore) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := make(map[string]struct{})
	var last *time.Time
	for _, c := range m.chunks {
		files[c.FileName] = struct{}{}
		if last == nil || c.CreatedAt.After(*last) {
			t := c.CreatedAt
			last = &t
		}
	}
	return &domain.CorpusStats{
		TotalChunks: len(m.chunks),
		UniqueFiles: len(files),
		LastUpdate:  last,
	}, nil
}

func (m *MockChunkStore) Ping(ctx context.Context) error {
	return nil
}

// Helper methods for testing

func (m *MockChunkStore) Add(chunks ...*domain.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
}

func (m *MockChunkStore) All() []*domain.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Chunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

func (m *MockChunkStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func (m *MockChunkStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
