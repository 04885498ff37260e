package mocks

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MockDocumentExtractor is a mock implementation of DocumentExtractor for testing
type MockDocumentExtractor struct {
	ExtensionsFn   func() []string
	PriorityFn     func() int
	ExtractPagesFn func(path string) ([]domain.Page, error)

	// Pages is returned when ExtractPagesFn is nil
	Pages []domain.Page
	Paths []string
}

func NewMockDocumentExtractor(pages ...domain.Page) *MockDocumentExtractor {
	return &MockDocumentExtractor{Pages: pages}
}

func (m *MockDocumentExtractor) Extensions() []string {
	if m.ExtensionsFn != nil {
		return m.ExtensionsFn()
	}
	return []string{".pdf", ".txt"}
}

func (m *MockDocumentExtractor) Priority() int {
	if m.PriorityFn != nil {
		return m.PriorityFn()
	}
	return 100
}

func (m *MockDocumentExtractor) ExtractPages(ctx context.Context, path string) ([]domain.Page, error) {
	m.Paths = append(m.Paths, path)
	if m.ExtractPagesFn != nil {
		return m.ExtractPagesFn(path)
	}
	return m.Pages, nil
}
