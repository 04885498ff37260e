package mocks

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MockAuditExporter records exports for testing
type MockAuditExporter struct {
	Err      error
	Exported map[string][]*domain.Chunk
}

func NewMockAuditExporter() *MockAuditExporter {
	return &MockAuditExporter{Exported: make(map[string][]*domain.Chunk)}
}

func (m *MockAuditExporter) Export(ctx context.Context, fileName string, chunks []*domain.Chunk) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Exported[fileName] = chunks
	return "/audit/" + fileName + "_extracted.csv", nil
}
