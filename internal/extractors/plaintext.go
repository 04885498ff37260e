package extractors

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentExtractor = (*PlaintextExtractor)(nil)

// PageBreak separates pages in plain text files.
const PageBreak = "\f"

// PlaintextExtractor reads text files, one page per form-feed separated section.
type PlaintextExtractor struct{}

func NewPlaintextExtractor() *PlaintextExtractor {
	return &PlaintextExtractor{}
}

func (e *PlaintextExtractor) Extensions() []string {
	return []string{".txt"}
}

func (e *PlaintextExtractor) Priority() int {
	return 10
}

func (e *PlaintextExtractor) ExtractPages(ctx context.Context, path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	var pages []domain.Page
	for i, text := range strings.Split(content, PageBreak) {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Num: i + 1, Text: text})
	}
	if len(pages) == 0 {
		return nil, domain.ErrNoText
	}
	return pages, nil
}
