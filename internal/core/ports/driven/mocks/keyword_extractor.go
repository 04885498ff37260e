package mocks

import (
	"context"
	"strings"
)

// MockKeywordExtractor is a mock implementation of KeywordExtractor for testing.
// By default it returns the first topN distinct lowercase words.
type MockKeywordExtractor struct {
	ExtractFn func(text string, topN int) ([]string, error)
	Err       error
	Calls     int
}

func NewMockKeywordExtractor() *MockKeywordExtractor {
	return &MockKeywordExtractor{}
}

func (m *MockKeywordExtractor) Extract(ctx context.Context, text string, topN int) ([]string, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.ExtractFn != nil {
		return m.ExtractFn(text, topN)
	}

	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:?!()\"'")
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == topN {
			break
		}
	}
	return out, nil
}
