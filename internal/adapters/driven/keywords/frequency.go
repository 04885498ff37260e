package keywords

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KeywordExtractor = (*FrequencyExtractor)(nil)

// FrequencyExtractor ranks single words by stopword-filtered term frequency.
// Ties keep first-occurrence order, so output is deterministic. Multi-word
// phrases are not produced: each query keyword scores its own boost.
type FrequencyExtractor struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	minLength    int
}

// NewFrequencyExtractor creates an extractor with the English stopword list.
func NewFrequencyExtractor() *FrequencyExtractor {
	return &FrequencyExtractor{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
		minLength:    3,
	}
}

type candidate struct {
	term  string
	score float64
	first int
}

// Extract returns up to topN keywords, best first.
func (e *FrequencyExtractor) Extract(ctx context.Context, text string, topN int) ([]string, error) {
	if topN <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)

	byTerm := make(map[string]*candidate)
	order := 0
	for _, tok := range tokens {
		if !e.keep(tok) {
			continue
		}
		c, ok := byTerm[tok]
		if !ok {
			c = &candidate{term: tok, first: order}
			byTerm[tok] = c
			order++
		}
		c.score++
	}

	candidates := make([]*candidate, 0, len(byTerm))
	for _, c := range byTerm {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].first < candidates[j].first
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.term
	}
	return out, nil
}

func (e *FrequencyExtractor) keep(tok string) bool {
	if len([]rune(tok)) < e.minLength {
		return false
	}
	_, stop := e.stopwords[tok]
	return !stop
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into",
		"about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own",
		"same", "too", "very", "can", "will", "just", "don", "should", "now", "what", "which", "who", "whom",
		"how", "why", "when", "where", "our", "ours", "we", "you", "your", "they", "their", "them", "has",
		"have", "had", "having", "does", "did", "doing", "not", "nor", "only", "also", "all", "any", "both",
		"each", "few", "more", "most", "other", "some", "there", "here", "while", "would", "could", "per",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
