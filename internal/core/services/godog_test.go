package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

type scenarioState struct {
	store    *mocks.MockChunkStore
	response *domain.SearchResponse
	verdict  postprocessors.NoiseVerdict
	pages    []domain.Page
	kept     int
	discard  domain.DiscardStats
}

func initializeScenario(sc *godog.ScenarioContext) {
	s := &scenarioState{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*s = scenarioState{store: mocks.NewMockChunkStore()}
		return ctx, nil
	})

	sc.Step(`^a stored chunk "([^"]*)" with similarity (\d+\.\d+), text "([^"]*)" and keywords "([^"]*)"$`, s.storedChunkWithSimilarity)
	sc.Step(`^a stored chunk "([^"]*)" with text "([^"]*)" and keywords "([^"]*)"$`, s.storedChunk)
	sc.Step(`^the vector index is unavailable$`, s.vectorIndexUnavailable)
	sc.Step(`^I search for "([^"]*)"$`, func(q string) error { return s.search(q, 0, true) })
	sc.Step(`^I search for "([^"]*)" with top (\d+)$`, func(q string, k int) error { return s.search(q, k, true) })
	sc.Step(`^I search for "([^"]*)" without keyword boost$`, func(q string) error { return s.search(q, 0, false) })
	sc.Step(`^the search path is "([^"]*)"$`, s.searchPathIs)
	sc.Step(`^the results are ranked "([^"]*)"$`, s.resultsRanked)
	sc.Step(`^result "([^"]*)" has similarity (\d+\.\d+)$`, s.resultHasSimilarity)

	sc.Step(`^the chunk text is "([^"]*)"$`, s.classify)
	sc.Step(`^the chunk is classified as "(noise|kept)"$`, s.classifiedAs)
	sc.Step(`^the pages:$`, s.thePages)
	sc.Step(`^the pages are processed$`, s.processPages)
	sc.Step(`^(\d+) chunks? survives?$`, s.survivors)
	sc.Step(`^(\d+) chunks? (?:is|are) discarded as (noise|short)$`, s.discarded)
}

func (s *scenarioState) newChunk(id, text, keywords string) *domain.Chunk {
	kws := strings.Split(keywords, ",")
	return &domain.Chunk{
		ID:                id,
		ChunkText:         text,
		Keywords:          kws,
		FinancialKeywords: postprocessors.FinancialKeywords(kws),
	}
}

func (s *scenarioState) storedChunkWithSimilarity(id string, sim float64, text, keywords string) error {
	c := s.newChunk(id, text, keywords)
	s.store.Add(c)
	if s.store.SimilarityResults == nil {
		s.store.SimilarityResults = []*domain.QueryResult{}
	}
	s.store.SimilarityResults = append(s.store.SimilarityResults, &domain.QueryResult{Chunk: *c, Similarity: sim})
	return nil
}

func (s *scenarioState) storedChunk(id, text, keywords string) error {
	s.store.Add(s.newChunk(id, text, keywords))
	return nil
}

func (s *scenarioState) vectorIndexUnavailable() error {
	s.store.SimilarityErr = errors.New("connection refused")
	return nil
}

func (s *scenarioState) search(question string, topK int, useKeywords bool) error {
	engine := NewRetrievalEngine(RetrievalEngineConfig{
		ChunkStore: s.store,
		Embedder:   mocks.NewMockEmbeddingService(),
		Keywords:   mocks.NewMockKeywordExtractor(),
	})
	req := domain.NewSearchRequest(question)
	req.TopK = topK
	req.UseKeywords = useKeywords

	resp, err := engine.Search(context.Background(), req)
	if err != nil {
		return err
	}
	s.response = resp
	return nil
}

func (s *scenarioState) searchPathIs(path string) error {
	if string(s.response.Path) != path {
		return fmt.Errorf("expected path %q, got %q", path, s.response.Path)
	}
	return nil
}

func (s *scenarioState) resultsRanked(order string) error {
	var got []string
	for _, r := range s.response.Results {
		got = append(got, r.ID)
	}
	if strings.Join(got, ",") != order {
		return fmt.Errorf("expected ranking %q, got %q", order, strings.Join(got, ","))
	}
	return nil
}

func (s *scenarioState) resultHasSimilarity(id string, want float64) error {
	for _, r := range s.response.Results {
		if r.ID != id {
			continue
		}
		if math.Abs(r.Similarity-want) > 1e-9 {
			return fmt.Errorf("result %s: expected similarity %.2f, got %.4f", id, want, r.Similarity)
		}
		return nil
	}
	return fmt.Errorf("result %s not found", id)
}

func (s *scenarioState) classify(text string) error {
	s.verdict = postprocessors.ClassifyNoise(text, postprocessors.DefaultNoisePatterns)
	return nil
}

func (s *scenarioState) classifiedAs(verdict string) error {
	want := verdict == "noise"
	if s.verdict.Noise != want {
		return fmt.Errorf("expected %s, got noise=%v (strong %v, weak %v)",
			verdict, s.verdict.Noise, s.verdict.Strong, s.verdict.Weak)
	}
	return nil
}

func (s *scenarioState) thePages(table *godog.Table) error {
	for i, row := range table.Rows[1:] {
		s.pages = append(s.pages, domain.Page{Num: i + 1, Text: row.Cells[0].Value})
	}
	return nil
}

func (s *scenarioState) processPages() error {
	pipeline := postprocessors.DefaultPipeline()
	for _, page := range s.pages {
		pr := pipeline.Process(page)
		s.kept += len(pr.Candidates)
		s.discard.Short += pr.Discarded.Short
		s.discard.Noise += pr.Discarded.Noise
	}
	return nil
}

func (s *scenarioState) survivors(n int) error {
	if s.kept != n {
		return fmt.Errorf("expected %d surviving chunks, got %d", n, s.kept)
	}
	return nil
}

func (s *scenarioState) discarded(n int, reason string) error {
	got := s.discard.Short
	if reason == "noise" {
		got = s.discard.Noise
	}
	if got != n {
		return fmt.Errorf("expected %d %s discards, got %d", n, reason, got)
	}
	return nil
}
