package postprocessors

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Candidate is a chunk that survived the page filters, before keywords
// and embeddings are attached.
type Candidate struct {
	// Index is the 1-based position in the page's split sequence,
	// counted before filtering
	Index int
	Type  domain.ChunkType
	Text  string
}

// ChunkID returns the per-file identifier of the candidate.
func (c Candidate) ChunkID(page int) string {
	return domain.TextChunkID(c.Type, page, c.Index)
}

// PageResult holds the candidates of one page and what was dropped.
type PageResult struct {
	PageNum    int
	Candidates []Candidate
	Discarded  domain.DiscardStats
}

// PipelineConfig configures the page pipeline.
type PipelineConfig struct {
	Splitter       SplitterConfig
	MinChunkLength int
	NoisePatterns  []NoisePattern
}

// DefaultPipelineConfig returns the ingestion defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Splitter:       DefaultSplitterConfig(),
		MinChunkLength: domain.MinChunkLength,
		NoisePatterns:  DefaultNoisePatterns,
	}
}

// Pipeline turns page text into classified chunk candidates:
// normalise, split, length filter, type classification, noise filter.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	splitter  *Splitter
	minLength int
	patterns  []NoisePattern
}

// NewPipeline creates a new page pipeline.
func NewPipeline(config PipelineConfig) *Pipeline {
	if config.MinChunkLength <= 0 {
		config.MinChunkLength = domain.MinChunkLength
	}
	if config.NoisePatterns == nil {
		config.NoisePatterns = DefaultNoisePatterns
	}
	return &Pipeline{
		splitter:  NewSplitter(config.Splitter),
		minLength: config.MinChunkLength,
		patterns:  config.NoisePatterns,
	}
}

// DefaultPipeline creates a pipeline with the default configuration.
func DefaultPipeline() *Pipeline {
	return NewPipeline(DefaultPipelineConfig())
}

// Process runs one page through the pipeline.
func (p *Pipeline) Process(page domain.Page) PageResult {
	result := PageResult{PageNum: page.Num}

	for i, text := range p.splitter.Split(Normalise(page.Text)) {
		if runeLen(text) < p.minLength {
			result.Discarded.Short++
			continue
		}
		if ClassifyNoise(text, p.patterns).Noise {
			result.Discarded.Noise++
			continue
		}
		result.Candidates = append(result.Candidates, Candidate{
			Index: i + 1,
			Type:  ClassifyType(text),
			Text:  text,
		})
	}

	return result
}
