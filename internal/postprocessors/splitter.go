package postprocessors

import (
	"strings"
	"unicode/utf8"
)

// SplitterConfig configures the recursive character splitter.
type SplitterConfig struct {
	// ChunkSize is the maximum characters per chunk
	ChunkSize int

	// Overlap is the character overlap between consecutive chunks
	Overlap int

	// Separators are tried in priority order. A hard character cut is
	// always the last resort.
	Separators []string
}

// DefaultSplitterConfig returns the ingestion defaults.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:  800,
		Overlap:    150,
		Separators: []string{"\n\n", "\n", " "},
	}
}

// Splitter splits text recursively: it breaks on the highest priority
// separator present, merges adjacent pieces up to ChunkSize with Overlap,
// and re-splits oversized pieces with the remaining separators.
// Lengths are measured in characters, not bytes. Output is deterministic.
type Splitter struct {
	config     SplitterConfig
	separators []string
}

// NewSplitter creates a splitter with the given config.
func NewSplitter(config SplitterConfig) *Splitter {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultSplitterConfig().ChunkSize
	}
	if config.Overlap < 0 || config.Overlap >= config.ChunkSize {
		config.Overlap = 0
	}
	seps := make([]string, 0, len(config.Separators)+1)
	for _, s := range config.Separators {
		if s != "" {
			seps = append(seps, s)
		}
	}
	seps = append(seps, "")
	return &Splitter{config: config, separators: seps}
}

// Split returns the chunks of text in order.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.config.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge joins small pieces into chunks no longer than ChunkSize, carrying
// up to Overlap characters of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.config.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.config.Overlap || (total+n > s.config.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. An empty sep splits into characters.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
