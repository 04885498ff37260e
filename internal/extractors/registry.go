package extractors

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry implements ExtractorRegistry with priority-based selection.
// When multiple extractors handle an extension, the highest priority one is used.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.DocumentExtractor
}

// NewRegistry creates a new extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make([]driven.DocumentExtractor, 0),
	}
}

// Register registers an extractor.
func (r *Registry) Register(extractor driven.DocumentExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, extractor)
}

// Get retrieves the best-matching extractor for a file extension.
// The extension may be given with or without the leading dot, in any case.
// Returns nil if no extractor is registered for it.
func (r *Registry) Get(ext string) driven.DocumentExtractor {
	ext = NormaliseExtension(ext)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.DocumentExtractor
	for _, e := range r.extractors {
		if !handles(e, ext) {
			continue
		}
		if best == nil || e.Priority() > best.Priority() {
			best = e
		}
	}
	return best
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for _, e := range r.extractors {
		for _, ext := range e.Extensions() {
			set[NormaliseExtension(ext)] = struct{}{}
		}
	}

	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// NormaliseExtension lower-cases ext and ensures a leading dot.
func NormaliseExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func handles(e driven.DocumentExtractor, ext string) bool {
	for _, supported := range e.Extensions() {
		if NormaliseExtension(supported) == ext {
			return true
		}
	}
	return false
}

// DefaultRegistry creates a registry with the built-in extractors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPDFExtractor(nil))
	r.Register(NewPlaintextExtractor())
	return r
}
