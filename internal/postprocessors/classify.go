package postprocessors

import (
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ClassifyType labels a chunk as table when it carries tab characters, or
// more than ten double-space runs across several lines.
func ClassifyType(text string) domain.ChunkType {
	if strings.Contains(text, "\t") {
		return domain.ChunkTypeTable
	}
	if strings.Count(text, "  ") > 10 && strings.Contains(text, "\n") {
		return domain.ChunkTypeTable
	}
	return domain.ChunkTypeText
}
