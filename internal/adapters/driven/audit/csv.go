// Package audit writes per-document CSV dumps of extracted chunks.
package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AuditExporter = (*CSVExporter)(nil)

// utf8BOM makes spreadsheet tools detect the encoding.
const utf8BOM = "\ufeff"

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Header is the column order of every audit file.
var Header = []string{
	"file_name", "page_num", "chunk_id", "chunk_type", "chunk_text", "keywords", "financial_keywords",
}

// CSVExporter writes {name}_extracted.csv files into a directory.
type CSVExporter struct {
	dir string
}

// NewCSVExporter creates an exporter writing into dir.
func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{dir: dir}
}

// FileName returns the audit file name for a source document.
func FileName(source string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return unsafeChars.ReplaceAllString(base, "_") + "_extracted.csv"
}

// Export writes one row per chunk and returns the file path.
func (e *CSVExporter) Export(ctx context.Context, fileName string, chunks []*domain.Chunk) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audit directory: %w", err)
	}

	path := filepath.Join(e.dir, FileName(fileName))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return "", fmt.Errorf("write audit file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return "", fmt.Errorf("write audit header: %w", err)
	}
	for _, c := range chunks {
		keywords, err := encodeList(c.Keywords)
		if err != nil {
			return "", err
		}
		financial, err := encodeList(c.FinancialKeywords)
		if err != nil {
			return "", err
		}
		record := []string{
			c.FileName,
			strconv.Itoa(c.PageNum),
			c.ChunkID,
			string(c.ChunkType),
			c.ChunkText,
			keywords,
			financial,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write audit row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush audit file: %w", err)
	}
	return path, nil
}

// encodeList renders a keyword list as JSON without HTML escaping.
func encodeList(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
