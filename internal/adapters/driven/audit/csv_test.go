package audit

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"annual.pdf", "annual_extracted.csv"},
		{"Q3: results?.pdf", "Q3_ results__extracted.csv"},
		{`a<b>c|d*e"f.txt`, "a_b_c_d_e_f_extracted.csv"},
		{"report.v2.pdf", "report.v2_extracted.csv"},
		{"noext", "noext_extracted.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.source))
		})
	}
}

func TestCSVExporter_Export(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	e := NewCSVExporter(dir)

	chunks := []*domain.Chunk{
		{
			FileName:          "annual.pdf",
			PageNum:           3,
			ChunkID:           "text_3_1",
			ChunkType:         domain.ChunkTypeText,
			ChunkText:         "Revenue grew, driven by \"exports\"",
			Keywords:          []string{"revenue", "exports"},
			FinancialKeywords: []string{"revenue"},
		},
		{
			FileName:  "annual.pdf",
			PageNum:   4,
			ChunkID:   "table_4",
			ChunkType: domain.ChunkTypeTable,
			ChunkText: "Year,Revenue\n2023,10\n",
		},
	}

	path, err := e.Export(context.Background(), "annual.pdf", chunks)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "annual_extracted.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), utf8BOM), "file starts with a BOM")

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{
		"annual.pdf", "3", "text_3_1", "text", "Revenue grew, driven by \"exports\"",
		`["revenue","exports"]`, `["revenue"]`,
	}, records[1])
	assert.Equal(t, []string{
		"annual.pdf", "4", "table_4", "table", "Year,Revenue\n2023,10\n", `[]`, `[]`,
	}, records[2])
}

func TestCSVExporter_ExportEmpty(t *testing.T) {
	e := NewCSVExporter(t.TempDir())

	path, err := e.Export(context.Background(), "blank.pdf", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\ufefffile_name,page_num,chunk_id,chunk_type,chunk_text,keywords,financial_keywords\n", string(data))
}

func TestCSVExporter_ExportKeepsAmpersands(t *testing.T) {
	e := NewCSVExporter(t.TempDir())

	path, err := e.Export(context.Background(), "annual.pdf", []*domain.Chunk{{
		FileName:          "annual.pdf",
		PageNum:           1,
		ChunkID:           "text_1_1",
		ChunkType:         domain.ChunkTypeText,
		ChunkText:         "R&D spend rose",
		Keywords:          []string{"r&d", "<spend>"},
		FinancialKeywords: []string{"p&l"},
	}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `["r&d","<spend>"]`, records[1][5])
	assert.Equal(t, `["p&l"]`, records[1][6])
}
