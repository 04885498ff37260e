package postprocessors

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MinTableLines is the number of table-like lines a page needs before a
// table is extracted from it. A page must have more than this many.
const MinTableLines = 2

// ErrRaggedTable is returned when a data row is wider than the header.
var ErrRaggedTable = errors.New("row wider than header")

// ExtractTable recovers at most one table from raw page text. Lines holding
// a tab or a double space are table-like; when there are more than
// MinTableLines of them, the non-blank ones are split on whitespace and the
// first becomes the header. Short rows are padded with empty cells.
// Returns nil, nil when the page has no table.
func ExtractTable(page domain.Page) (*domain.Table, error) {
	var tableLines []string
	for _, line := range strings.Split(page.Text, "\n") {
		if strings.Contains(line, "\t") || strings.Contains(line, "  ") {
			tableLines = append(tableLines, line)
		}
	}
	if len(tableLines) <= MinTableLines {
		return nil, nil
	}

	var rows [][]string
	for _, line := range tableLines {
		if fields := strings.Fields(line); len(fields) > 0 {
			rows = append(rows, fields)
		}
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	data := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, fmt.Errorf("page %d row %d: %d cells, header has %d: %w",
				page.Num, i+1, len(row), len(header), ErrRaggedTable)
		}
		padded := make([]string, len(header))
		copy(padded, row)
		data = append(data, padded)
	}

	return &domain.Table{PageNum: page.Num, Header: header, Rows: data}, nil
}

// TableCSV serialises a table as CSV text, header first.
func TableCSV(t *domain.Table) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return "", err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}
