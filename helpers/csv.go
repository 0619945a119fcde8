package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/spektr-org/factboard/engine"
	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// CSV HELPER — Parses CSV data into an engine.Table
// ============================================================================
// The caller reads the CSV from wherever it lives. This helper converts the
// raw bytes into a Table using the dataset schema: the measure and numeric
// columns become measure columns, every other column passes through as a
// dimension. Malformed rows are skipped and counted.
// ============================================================================

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("csv has no header row")

// ParseCSV parses CSV bytes into a Table classified by ds.
// It returns the number of malformed rows that were skipped.
func ParseCSV(data []byte, ds schema.Dataset) (*engine.Table, int, error) {
	headers, rows, skipped, err := readCSV(data)
	if err != nil {
		return nil, 0, err
	}
	kinds := make([]engine.ColumnKind, len(headers))
	for i, h := range headers {
		if ds.IsNumeric(h) {
			kinds[i] = engine.KindMeasure
		}
	}
	return buildTable(headers, kinds, rows), skipped, nil
}

// ParseCSVAuto parses CSV without a schema. A column whose non-missing values
// all parse as numbers becomes a measure column.
func ParseCSVAuto(data []byte) (*engine.Table, int, error) {
	headers, rows, skipped, err := readCSV(data)
	if err != nil {
		return nil, 0, err
	}
	kinds := make([]engine.ColumnKind, len(headers))
	for i := range headers {
		numeric, seen := true, false
		for _, row := range rows {
			val := row[i]
			if engine.IsMissing(val) {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err != nil {
				numeric = false
				break
			}
		}
		if numeric && seen {
			kinds[i] = engine.KindMeasure
		}
	}
	return buildTable(headers, kinds, rows), skipped, nil
}

func readCSV(data []byte) ([]string, [][]string, int, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))

	// Read header
	raw, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, 0, ErrNoHeader
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	headers := make([]string, len(raw))
	for i, h := range raw {
		headers[i] = toSnakeCase(strings.TrimSpace(h))
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("unnamed_%d", i)
		}
	}

	// Read rows
	var rows [][]string
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue // skip malformed rows
			}
			return nil, nil, 0, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return headers, rows, skipped, nil
}

func buildTable(headers []string, kinds []engine.ColumnKind, rows [][]string) *engine.Table {
	columns := make([]engine.Column, len(headers))
	for i, h := range headers {
		columns[i] = engine.Column{Name: h, Kind: kinds[i]}
	}

	// First occurrence wins for duplicate headers.
	first := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, ok := first[h]; !ok {
			first[h] = i
		}
	}

	records := make([]engine.Record, 0, len(rows))
	for _, row := range rows {
		rec := engine.NewRecord()
		for i, val := range row {
			if first[headers[i]] != i {
				continue
			}
			val = strings.TrimSpace(val)
			if kinds[i] == engine.KindMeasure {
				if engine.IsMissing(val) {
					continue
				}
				if f, err := strconv.ParseFloat(val, 64); err == nil {
					rec.Measures[headers[i]] = f
				}
				continue
			}
			rec.Dimensions[headers[i]] = val
		}
		records = append(records, rec)
	}
	return engine.NewTable(columns, records)
}

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}

	s = strings.ToLower(result.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
