package engine

import (
	"strconv"
	"strings"
)

// ============================================================================
// PROFILE — Data explorer summary of a table
// ============================================================================
// Per column: inferred dtype, distinct count and missing count, plus a
// preview of the first rows. Type detection follows the usual dataframe
// rules: all-integer columns are int64, an integer column with gaps becomes
// float64, anything non-numeric is object.
// ============================================================================

// DefaultPreviewRows is the preview size when none is given.
const DefaultPreviewRows = 300

// Column dtypes reported by ProfileTable.
const (
	DTypeInt64   = "int64"
	DTypeFloat64 = "float64"
	DTypeObject  = "object"
)

// ColumnProfile summarises one column.
type ColumnProfile struct {
	Name    string `json:"name"`
	DType   string `json:"dtype"`
	Unique  int    `json:"nUnique"`
	Missing int    `json:"nMissing"`
}

// Profile is the explorer view of a table.
type Profile struct {
	Rows    int             `json:"rows"`
	Columns int             `json:"columns"`
	Summary []ColumnProfile `json:"summary"`
	Preview *RowSet         `json:"preview"`
}

// ProfileTable summarises view. previewRows <= 0 uses DefaultPreviewRows.
func ProfileTable(view RecordView, previewRows int) *Profile {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	cols := ColumnNames(view)

	p := &Profile{
		Rows:    view.Len(),
		Columns: len(cols),
		Summary: make([]ColumnProfile, 0, len(cols)),
	}
	for _, c := range view.Columns() {
		p.Summary = append(p.Summary, profileColumn(view, c))
	}

	n := min(previewRows, view.Len())
	p.Preview = &RowSet{Columns: cols, Rows: make([][]string, 0, n)}
	for i := 0; i < n; i++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = view.Dimension(i, c)
		}
		p.Preview.Rows = append(p.Preview.Rows, row)
	}
	return p
}

func profileColumn(view RecordView, col Column) ColumnProfile {
	cp := ColumnProfile{Name: col.Name}
	seen := make(map[string]bool)
	allInt, allNum := true, true

	for i := 0; i < view.Len(); i++ {
		raw := view.Dimension(i, col.Name)
		if IsMissing(raw) {
			cp.Missing++
			continue
		}
		if !seen[raw] {
			seen[raw] = true
			if allNum {
				allInt, allNum = detectNumeric(raw, allInt)
			}
		}
	}
	cp.Unique = len(seen)

	switch {
	case len(seen) == 0:
		cp.DType = DTypeFloat64
	case !allNum:
		cp.DType = DTypeObject
	case allInt && cp.Missing == 0:
		cp.DType = DTypeInt64
	default:
		cp.DType = DTypeFloat64
	}
	return cp
}

// detectNumeric reports whether s keeps the column integer and numeric.
func detectNumeric(s string, allInt bool) (bool, bool) {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return allInt, true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false, true
	}
	return false, false
}
