package engine

import (
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The pipeline never mutates a table. It reads through this interface.
//
// Implementations:
//   Table    — an immutable, materialised fact table
//   SubView  — filtered subset (indices into parent, zero-copy)
//
// Filtering produces SubViews, so a filtered table shares the parent's
// records and keeps every column.
// ============================================================================

// RecordView provides indexed, read-only access to a table.
type RecordView interface {
	Len() int
	Columns() []Column
	HasColumn(name string) bool
	// Dimension returns the cell as a string. Measure cells are formatted;
	// undefined cells are "".
	Dimension(index int, key string) string
	// Measure returns the cell as a number and whether it is defined.
	// Dimension cells are parsed.
	Measure(index int, key string) (float64, bool)
}

// ============================================================================
// TABLE — materialised records
// ============================================================================

// Table is an immutable set of records with ordered, typed columns.
type Table struct {
	columns []Column
	kinds   map[string]ColumnKind
	records []Record
}

// NewTable creates a Table. The records slice is owned by the table afterwards.
func NewTable(columns []Column, records []Record) *Table {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		kinds:   make(map[string]ColumnKind, len(columns)),
		records: records,
	}
	for _, c := range columns {
		if _, dup := t.kinds[c.Name]; dup {
			continue
		}
		t.kinds[c.Name] = c.Kind
		t.columns = append(t.columns, c)
	}
	return t
}

func (t *Table) Len() int { return len(t.records) }

func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.kinds[name]
	return ok
}

func (t *Table) Dimension(i int, key string) string {
	if i < 0 || i >= len(t.records) {
		return ""
	}
	rec := t.records[i]
	if t.kinds[key] == KindMeasure {
		if v, ok := rec.Measures[key]; ok {
			return formatNumber(v)
		}
		return ""
	}
	return rec.Dimensions[key]
}

func (t *Table) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(t.records) {
		return 0, false
	}
	rec := t.records[i]
	if kind, ok := t.kinds[key]; ok && kind == KindDimension {
		return parseNumber(rec.Dimensions[key])
	}
	v, ok := rec.Measures[key]
	return v, ok
}

// Record returns a copy of the record at index i.
func (t *Table) Record(i int) Record {
	return t.records[i].clone()
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// It holds indices into the parent and copies no data.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Columns() []Column { return v.parent.Columns() }

func (v *SubView) HasColumn(name string) bool { return v.parent.HasColumn(name) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.indices) {
		return 0, false
	}
	return v.parent.Measure(v.indices[i], key)
}

// ============================================================================
// HELPERS
// ============================================================================

// ColumnNames returns the names of a view's columns in order.
func ColumnNames(view RecordView) []string {
	cols := view.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Materialize copies a view into a standalone Table.
func Materialize(view RecordView) *Table {
	cols := view.Columns()
	records := make([]Record, view.Len())
	for i := range records {
		rec := NewRecord()
		for _, c := range cols {
			if c.Kind == KindMeasure {
				if v, ok := view.Measure(i, c.Name); ok {
					rec.Measures[c.Name] = v
				}
				continue
			}
			rec.Dimensions[c.Name] = view.Dimension(i, c.Name)
		}
		records[i] = rec
	}
	return NewTable(cols, records)
}

// missingTokens are cell values treated as undefined.
var missingTokens = map[string]bool{
	"": true, "nan": true, "na": true, "n/a": true, "null": true, "none": true,
}

// IsMissing reports whether a raw cell value denotes a missing value.
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

func parseNumber(s string) (float64, bool) {
	if IsMissing(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
