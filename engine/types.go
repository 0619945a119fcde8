package engine

import (
	"encoding/json"
	"math"
	"slices"
)

// ============================================================================
// FACTBOARD ENGINE TYPES — Tables, Records, Results
// ============================================================================
// Records keep a split between string dimensions and numeric
// measures. A measure that is absent from Record.Measures is undefined: it
// contributes nothing to sums and means.
// ============================================================================

// Record is a single fact row with string dimensions and numeric measures.
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// NewRecord returns a Record with initialised maps.
func NewRecord() Record {
	return Record{
		Dimensions: make(map[string]string),
		Measures:   make(map[string]float64),
	}
}

func (r Record) clone() Record {
	out := Record{
		Dimensions: make(map[string]string, len(r.Dimensions)),
		Measures:   make(map[string]float64, len(r.Measures)),
	}
	for k, v := range r.Dimensions {
		out.Dimensions[k] = v
	}
	for k, v := range r.Measures {
		out.Measures[k] = v
	}
	return out
}

// ColumnKind says whether a column holds strings or numbers.
type ColumnKind int

const (
	KindDimension ColumnKind = iota
	KindMeasure
)

func (k ColumnKind) String() string {
	if k == KindMeasure {
		return "measure"
	}
	return "dimension"
}

// Column is a named, typed table column.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// ============================================================================
// RESULT TABLES
// ============================================================================

// ResultRow is one group of an aggregate table.
// Values line up with ResultTable.ValueColumns; NaN marks an undefined value.
type ResultRow struct {
	Keys   []string  `json:"keys"`
	Values []float64 `json:"values"`
}

// MarshalJSON writes NaN values as null.
func (r ResultRow) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(r.Values))
	for i, v := range r.Values {
		if !math.IsNaN(v) {
			values[i] = &r.Values[i]
		}
	}
	return json.Marshal(struct {
		Keys   []string   `json:"keys"`
		Values []*float64 `json:"values"`
	}{r.Keys, values})
}

// ResultTable is an aggregate keyed by one or more dimension columns.
type ResultTable struct {
	KeyColumns   []string    `json:"keyColumns"`
	ValueColumns []string    `json:"valueColumns"`
	Rows         []ResultRow `json:"rows"`
}

// Len returns the number of rows.
func (t *ResultTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Lookup returns the first value column for a key tuple.
func (t *ResultTable) Lookup(keys ...string) (float64, bool) {
	return t.LookupColumn(t.firstValueColumn(), keys...)
}

// LookupColumn returns the named value column for a key tuple.
func (t *ResultTable) LookupColumn(column string, keys ...string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	idx := slices.Index(t.ValueColumns, column)
	if idx < 0 {
		return 0, false
	}
	for _, row := range t.Rows {
		if slices.Equal(row.Keys, keys) {
			return row.Values[idx], true
		}
	}
	return 0, false
}

// KeyValues returns the key tuples in row order, joined by " / " when a table
// has more than one key column.
func (t *ResultTable) KeyValues() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = joinKey(row.Keys)
	}
	return out
}

func (t *ResultTable) firstValueColumn() string {
	if t == nil || len(t.ValueColumns) == 0 {
		return ""
	}
	return t.ValueColumns[0]
}

// Point is a summed measure at a raw coordinate pair.
type Point struct {
	Label     string  `json:"label"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Value     float64 `json:"value"`
}

// RowSet is a projection of raw rows, used for scatter views.
type RowSet struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of projected rows.
func (r *RowSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}
