package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// CANONICALIZER — Integer temporal keys + derived period
// ============================================================================
// Canonicalize never touches its input. The output is a new Table whose year
// and month_number cells are plain integers and whose every row carries a
// period of the form "2023-07", or "Unknown" when the temporal columns (or a
// row's temporal cells) are missing.
// ============================================================================

const (
	// PeriodColumn is the derived year-month key.
	PeriodColumn = schema.ColumnPeriod
	// UnknownPeriod is the period of rows without a usable year and month.
	UnknownPeriod = "Unknown"
)

// Canonicalize validates view against ds and returns a normalised copy.
func Canonicalize(view RecordView, ds schema.Dataset) (*Table, error) {
	for _, col := range ds.RequiredColumns {
		if !view.HasColumn(col) {
			return nil, &SchemaError{Column: col, Row: -1, Reason: "required column is absent"}
		}
	}

	temporal := view.HasColumn(schema.ColumnYear) && view.HasColumn(schema.ColumnMonth)

	columns := make([]Column, 0, len(view.Columns())+1)
	for _, c := range view.Columns() {
		if c.Name == PeriodColumn {
			continue
		}
		if temporal && (c.Name == schema.ColumnYear || c.Name == schema.ColumnMonth) {
			c.Kind = KindDimension
		}
		columns = append(columns, c)
	}
	columns = append(columns, Column{Name: PeriodColumn, Kind: KindDimension})

	records := make([]Record, view.Len())
	for i := range records {
		rec := copyRow(view, i, columns)
		period := UnknownPeriod

		if temporal {
			year, hasYear, err := coerceInt(view, i, schema.ColumnYear)
			if err != nil {
				return nil, err
			}
			month, hasMonth, err := coerceInt(view, i, schema.ColumnMonth)
			if err != nil {
				return nil, err
			}
			if hasMonth && (month < 1 || month > 12) {
				return nil, &SchemaError{
					Column: schema.ColumnMonth,
					Row:    i,
					Value:  view.Dimension(i, schema.ColumnMonth),
					Reason: "month must be between 1 and 12",
				}
			}
			rec.Dimensions[schema.ColumnYear] = intString(year, hasYear)
			rec.Dimensions[schema.ColumnMonth] = intString(month, hasMonth)
			if hasYear && hasMonth {
				period = FormatPeriod(year, month)
			}
		}

		rec.Dimensions[PeriodColumn] = period
		records[i] = rec
	}

	return NewTable(columns, records), nil
}

// FormatPeriod renders a year and month as a period key.
func FormatPeriod(year, month int64) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// copyRow reads row i of view into a fresh record using the output columns.
func copyRow(view RecordView, i int, columns []Column) Record {
	rec := NewRecord()
	for _, c := range columns {
		if c.Name == PeriodColumn {
			continue
		}
		if c.Kind == KindMeasure {
			if v, ok := view.Measure(i, c.Name); ok {
				rec.Measures[c.Name] = v
			}
			continue
		}
		rec.Dimensions[c.Name] = view.Dimension(i, c.Name)
	}
	return rec
}

// coerceInt reads an integer temporal cell. A missing cell is not an error;
// a non-numeric or fractional one is.
func coerceInt(view RecordView, i int, column string) (int64, bool, error) {
	raw := strings.TrimSpace(view.Dimension(i, column))
	if IsMissing(raw) {
		return 0, false, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, true, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false, &SchemaError{Column: column, Row: i, Value: raw, Reason: "not an integer"}
	}
	if f != math.Trunc(f) {
		return 0, false, &SchemaError{Column: column, Row: i, Value: raw, Reason: "fractional value where an integer is required"}
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false, &SchemaError{Column: column, Row: i, Value: raw, Reason: "integer out of range"}
	}
	return int64(f), true, nil
}

func intString(n int64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
