package engine

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ============================================================================
// AGGREGATORS — Grouping, Reduction and Ranking via RecordView
// ============================================================================
// Every recipe is a pure function of (view, parameters). Grouping keeps
// first-occurrence order; grouped sums and means are then sorted ascending by
// key, while top-N sorts stably by value so tied keys keep input order.
// Rows with an empty key cell do not form a group.
// ============================================================================

// Order is the direction of a ranking.
type Order string

const (
	Desc Order = "desc"
	Asc  Order = "asc"
)

// ParseOrder reads an order name. Empty means Desc.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", Desc:
		return Desc, nil
	case Asc:
		return Asc, nil
	default:
		return "", fmt.Errorf("unknown order %q (want asc or desc)", s)
	}
}

// Aggregate is one named reduction of Summarize.
type Aggregate struct {
	Column string
	Func   string // "sum" or "mean"
	As     string // output column name; defaults to Column
}

func (a Aggregate) name() string {
	if a.As != "" {
		return a.As
	}
	return a.Column
}

// ============================================================================
// GROUPING
// ============================================================================

type group struct {
	keys   []string
	sums   []float64
	counts []int
}

// groupRows groups view by keys and accumulates the given measures.
func groupRows(view RecordView, keys []string, measures []string) []*group {
	index := make(map[string]*group)
	order := make([]*group, 0)

	for i := 0; i < view.Len(); i++ {
		tuple := make([]string, len(keys))
		skip := false
		for k, col := range keys {
			tuple[k] = view.Dimension(i, col)
			if tuple[k] == "" {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		id := strings.Join(tuple, "\x1f")
		g, exists := index[id]
		if !exists {
			g = &group{
				keys:   tuple,
				sums:   make([]float64, len(measures)),
				counts: make([]int, len(measures)),
			}
			index[id] = g
			order = append(order, g)
		}
		for m, measure := range measures {
			if v, ok := view.Measure(i, measure); ok {
				g.sums[m] += v
				g.counts[m]++
			}
		}
	}
	return order
}

func validateKeys(view RecordView, keys []string, measures ...string) error {
	if len(keys) == 0 {
		return errors.New("at least one key column is required")
	}
	if err := requireColumns(view, keys...); err != nil {
		return err
	}
	return requireColumns(view, measures...)
}

// ============================================================================
// GROUPED RECIPES
// ============================================================================

// SumBy sums measure per key tuple. Undefined measures add nothing, so a
// group whose measures are all undefined sums to 0.
func SumBy(view RecordView, keys []string, measure string) (*ResultTable, error) {
	if err := validateKeys(view, keys, measure); err != nil {
		return nil, err
	}
	groups := groupRows(view, keys, []string{measure})
	out := newResult(keys, measure)
	for _, g := range groups {
		out.Rows = append(out.Rows, ResultRow{Keys: g.keys, Values: []float64{g.sums[0]}})
	}
	sortByKey(out.Rows)
	return out, nil
}

// MeanBy averages the defined values of measure per key tuple. Groups with no
// defined value produce no row.
func MeanBy(view RecordView, keys []string, measure string) (*ResultTable, error) {
	if err := validateKeys(view, keys, measure); err != nil {
		return nil, err
	}
	groups := groupRows(view, keys, []string{measure})
	out := newResult(keys, measure)
	for _, g := range groups {
		if g.counts[0] == 0 {
			continue
		}
		out.Rows = append(out.Rows, ResultRow{Keys: g.keys, Values: []float64{g.sums[0] / float64(g.counts[0])}})
	}
	sortByKey(out.Rows)
	return out, nil
}

// TopN sums measure per key, sorts stably by the sum and keeps the first n
// rows. n <= 0 keeps every row.
func TopN(view RecordView, key string, measure string, n int, order Order) (*ResultTable, error) {
	if err := validateKeys(view, []string{key}, measure); err != nil {
		return nil, err
	}
	groups := groupRows(view, []string{key}, []string{measure})
	out := newResult([]string{key}, measure)
	for _, g := range groups {
		out.Rows = append(out.Rows, ResultRow{Keys: g.keys, Values: []float64{g.sums[0]}})
	}
	rankRows(out.Rows, 0, order)
	out.Rows = truncate(out.Rows, n)
	return out, nil
}

// CrossTab sums measure per (keyA, keyB) pair.
func CrossTab(view RecordView, keyA, keyB, measure string) (*ResultTable, error) {
	return SumBy(view, []string{keyA, keyB}, measure)
}

// Summarize computes several reductions per key tuple, sorted by key.
// A mean without defined values is NaN.
func Summarize(view RecordView, keys []string, aggs []Aggregate) (*ResultTable, error) {
	out, err := summarize(view, keys, aggs)
	if err != nil {
		return nil, err
	}
	sortByKey(out.Rows)
	return out, nil
}

// SummarizeTop is Summarize ranked stably by the first aggregate and cut to n.
func SummarizeTop(view RecordView, keys []string, aggs []Aggregate, n int, order Order) (*ResultTable, error) {
	out, err := summarize(view, keys, aggs)
	if err != nil {
		return nil, err
	}
	rankRows(out.Rows, 0, order)
	out.Rows = truncate(out.Rows, n)
	return out, nil
}

func summarize(view RecordView, keys []string, aggs []Aggregate) (*ResultTable, error) {
	if len(aggs) == 0 {
		return nil, errors.New("at least one aggregate is required")
	}
	measures := make([]string, len(aggs))
	names := make([]string, len(aggs))
	for i, a := range aggs {
		if a.Func != "sum" && a.Func != "mean" {
			return nil, fmt.Errorf("unknown aggregate %q for column %q", a.Func, a.Column)
		}
		measures[i] = a.Column
		names[i] = a.name()
	}
	if err := validateKeys(view, keys, measures...); err != nil {
		return nil, err
	}

	out := &ResultTable{KeyColumns: slices.Clone(keys), ValueColumns: names, Rows: []ResultRow{}}
	for _, g := range groupRows(view, keys, measures) {
		values := make([]float64, len(aggs))
		for i, a := range aggs {
			switch {
			case a.Func == "sum":
				values[i] = g.sums[i]
			case g.counts[i] == 0:
				values[i] = math.NaN()
			default:
				values[i] = g.sums[i] / float64(g.counts[i])
			}
		}
		out.Rows = append(out.Rows, ResultRow{Keys: g.keys, Values: values})
	}
	return out, nil
}

// MapPoints sums measure per (label, longitude, latitude). Rows without
// coordinates are dropped.
func MapPoints(view RecordView, label, lon, lat, measure string) ([]Point, error) {
	sums, err := SumBy(view, []string{label, lon, lat}, measure)
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, sums.Len())
	for _, row := range sums.Rows {
		x, okX := parseNumber(row.Keys[1])
		y, okY := parseNumber(row.Keys[2])
		if !okX || !okY {
			continue
		}
		points = append(points, Point{Label: row.Keys[0], Longitude: x, Latitude: y, Value: row.Values[0]})
	}
	return points, nil
}

// Project returns the given columns of every row, in row order.
func Project(view RecordView, columns []string) (*RowSet, error) {
	if len(columns) == 0 {
		return nil, errors.New("at least one column is required")
	}
	if err := requireColumns(view, columns...); err != nil {
		return nil, err
	}
	out := &RowSet{Columns: slices.Clone(columns), Rows: make([][]string, 0, view.Len())}
	for i := 0; i < view.Len(); i++ {
		row := make([]string, len(columns))
		for c, col := range columns {
			row[c] = view.Dimension(i, col)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// ============================================================================
// SCALAR KPIs
// ============================================================================

// ScalarSum sums the defined values of measure. An empty view sums to 0.
func ScalarSum(view RecordView, measure string) (float64, error) {
	if err := requireColumns(view, measure); err != nil {
		return 0, err
	}
	var total float64
	for i := 0; i < view.Len(); i++ {
		if v, ok := view.Measure(i, measure); ok {
			total += v
		}
	}
	return total, nil
}

// ScalarMean averages the defined values of measure. It fails with
// EmptyAggregationError when there are none.
func ScalarMean(view RecordView, measure string) (float64, error) {
	if err := requireColumns(view, measure); err != nil {
		return 0, err
	}
	var total float64
	var n int
	for i := 0; i < view.Len(); i++ {
		if v, ok := view.Measure(i, measure); ok {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0, &EmptyAggregationError{Column: measure}
	}
	return total / float64(n), nil
}

// ScalarNUnique counts the distinct non-empty values of column.
func ScalarNUnique(view RecordView, column string) (int, error) {
	if err := requireColumns(view, column); err != nil {
		return 0, err
	}
	return len(UniqueValues(view, column)), nil
}

// UniqueValues returns distinct non-empty values of a column in first-seen order.
func UniqueValues(view RecordView, column string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Dimension(i, column)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// ============================================================================
// SORTING
// ============================================================================

func newResult(keys []string, measure string) *ResultTable {
	return &ResultTable{
		KeyColumns:   slices.Clone(keys),
		ValueColumns: []string{measure},
		Rows:         []ResultRow{},
	}
}

func sortByKey(rows []ResultRow) {
	slices.SortStableFunc(rows, func(a, b ResultRow) int {
		for i := range a.Keys {
			if c := compareKey(a.Keys[i], b.Keys[i]); c != 0 {
				return c
			}
		}
		return 0
	})
}

// rankRows sorts by one value column. The sort is stable so ties keep
// first-occurrence order. NaN values sort last.
func rankRows(rows []ResultRow, col int, order Order) {
	slices.SortStableFunc(rows, func(a, b ResultRow) int {
		x, y := a.Values[col], b.Values[col]
		switch {
		case math.IsNaN(x) && math.IsNaN(y):
			return 0
		case math.IsNaN(x):
			return 1
		case math.IsNaN(y):
			return -1
		}
		if order == Asc {
			return cmp.Compare(x, y)
		}
		return cmp.Compare(y, x)
	})
}

func truncate(rows []ResultRow, n int) []ResultRow {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// compareKey is a total order on keys: numeric keys sort before all others
// and compare by value, the rest compare lexically.
func compareKey(a, b string) int {
	x, errX := strconv.ParseFloat(a, 64)
	y, errY := strconv.ParseFloat(b, 64)
	switch {
	case errX == nil && errY == nil:
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	case errX == nil:
		return -1
	case errY == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func joinKey(keys []string) string {
	return strings.Join(keys, " / ")
}
