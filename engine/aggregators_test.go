package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// GROUPED RECIPES
// ============================================================================

func TestSumBy(t *testing.T) {
	table := newTestTable([]string{"crime_type", "number_of_crime"}, []string{"number_of_crime"},
		[]string{"Theft", "2"},
		[]string{"Burglary", "3"},
		[]string{"Burglary", "5"},
		[]string{"", "100"},
	)

	got, err := SumBy(table, []string{"crime_type"}, "number_of_crime")
	require.NoError(t, err)
	assert.Equal(t, []string{"crime_type"}, got.KeyColumns)
	assert.Equal(t, []string{"number_of_crime"}, got.ValueColumns)
	assert.Equal(t, []string{"Burglary", "Theft"}, got.KeyValues())

	v, ok := got.Lookup("Burglary")
	assert.True(t, ok)
	assert.Equal(t, 8.0, v)
	v, ok = got.Lookup("Theft")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestSumByUndefinedMeasures(t *testing.T) {
	table := newTestTable([]string{"crime_type", "number_of_crime"}, []string{"number_of_crime"},
		[]string{"Theft", ""},
		[]string{"Theft", "n/a"},
		[]string{"Arson", "4"},
		[]string{"Arson", ""},
	)

	got, err := SumBy(table, []string{"crime_type"}, "number_of_crime")
	require.NoError(t, err)
	v, _ := got.Lookup("Theft")
	assert.Equal(t, 0.0, v)
	v, _ = got.Lookup("Arson")
	assert.Equal(t, 4.0, v)
}

func TestSumByNumericKeyOrder(t *testing.T) {
	table := newTestTable([]string{"month_number", "n"}, []string{"n"},
		[]string{"10", "1"},
		[]string{"2", "1"},
		[]string{"1", "1"},
	)
	got, err := SumBy(table, []string{"month_number"}, "n")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "10"}, got.KeyValues())
}

func TestSumByMixedKeyOrder(t *testing.T) {
	orders := [][]string{
		{"10", "9", "1a"},
		{"1a", "9", "10"},
		{"9", "1a", "10"},
		{"b", "10", "1a", "9"},
	}
	for _, keys := range orders {
		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{k, "1"}
		}
		table := newTestTable([]string{"k", "n"}, []string{"n"}, rows...)

		got, err := SumBy(table, []string{"k"}, "n")
		require.NoError(t, err)
		want := []string{"9", "10", "1a"}
		if len(keys) == 4 {
			want = append(want, "b")
		}
		assert.Equal(t, want, got.KeyValues(), "input order %v", keys)
	}
}

func TestMeanBy(t *testing.T) {
	table := newTestTable([]string{"lsoa_name", "police_officer_strength"}, []string{"police_officer_strength"},
		[]string{"A", "10"},
		[]string{"A", "20"},
		[]string{"A", ""},
		[]string{"B", ""},
	)

	got, err := MeanBy(table, []string{"lsoa_name"}, "police_officer_strength")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.KeyValues())
	v, _ := got.Lookup("A")
	assert.Equal(t, 15.0, v)
}

func TestTopNTiesKeepInputOrder(t *testing.T) {
	table := newTestTable([]string{"crime_type", "n"}, []string{"n"},
		[]string{"A", "10"},
		[]string{"B", "10"},
		[]string{"C", "7"},
		[]string{"D", "3"},
		[]string{"E", "1"},
	)

	got, err := TopN(table, "crime_type", "n", 2, Desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got.KeyValues())

	// Ties follow first occurrence, not the key.
	table = newTestTable([]string{"crime_type", "n"}, []string{"n"},
		[]string{"B", "4"},
		[]string{"A", "10"},
		[]string{"B", "6"},
	)
	got, err = TopN(table, "crime_type", "n", 2, Desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, got.KeyValues())
}

func TestTopNOrderAndLimit(t *testing.T) {
	table := newTestTable([]string{"crime_type", "n"}, []string{"n"},
		[]string{"A", "10"},
		[]string{"B", "1"},
		[]string{"C", "7"},
	)

	got, err := TopN(table, "crime_type", "n", 0, Desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, got.KeyValues())

	got, err = TopN(table, "crime_type", "n", 2, Asc)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, got.KeyValues())

	got, err = TopN(table, "crime_type", "n", 10, Desc)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
}

func TestCrossTabUniquePairs(t *testing.T) {
	table := newTestTable(
		[]string{"crime_type", "last_outcome_category", "number_of_resolution"},
		[]string{"number_of_resolution"},
		[]string{"Theft", "No suspect", "2"},
		[]string{"Theft", "Charged", "1"},
		[]string{"Theft", "No suspect", "3"},
		[]string{"Arson", "No suspect", "1"},
		[]string{"Arson", "No suspect", "1"},
	)

	got, err := CrossTab(table, "crime_type", "last_outcome_category", "number_of_resolution")
	require.NoError(t, err)
	assert.Equal(t, []string{"crime_type", "last_outcome_category"}, got.KeyColumns)
	require.Equal(t, 3, got.Len())

	seen := make(map[string]bool)
	for _, k := range got.KeyValues() {
		assert.False(t, seen[k], "duplicate pair %s", k)
		seen[k] = true
	}
	v, _ := got.Lookup("Theft", "No suspect")
	assert.Equal(t, 5.0, v)
	v, _ = got.Lookup("Arson", "No suspect")
	assert.Equal(t, 2.0, v)
}

func TestSummarize(t *testing.T) {
	table := newTestTable(
		[]string{"period", "number_of_crime", "police_officer_strength"},
		[]string{"number_of_crime", "police_officer_strength"},
		[]string{"2023-08", "4", "10"},
		[]string{"2023-07", "1", "20"},
		[]string{"2023-07", "2", "30"},
		[]string{"2023-09", "5", ""},
	)
	aggs := []Aggregate{
		{Column: "number_of_crime", Func: "sum"},
		{Column: "police_officer_strength", Func: "mean", As: "avg_officers"},
	}

	got, err := Summarize(table, []string{"period"}, aggs)
	require.NoError(t, err)
	assert.Equal(t, []string{"number_of_crime", "avg_officers"}, got.ValueColumns)
	assert.Equal(t, []string{"2023-07", "2023-08", "2023-09"}, got.KeyValues())

	v, _ := got.LookupColumn("number_of_crime", "2023-07")
	assert.Equal(t, 3.0, v)
	v, _ = got.LookupColumn("avg_officers", "2023-07")
	assert.Equal(t, 25.0, v)
	v, _ = got.LookupColumn("avg_officers", "2023-09")
	assert.True(t, math.IsNaN(v))
}

func TestSummarizeTop(t *testing.T) {
	table := newTestTable(
		[]string{"lsoa_name", "number_of_crime", "police_officer_strength"},
		[]string{"number_of_crime", "police_officer_strength"},
		[]string{"A", "1", "10"},
		[]string{"B", "9", "20"},
		[]string{"C", "5", "30"},
	)
	aggs := []Aggregate{
		{Column: "number_of_crime", Func: "sum"},
		{Column: "police_officer_strength", Func: "mean"},
	}

	got, err := SummarizeTop(table, []string{"lsoa_name"}, aggs, 2, Desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, got.KeyValues())
	v, _ := got.LookupColumn("police_officer_strength", "C")
	assert.Equal(t, 30.0, v)
}

func TestSummarizeInvalidAggregates(t *testing.T) {
	table := newTestTable([]string{"k", "v"}, []string{"v"}, []string{"a", "1"})

	_, err := Summarize(table, []string{"k"}, nil)
	assert.Error(t, err)
	_, err = Summarize(table, []string{"k"}, []Aggregate{{Column: "v", Func: "median"}})
	assert.ErrorContains(t, err, "median")
}

// ============================================================================
// MAP POINTS AND PROJECTIONS
// ============================================================================

func TestMapPoints(t *testing.T) {
	table := crimeCountTable(t)

	points, err := MapPoints(table, "location", "longitude", "latitude", "number_of_crime")
	require.NoError(t, err)
	require.Len(t, points, 2)

	byLabel := make(map[string]Point)
	for _, p := range points {
		byLabel[p.Label] = p
	}
	mill := byLabel["On or near Mill Road"]
	assert.Equal(t, 5.0, mill.Value)
	assert.Equal(t, 0.13, mill.Longitude)
	assert.Equal(t, 52.20, mill.Latitude)
	assert.NotContains(t, byLabel, "On or near Station Road")
}

func TestProject(t *testing.T) {
	table := crimeCountTable(t)

	rs, err := Project(table, []string{"crime_type", "number_of_crime"})
	require.NoError(t, err)
	assert.Equal(t, []string{"crime_type", "number_of_crime"}, rs.Columns)
	require.Equal(t, 4, rs.Len())
	assert.Equal(t, []string{"Burglary", "3"}, rs.Rows[0])

	_, err = Project(table, nil)
	assert.Error(t, err)
}

// ============================================================================
// SCALARS
// ============================================================================

func TestScalarsOverEmptyView(t *testing.T) {
	table := newTestTable([]string{"lsoa_id", "number_of_crime"}, []string{"number_of_crime"})

	sum, err := ScalarSum(table, "number_of_crime")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum)

	_, err = ScalarMean(table, "number_of_crime")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyAggregation))
	var ee *EmptyAggregationError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "number_of_crime", ee.Column)

	n, err := ScalarNUnique(table, "lsoa_id")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScalars(t *testing.T) {
	table := newTestTable([]string{"lsoa_id", "staff"}, []string{"staff"},
		[]string{"E01", "4"},
		[]string{"E02", ""},
		[]string{"E01", "6"},
		[]string{"", "2"},
	)

	sum, err := ScalarSum(table, "staff")
	require.NoError(t, err)
	assert.Equal(t, 12.0, sum)

	mean, err := ScalarMean(table, "staff")
	require.NoError(t, err)
	assert.Equal(t, 4.0, mean)

	n, err := ScalarNUnique(table, "lsoa_id")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"E01", "E02"}, UniqueValues(table, "lsoa_id"))
}

// ============================================================================
// MISSING COLUMNS
// ============================================================================

func TestMissingColumn(t *testing.T) {
	table := newTestTable([]string{"crime_type", "n"}, []string{"n"}, []string{"Theft", "1"})

	tests := map[string]func() error{
		"sum_by key": func() error {
			_, err := SumBy(table, []string{"day_of_week"}, "n")
			return err
		},
		"sum_by measure": func() error {
			_, err := SumBy(table, []string{"crime_type"}, "day_of_week")
			return err
		},
		"top_n": func() error {
			_, err := TopN(table, "day_of_week", "n", 5, Desc)
			return err
		},
		"mean": func() error {
			_, err := ScalarMean(table, "day_of_week")
			return err
		},
		"nunique": func() error {
			_, err := ScalarNUnique(table, "day_of_week")
			return err
		},
		"project": func() error {
			_, err := Project(table, []string{"crime_type", "day_of_week"})
			return err
		},
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			err := fn()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingColumn))
			var mc *MissingColumnError
			require.True(t, errors.As(err, &mc))
			assert.Equal(t, "day_of_week", mc.Column)
		})
	}
}

func TestGroupedRecipesNeedKeys(t *testing.T) {
	table := newTestTable([]string{"crime_type", "n"}, []string{"n"}, []string{"Theft", "1"})
	_, err := SumBy(table, nil, "n")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingColumn))
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, Desc, o)
	o, err = ParseOrder("ASC")
	require.NoError(t, err)
	assert.Equal(t, Asc, o)
	_, err = ParseOrder("sideways")
	assert.Error(t, err)
}

// ============================================================================
// END TO END
// ============================================================================

func TestFilterThenAggregateOneMonth(t *testing.T) {
	raw := newTestTable(
		[]string{"year", "month_number", "crime_type", "lsoa_name", "number_of_crime"},
		[]string{"number_of_crime"},
		[]string{"2023", "7", "Burglary", "Cambridge 001A", "3"},
		[]string{"2023", "7", "Theft", "Cambridge 002B", "5"},
		[]string{"2023", "8", "Burglary", "Cambridge 001A", "2"},
		[]string{"2023", "8", "Theft", "Cambridge 001A", "4"},
	)
	ds := dataset(t, schema.CrimeCount)

	table, err := Canonicalize(raw, ds)
	require.NoError(t, err)

	filtered := ApplyFilters(table, Request{"month_number": Only("7")}, ds.Facets)
	require.Equal(t, 2, filtered.Len())

	series, err := SumBy(filtered, []string{PeriodColumn}, "number_of_crime")
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	assert.Equal(t, []string{"2023-07"}, series.Rows[0].Keys)
	assert.Equal(t, 3.0+5.0, series.Rows[0].Values[0])

	// The source table is unchanged by filtering.
	assert.Equal(t, 4, table.Len())
}
