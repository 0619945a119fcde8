package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// FILTER SET
// ============================================================================

func TestApplyFiltersSingleFacet(t *testing.T) {
	table := crimeCountTable(t)
	facets := dataset(t, schema.CrimeCount).Facets

	got := ApplyFilters(table, Request{"crime_type": Only("Theft")}, facets)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []string{"Theft", "Theft"}, column(got, "crime_type"))
	// Original order is kept.
	assert.Equal(t, []string{"2023-07", "2023-08"}, column(got, PeriodColumn))
}

func TestApplyFiltersOrWithinAndAcross(t *testing.T) {
	table := crimeCountTable(t)
	facets := dataset(t, schema.CrimeCount).Facets

	got := ApplyFilters(table, Request{
		"month_number": Only("7", "1"),
		"crime_type":   Only("Burglary"),
	}, facets)
	assert.Equal(t, []string{"2023-07", "2024-01"}, column(got, PeriodColumn))
}

func TestApplyFiltersPassThrough(t *testing.T) {
	table := crimeCountTable(t)
	facets := dataset(t, schema.CrimeCount).Facets

	tests := map[string]Request{
		"nil request":      nil,
		"unrestricted":     {"crime_type": Unrestricted(), "year": Unrestricted()},
		"empty selection":  {"lsoa_name": Only()},
		"not a facet":      {"location": Only("On or near Mill Road")},
		"column not found": {"day_of_week": Only("Monday")},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			got := ApplyFilters(table, req, facets)
			assert.Equal(t, cells(table), cells(got))
		})
	}
}

func TestApplyFiltersCommutative(t *testing.T) {
	table := crimeCountTable(t)
	facets := dataset(t, schema.CrimeCount).Facets

	selections := []Request{
		{"year": Only("2023")},
		{"crime_type": Only("Theft")},
		{"lsoa_name": Only("Cambridge 001A", "Cambridge 003C")},
		{"month_number": Only("7", "8")},
	}
	for i, a := range selections {
		for j, b := range selections {
			if i == j {
				continue
			}
			ab := ApplyFilters(ApplyFilters(table, a, facets), b, facets)
			ba := ApplyFilters(ApplyFilters(table, b, facets), a, facets)
			assert.Equal(t, cells(ab), cells(ba), "selections %d and %d", i, j)

			combined := Request{}
			for k, v := range a {
				combined[k] = v
			}
			for k, v := range b {
				combined[k] = v
			}
			assert.Equal(t, cells(ab), cells(ApplyFilters(table, combined, facets)))
		}
	}
}

func TestApplyFiltersIntegerFacets(t *testing.T) {
	table := crimeCountTable(t)
	facets := dataset(t, schema.CrimeCount).Facets

	for _, month := range []string{"7", "07", "7.0", " 7 "} {
		got := ApplyFilters(table, Request{"month_number": Only(month)}, facets)
		assert.Equal(t, 2, got.Len(), "month %q", month)
	}

	// Text facets match exactly.
	got := ApplyFilters(table, Request{"crime_type": Only("theft")}, facets)
	assert.Equal(t, 0, got.Len())
}

func TestBuildFilterSetActiveFacets(t *testing.T) {
	table := crimeCountTable(t)
	facets := dataset(t, schema.CrimeCount).Facets

	fs := BuildFilterSet(Request{
		"crime_type": Only("Theft"),
		"year":       Unrestricted(),
		"lsoa_name":  Only(),
		"unknown":    Only("x"),
	}, facets, table)
	assert.Equal(t, []string{"crime_type"}, fs.ActiveFacets())
	assert.True(t, fs.Match(table, 1))
	assert.False(t, fs.Match(table, 0))
}

// ============================================================================
// SELECTION JSON
// ============================================================================

func TestSelectionUnmarshalJSON(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{
		"year": [2023, "2024"],
		"lsoa_name": "unrestricted",
		"crime_type": "Theft",
		"month_number": null,
		"location": []
	}`), &req)
	require.NoError(t, err)

	assert.Equal(t, Only("2023", "2024"), req["year"])
	assert.Equal(t, Unrestricted(), req["lsoa_name"])
	assert.Equal(t, Only("Theft"), req["crime_type"])
	assert.Equal(t, Unrestricted(), req["month_number"])
	assert.False(t, req["location"].Active())
}

func TestSelectionUnmarshalJSONInvalid(t *testing.T) {
	var sel Selection
	assert.Error(t, json.Unmarshal([]byte(`[{"a": 1}]`), &sel))
	assert.Error(t, json.Unmarshal([]byte(`[true]`), &sel))
}

func TestSelectionMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Request{
		"year":       Only("2023"),
		"crime_type": Unrestricted(),
		"lsoa_name":  {},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":["2023"],"crime_type":"unrestricted","lsoa_name":[]}`, string(data))
}

// ============================================================================
// FACET OPTIONS
// ============================================================================

func TestFacetOptions(t *testing.T) {
	table := crimeCountTable(t)
	ds := dataset(t, schema.CrimeCount)

	month, ok := ds.Facet(schema.ColumnMonth)
	require.True(t, ok)
	choice := FacetOptions(table, month)
	assert.Equal(t, []string{"1", "7", "8"}, choice.Options)
	assert.Equal(t, choice.Options, choice.Default)

	crimeType, ok := ds.Facet(schema.ColumnCrimeType)
	require.True(t, ok)
	choice = FacetOptions(table, crimeType)
	assert.Equal(t, []string{"Burglary", "Theft"}, choice.Options)
	assert.Empty(t, choice.Default)
}

func TestFacetOptionsNumericOrder(t *testing.T) {
	table := newTestTable([]string{"month_number"}, nil,
		[]string{"10"}, []string{"2"}, []string{""}, []string{"2"}, []string{"11"},
	)
	choice := FacetOptions(table, schema.Facet{Column: "month_number", Default: schema.SelectAll, Integer: true})
	assert.Equal(t, []string{"2", "10", "11"}, choice.Options)
}

func TestFacetOptionsMixedValues(t *testing.T) {
	facet := schema.Facet{Column: "lsoa_name", Default: schema.SelectNone}
	first := FacetOptions(newTestTable([]string{"lsoa_name"}, nil,
		[]string{"1a"}, []string{"9"}, []string{"10"}), facet)
	second := FacetOptions(newTestTable([]string{"lsoa_name"}, nil,
		[]string{"10"}, []string{"9"}, []string{"1a"}), facet)
	assert.Equal(t, []string{"9", "10", "1a"}, first.Options)
	assert.Equal(t, first.Options, second.Options)
}

func TestFacetOptionsMissingColumn(t *testing.T) {
	table := newTestTable([]string{"year"}, nil, []string{"2023"})
	choice := FacetOptions(table, schema.Facet{Column: "crime_type"})
	assert.Empty(t, choice.Options)
	assert.NotNil(t, choice.Options)
}
