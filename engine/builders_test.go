package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// BUILDER TESTS
// ============================================================================
// Tests cover:
//   1. Table builder: labels, formatted cells, total footers
//   2. Chart builder: chart type per recipe, pivoted cross-tabs, scatter
// ============================================================================

func TestBuildResultTable(t *testing.T) {
	res := &ResultTable{
		KeyColumns:   []string{"crime_type"},
		ValueColumns: []string{"number_of_crime"},
		Rows: []ResultRow{
			{Keys: []string{"Burglary"}, Values: []float64{1200}},
			{Keys: []string{"Theft"}, Values: []float64{34.5}},
		},
	}

	td := BuildPanelTable(PanelResult{Title: "Top", Recipe: schema.RecipeTopN, Table: res})
	assert.Equal(t, "Top", td.Title)
	require.Len(t, td.Columns, 2)
	assert.Equal(t, "Crime Type", td.Columns[0].Label)
	assert.Equal(t, "right", td.Columns[1].Align)
	assert.Equal(t, [][]string{{"Burglary", "1,200"}, {"Theft", "34.50"}}, td.Rows)
	require.NotNil(t, td.Summary)
	assert.Equal(t, "1,234.50", td.Summary.Values["number_of_crime"])

	// Means do not add up, so no footer.
	td = BuildPanelTable(PanelResult{Title: "Mean", Recipe: schema.RecipeMeanBy, Table: res})
	assert.Nil(t, td.Summary)
}

func TestBuildPanelTablePayloads(t *testing.T) {
	td := BuildPanelTable(PanelResult{Title: "Map", Points: []Point{{Label: "Mill Road", Longitude: 0.13, Latitude: 52.2, Value: 5}}})
	assert.Equal(t, [][]string{{"Mill Road", "0.13", "52.2", "5"}}, td.Rows)

	td = BuildPanelTable(PanelResult{Title: "Rows", Rows: &RowSet{Columns: []string{"lsoa_name"}, Rows: [][]string{{"A"}}}})
	assert.Equal(t, "LSOA Name", td.Columns[0].Label)
	assert.Equal(t, [][]string{{"A"}}, td.Rows)

	td = BuildPanelTable(PanelResult{Title: "Failed", Error: "boom"})
	assert.Empty(t, td.Rows)
}

func TestBuildKPITable(t *testing.T) {
	td := BuildKPITable("KPIs", []KPIResult{{Label: "Total Crimes", Display: "1,234"}})
	assert.Equal(t, [][]string{{"Total Crimes", "1,234"}}, td.Rows)
}

func TestBuildChartTypes(t *testing.T) {
	series := &ResultTable{
		KeyColumns:   []string{PeriodColumn},
		ValueColumns: []string{"number_of_crime"},
		Rows:         []ResultRow{{Keys: []string{"2023-07"}, Values: []float64{8.456}}},
	}
	c := BuildChart(PanelResult{Title: "Over time", Recipe: schema.RecipeSumBy, Table: series})
	require.NotNil(t, c)
	assert.Equal(t, "line", c.ChartType)
	assert.Equal(t, "Period", c.XAxis)
	require.Len(t, c.Series, 1)
	assert.Equal(t, 8.46, c.Series[0].Data[0].Value)
	assert.False(t, c.ShowLegend)

	c = BuildChart(PanelResult{Recipe: schema.RecipeTopN, Table: &ResultTable{
		KeyColumns:   []string{"crime_type"},
		ValueColumns: []string{"number_of_crime"},
		Rows:         []ResultRow{{Keys: []string{"Theft"}, Values: []float64{1}}},
	}})
	require.NotNil(t, c)
	assert.Equal(t, "bar", c.ChartType)

	assert.Nil(t, BuildChart(PanelResult{Table: &ResultTable{KeyColumns: []string{"k"}, ValueColumns: []string{"v"}}}))
	assert.Nil(t, BuildChart(PanelResult{}))
}

func TestBuildChartCrossTabPivot(t *testing.T) {
	res := PanelResult{
		Title:  "By outcome",
		Recipe: schema.RecipeCrossTab,
		Table: &ResultTable{
			KeyColumns:   []string{"crime_type", "last_outcome_category"},
			ValueColumns: []string{"number_of_resolution"},
			Rows: []ResultRow{
				{Keys: []string{"Arson", "Charged"}, Values: []float64{1}},
				{Keys: []string{"Theft", "Charged"}, Values: []float64{2}},
				{Keys: []string{"Theft", "No suspect"}, Values: []float64{5}},
			},
		},
	}

	c := BuildChart(res)
	require.NotNil(t, c)
	assert.Equal(t, "heatmap", c.ChartType)
	require.Len(t, c.Series, 2)
	assert.True(t, c.ShowLegend)

	assert.Equal(t, "Charged", c.Series[0].Name)
	assert.Equal(t, []ChartPoint{{Label: "Arson", Value: 1}, {Label: "Theft", Value: 2}}, c.Series[0].Data)
	assert.Equal(t, "No suspect", c.Series[1].Name)
	assert.Equal(t, []ChartPoint{{Label: "Arson", Value: 0}, {Label: "Theft", Value: 5}}, c.Series[1].Data)
}

func TestBuildChartScatter(t *testing.T) {
	res := PanelResult{
		Title:  "Scatter",
		Recipe: schema.RecipeProject,
		Rows: &RowSet{
			Columns: []string{"police_officer_strength", "number_of_crime", "crime_type"},
			Rows: [][]string{
				{"100", "5", "Theft"},
				{"", "3", "Arson"},
				{"120", "7", "Arson"},
			},
		},
	}

	c := BuildChart(res)
	require.NotNil(t, c)
	assert.Equal(t, "scatter", c.ChartType)
	assert.Equal(t, "Police Officer Strength", c.XAxis)
	require.Len(t, c.Series[0].Data, 2)
	p := c.Series[0].Data[1]
	require.NotNil(t, p.X)
	assert.Equal(t, 120.0, *p.X)
	assert.Equal(t, 7.0, p.Value)
	assert.Equal(t, "Arson", p.Label)
}
