package engine

import (
	"math"
	"strings"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from panel results
// ============================================================================
// One key column gives a single series. Two key columns (cross-tabs) pivot
// into one series per second-key value. Multi-measure summaries give one
// series per value column. Projections become scatter charts.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// ChartConfig describes how to render a panel as a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries is one data series.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint is one labelled value. Scatter points also carry X.
type ChartPoint struct {
	Label string   `json:"label"`
	X     *float64 `json:"x,omitempty"`
	Value float64  `json:"value"`
}

// BuildChart produces a ChartConfig for a panel result, or nil when the
// panel has nothing to plot.
func BuildChart(res PanelResult) *ChartConfig {
	switch {
	case res.Table != nil && res.Table.Len() > 0:
		return buildTableChart(res)
	case res.Rows != nil && res.Rows.Len() > 0:
		return buildScatterChart(res)
	default:
		return nil
	}
}

func buildTableChart(res PanelResult) *ChartConfig {
	t := res.Table
	config := &ChartConfig{
		ChartType: chartTypeFor(res.Recipe, t),
		Title:     res.Title,
		XAxis:     LabelForColumn(t.KeyColumns[0]),
		YAxis:     LabelForColumn(t.firstValueColumn()),
		ShowGrid:  true,
	}

	switch {
	case len(t.KeyColumns) >= 2:
		config.Series = buildPivotSeries(t)
	case len(t.ValueColumns) > 1:
		config.Series = buildMeasureSeries(t)
	default:
		config.Series = buildSingleSeries(t, res.Title)
	}
	config.ShowLegend = len(config.Series) > 1
	config.Colors = assignColors(len(config.Series))
	return config
}

// chartTypeFor picks a chart type: time series are lines, rankings bars,
// cross-tabs heatmaps.
func chartTypeFor(recipe string, t *ResultTable) string {
	switch recipe {
	case schema.RecipeCrossTab:
		return "heatmap"
	case schema.RecipeTopN, schema.RecipeSummarizeTop:
		return "bar"
	}
	if t.KeyColumns[0] == PeriodColumn {
		return "line"
	}
	return "bar"
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(t *ResultTable, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	points := make([]ChartPoint, 0, t.Len())
	for _, r := range t.Rows {
		points = append(points, ChartPoint{
			Label: joinKey(r.Keys),
			Value: roundTo2(r.Values[0]),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

func buildMeasureSeries(t *ResultTable) []ChartSeries {
	series := make([]ChartSeries, len(t.ValueColumns))
	for i, col := range t.ValueColumns {
		series[i] = ChartSeries{
			Name:  LabelForColumn(col),
			Data:  make([]ChartPoint, 0, t.Len()),
			Color: defaultColors[i%len(defaultColors)],
		}
	}
	for _, r := range t.Rows {
		label := joinKey(r.Keys)
		for i, v := range r.Values {
			series[i].Data = append(series[i].Data, ChartPoint{Label: label, Value: roundTo2(v)})
		}
	}
	return series
}

// buildPivotSeries turns (a, b) → value rows into one series per b, each
// with a point for every a. Missing pairs are plotted as 0.
func buildPivotSeries(t *ResultTable) []ChartSeries {
	var labels, subKeys []string
	seenLabel := make(map[string]bool)
	seenSub := make(map[string]bool)
	values := make(map[string]map[string]float64)

	for _, r := range t.Rows {
		label := r.Keys[0]
		sub := strings.Join(r.Keys[1:], " / ")
		if !seenLabel[label] {
			seenLabel[label] = true
			labels = append(labels, label)
		}
		if !seenSub[sub] {
			seenSub[sub] = true
			subKeys = append(subKeys, sub)
		}
		if values[sub] == nil {
			values[sub] = make(map[string]float64)
		}
		values[sub][label] = r.Values[0]
	}

	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		points := make([]ChartPoint, 0, len(labels))
		for _, label := range labels {
			points = append(points, ChartPoint{Label: label, Value: roundTo2(values[key][label])})
		}
		series = append(series, ChartSeries{
			Name:  key,
			Data:  points,
			Color: defaultColors[i%len(defaultColors)],
		})
	}
	return series
}

// buildScatterChart plots the first two projected columns against each
// other. A third column, when present, labels the points.
func buildScatterChart(res PanelResult) *ChartConfig {
	rs := res.Rows
	if len(rs.Columns) < 2 {
		return nil
	}
	points := make([]ChartPoint, 0, rs.Len())
	for _, row := range rs.Rows {
		x, okX := parseNumber(row[0])
		y, okY := parseNumber(row[1])
		if !okX || !okY {
			continue
		}
		p := ChartPoint{X: &x, Value: y}
		if len(row) > 2 {
			p.Label = row[2]
		}
		points = append(points, p)
	}
	return &ChartConfig{
		ChartType: "scatter",
		Title:     res.Title,
		XAxis:     LabelForColumn(rs.Columns[0]),
		YAxis:     LabelForColumn(rs.Columns[1]),
		Series:    []ChartSeries{{Name: res.Title, Data: points, Color: defaultColors[0]}},
		Colors:    assignColors(1),
		ShowGrid:  true,
	}
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

func roundTo2(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Round(v*100) / 100
}
