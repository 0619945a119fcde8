package engine

import (
	"fmt"
	"math"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// TABLE BUILDER — Produces render-ready TableData from panel results
// ============================================================================
// Renderers (CLI tables, JSON) never touch ResultTable directly; they get
// labelled columns and pre-formatted cells from here.
// ============================================================================

// TableColumn describes one rendered column.
type TableColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text" or "number"
	Align string `json:"align"` // "left" or "right"
}

// Summary is a footer row.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// TableData is a render-ready table.
type TableData struct {
	Title   string        `json:"title"`
	Columns []TableColumn `json:"columns"`
	Rows    [][]string    `json:"rows"`
	Summary *Summary      `json:"summary,omitempty"`
}

// BuildPanelTable renders whichever payload a panel result carries.
func BuildPanelTable(res PanelResult) *TableData {
	switch {
	case res.Table != nil:
		return BuildResultTable(res.Title, res.Table, sumsAddUp(res.Recipe))
	case res.Points != nil:
		return buildPointsTable(res.Title, res.Points)
	case res.Rows != nil:
		return BuildRowSetTable(res.Title, res.Rows)
	default:
		return &TableData{Title: res.Title, Columns: []TableColumn{}, Rows: [][]string{}}
	}
}

// sumsAddUp reports whether a total footer is meaningful for a recipe.
func sumsAddUp(recipe string) bool {
	switch recipe {
	case schema.RecipeSumBy, schema.RecipeTopN, schema.RecipeCrossTab:
		return true
	}
	return false
}

// ============================================================================
// AGGREGATED TABLE — One row per key tuple
// ============================================================================

// BuildResultTable renders an aggregate. With total set, a footer sums each
// value column.
func BuildResultTable(title string, t *ResultTable, total bool) *TableData {
	td := &TableData{Title: title, Columns: []TableColumn{}, Rows: [][]string{}}
	if t == nil {
		return td
	}

	for _, key := range t.KeyColumns {
		td.Columns = append(td.Columns, TableColumn{Key: key, Label: LabelForColumn(key), Type: "text", Align: "left"})
	}
	for _, val := range t.ValueColumns {
		td.Columns = append(td.Columns, TableColumn{Key: val, Label: LabelForColumn(val), Type: "number", Align: "right"})
	}

	totals := make([]float64, len(t.ValueColumns))
	for _, r := range t.Rows {
		row := make([]string, 0, len(r.Keys)+len(r.Values))
		row = append(row, r.Keys...)
		for i, v := range r.Values {
			row = append(row, FormatValue(v))
			if !math.IsNaN(v) {
				totals[i] += v
			}
		}
		td.Rows = append(td.Rows, row)
	}

	if total && len(t.Rows) > 0 {
		td.Summary = &Summary{
			Label:  fmt.Sprintf("Total (%d rows)", len(t.Rows)),
			Values: make(map[string]string, len(t.ValueColumns)),
		}
		for i, val := range t.ValueColumns {
			td.Summary.Values[val] = FormatValue(totals[i])
		}
	}
	return td
}

// ============================================================================
// LIST TABLES — Row per record or point
// ============================================================================

// BuildRowSetTable renders projected rows as text columns.
func BuildRowSetTable(title string, rs *RowSet) *TableData {
	td := &TableData{Title: title, Columns: []TableColumn{}, Rows: [][]string{}}
	if rs == nil {
		return td
	}
	for _, c := range rs.Columns {
		td.Columns = append(td.Columns, TableColumn{Key: c, Label: LabelForColumn(c), Type: "text", Align: "left"})
	}
	td.Rows = append(td.Rows, rs.Rows...)
	return td
}

func buildPointsTable(title string, points []Point) *TableData {
	td := &TableData{
		Title: title,
		Columns: []TableColumn{
			{Key: "label", Label: "Label", Type: "text", Align: "left"},
			{Key: "longitude", Label: "Longitude", Type: "number", Align: "right"},
			{Key: "latitude", Label: "Latitude", Type: "number", Align: "right"},
			{Key: "value", Label: "Value", Type: "number", Align: "right"},
		},
		Rows: make([][]string, 0, len(points)),
	}
	for _, p := range points {
		td.Rows = append(td.Rows, []string{
			p.Label,
			formatNumber(p.Longitude),
			formatNumber(p.Latitude),
			FormatValue(p.Value),
		})
	}
	return td
}

// BuildKPITable renders KPIs as label / value rows.
func BuildKPITable(title string, kpis []KPIResult) *TableData {
	td := &TableData{
		Title: title,
		Columns: []TableColumn{
			{Key: "kpi", Label: "KPI", Type: "text", Align: "left"},
			{Key: "value", Label: "Value", Type: "number", Align: "right"},
		},
		Rows: make([][]string, 0, len(kpis)),
	}
	for _, k := range kpis {
		td.Rows = append(td.Rows, []string{k.Label, k.Display})
	}
	return td
}
