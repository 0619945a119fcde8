package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// EXECUTOR — Runs a dataset's dashboard against a table
// ============================================================================
// Entry point: NewExecutor(registry, opts...).Run(ctx, view, req)
//
// Pipeline:
//   1. Look up the dataset schema in the registry
//   2. Build the FilterSet from the request → SubView (zero-copy)
//   3. Evaluate every KPI and panel concurrently, each into its own slot
//   4. Return the Dashboard
//
// A failing KPI or panel records its error and does not stop the others.
// An empty filtered view is not an error.
// ============================================================================

// DashboardRequest names a dataset and the filters to apply.
type DashboardRequest struct {
	Dataset string  `json:"dataset"`
	Filters Request `json:"filters"`
}

// KPIResult is one evaluated KPI.
type KPIResult struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Error   string  `json:"error,omitempty"`
}

// PanelResult is one evaluated panel. Exactly one of Table, Points and Rows
// is set on success.
type PanelResult struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Recipe   string       `json:"recipe"`
	Table    *ResultTable `json:"table,omitempty"`
	Points   []Point      `json:"points,omitempty"`
	Rows     *RowSet      `json:"rows,omitempty"`
	Chart    *ChartConfig `json:"chart,omitempty"`
	FellBack bool         `json:"fellBack,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Dashboard is the complete result of one request.
type Dashboard struct {
	Dataset       string        `json:"dataset"`
	Title         string        `json:"title"`
	RowCount      int           `json:"rowCount"`
	FilteredCount int           `json:"filteredCount"`
	Empty         bool          `json:"empty"`
	ActiveFacets  []string      `json:"activeFacets"`
	KPIs          []KPIResult   `json:"kpis"`
	Panels        []PanelResult `json:"panels"`
}

// Executor evaluates dashboards for registered datasets.
type Executor struct {
	registry *schema.Registry
	cfg      *config
}

// NewExecutor creates an Executor backed by registry.
func NewExecutor(registry *schema.Registry, opts ...Option) *Executor {
	return &Executor{registry: registry, cfg: applyOptions(opts)}
}

// Run filters view with req.Filters and evaluates the dataset's KPIs and
// panels. Cancelling ctx stops scheduling further work and returns ctx.Err().
func (e *Executor) Run(ctx context.Context, view RecordView, req DashboardRequest) (*Dashboard, error) {
	ds, err := e.registry.SchemaFor(req.Dataset)
	if err != nil {
		return nil, err
	}

	fs := BuildFilterSet(req.Filters, ds.Facets, view)
	filtered := fs.Apply(view)

	log := e.cfg.Logger.With(slog.String("dataset", ds.Name))
	log.Info("executing dashboard",
		slog.Int("rows", view.Len()),
		slog.Int("filtered", filtered.Len()),
		slog.Any("facets", fs.ActiveFacets()))

	e.cfg.Metrics.dashboards.WithLabelValues(ds.Name).Inc()
	e.cfg.Metrics.filteredRows.WithLabelValues(ds.Name).Observe(float64(filtered.Len()))

	dash := &Dashboard{
		Dataset:       ds.Name,
		Title:         ds.Title,
		RowCount:      view.Len(),
		FilteredCount: filtered.Len(),
		Empty:         filtered.Len() == 0,
		ActiveFacets:  fs.ActiveFacets(),
		KPIs:          make([]KPIResult, len(ds.KPIs)),
		Panels:        make([]PanelResult, len(ds.Panels)),
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.Parallelism)

	for i, kpi := range ds.KPIs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			res := EvaluateKPI(filtered, kpi)
			e.observe(log, ds.Name, kpi.Recipe, kpi.ID, start, res.Error)
			dash.KPIs[i] = res
			return nil
		})
	}
	for i, panel := range ds.Panels {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			res := EvaluatePanel(filtered, panel)
			e.observe(log, ds.Name, panel.Recipe, panel.ID, start, res.Error)
			dash.Panels[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dash, nil
}

func (e *Executor) observe(log *slog.Logger, dataset, recipe, id string, start time.Time, failure string) {
	e.cfg.Metrics.panelDuration.WithLabelValues(dataset, recipe).Observe(time.Since(start).Seconds())
	if failure != "" {
		e.cfg.Metrics.panelFailures.WithLabelValues(dataset, recipe).Inc()
		log.Warn("panel failed", slog.String("id", id), slog.String("recipe", recipe), slog.String("error", failure))
	}
}

// ============================================================================
// KPI EVALUATION
// ============================================================================

// EvaluateKPI computes one KPI over view. Errors are reported in the result.
func EvaluateKPI(view RecordView, kpi schema.KPI) KPIResult {
	res := KPIResult{ID: kpi.ID, Label: kpi.Label}
	if res.Label == "" {
		res.Label = LabelForColumn(kpi.Column)
	}

	var value float64
	var err error
	switch kpi.Recipe {
	case schema.KPISum:
		value, err = ScalarSum(view, kpi.Column)
	case schema.KPIMean:
		value, err = ScalarMean(view, kpi.Column)
	case schema.KPINUnique:
		var n int
		n, err = ScalarNUnique(view, kpi.Column)
		value = float64(n)
	default:
		err = fmt.Errorf("unknown kpi recipe %q", kpi.Recipe)
	}
	if err != nil {
		res.Error = err.Error()
		res.Display = FormatKPI(math.NaN(), kpi.Format)
		return res
	}
	res.Value = value
	res.Display = FormatKPI(value, kpi.Format)
	return res
}

// ============================================================================
// PANEL EVALUATION
// ============================================================================

// EvaluatePanel computes one panel over view. When a column the panel needs is
// missing and the panel declares a fallback, the fallback is evaluated instead.
func EvaluatePanel(view RecordView, panel schema.Panel) PanelResult {
	res, err := runPanel(view, panel)
	if err != nil && panel.Fallback != nil && errors.Is(err, ErrMissingColumn) {
		fb, fbErr := runPanel(view, *panel.Fallback)
		fb.ID = panel.ID
		fb.FellBack = true
		if fbErr != nil {
			fb.Error = fbErr.Error()
			return fb
		}
		fb.Chart = BuildChart(fb)
		return fb
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Chart = BuildChart(res)
	return res
}

func runPanel(view RecordView, p schema.Panel) (PanelResult, error) {
	res := PanelResult{ID: p.ID, Title: p.Title, Recipe: p.Recipe}
	order, err := ParseOrder(p.Order)
	if err != nil {
		return res, fmt.Errorf("panel %q: %w", p.ID, err)
	}

	switch p.Recipe {
	case schema.RecipeSumBy:
		res.Table, err = SumBy(view, p.Keys, p.Measure)
	case schema.RecipeMeanBy:
		res.Table, err = MeanBy(view, p.Keys, p.Measure)
	case schema.RecipeTopN:
		if len(p.Keys) != 1 {
			return res, fmt.Errorf("panel %q: top_n needs exactly one key", p.ID)
		}
		res.Table, err = TopN(view, p.Keys[0], p.Measure, p.N, order)
	case schema.RecipeCrossTab:
		if len(p.Keys) != 2 {
			return res, fmt.Errorf("panel %q: cross_tab needs exactly two keys", p.ID)
		}
		res.Table, err = CrossTab(view, p.Keys[0], p.Keys[1], p.Measure)
	case schema.RecipeSummarize:
		res.Table, err = Summarize(view, p.Keys, toAggregates(p.Aggregates))
	case schema.RecipeSummarizeTop:
		res.Table, err = SummarizeTop(view, p.Keys, toAggregates(p.Aggregates), p.N, order)
	case schema.RecipeMapPoints:
		if len(p.Keys) != 3 {
			return res, fmt.Errorf("panel %q: map_points needs label, longitude and latitude keys", p.ID)
		}
		res.Points, err = MapPoints(view, p.Keys[0], p.Keys[1], p.Keys[2], p.Measure)
	case schema.RecipeProject:
		res.Rows, err = Project(view, p.Keys)
	default:
		return res, fmt.Errorf("panel %q: unknown recipe %q", p.ID, p.Recipe)
	}
	if err != nil {
		return res, fmt.Errorf("panel %q: %w", p.ID, err)
	}
	return res, nil
}

func toAggregates(in []schema.PanelAggregate) []Aggregate {
	out := make([]Aggregate, len(in))
	for i, a := range in {
		out[i] = Aggregate{Column: a.Column, Func: a.Func, As: a.As}
	}
	return out
}
