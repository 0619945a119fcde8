package schema

import (
	"errors"
	"fmt"
	"slices"
)

// ============================================================================
// SCHEMA — Describes the shape of one fact dataset
// ============================================================================
// A Dataset tells the generic pipeline which columns must exist, which column
// is the measure, which columns are facets, and which KPIs and panels make up
// the dataset's dashboard. Canonicalizer, Filter Set and Aggregator never
// branch on a dataset name; everything they need comes from here.
// ============================================================================

// Well-known fact table columns.
const (
	ColumnYear        = "year"
	ColumnMonth       = "month_number"
	ColumnLSOAID      = "lsoa_id"
	ColumnLSOAName    = "lsoa_name"
	ColumnLocationID  = "location_id"
	ColumnLocation    = "location"
	ColumnLongitude   = "longitude"
	ColumnLatitude    = "latitude"
	ColumnCrimeTypeID = "crime_type_id"
	ColumnCrimeType   = "crime_type"
	ColumnOutcomeID   = "outcome_id"
	ColumnOutcome     = "last_outcome_category"
	ColumnDayOfWeek   = "day_of_week"
	ColumnOfficers    = "police_officer_strength"
	ColumnStaff       = "police_staff_strength"
	ColumnPCSO        = "pcso_strength"
	ColumnCrimeCount  = "number_of_crime"
	ColumnOccurring   = "number_of_crime_occuring"
	ColumnResolutions = "number_of_resolution"
	ColumnPeriod      = "period"
)

// SelectionPolicy is the UI default for a facet's selection.
// In both policies an empty selection imposes no restriction.
type SelectionPolicy string

const (
	// SelectAll pre-selects every available value (bounded facets).
	SelectAll SelectionPolicy = "all"
	// SelectNone pre-selects nothing (large or free-text-like facets).
	SelectNone SelectionPolicy = "none"
)

// Facet is a dimensional column usable for filtering.
type Facet struct {
	Column  string          `json:"column" yaml:"column"`
	Label   string          `json:"label" yaml:"label"`
	Default SelectionPolicy `json:"default" yaml:"default"`
	Integer bool            `json:"integer,omitempty" yaml:"integer,omitempty"`
}

// KPI recipes.
const (
	KPISum     = "sum"
	KPIMean    = "mean"
	KPINUnique = "nunique"
)

// KPI display formats.
const (
	FormatInteger  = "integer"
	FormatDecimal1 = "decimal1"
)

// KPI is a scalar summary shown at the top of a dashboard.
type KPI struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Recipe string `json:"recipe" yaml:"recipe"`
	Column string `json:"column" yaml:"column"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Panel recipes.
const (
	RecipeSumBy        = "sum_by"
	RecipeMeanBy       = "mean_by"
	RecipeTopN         = "top_n"
	RecipeCrossTab     = "cross_tab"
	RecipeSummarize    = "summarize"
	RecipeSummarizeTop = "summarize_top"
	RecipeMapPoints    = "map_points"
	RecipeProject      = "project"
)

// Aggregation names usable in a panel's Aggregates list.
const (
	AggSum  = "sum"
	AggMean = "mean"
)

// PanelAggregate is one named reduction in a summarize panel.
type PanelAggregate struct {
	Column string `json:"column" yaml:"column"`
	Func   string `json:"func" yaml:"func"`
	As     string `json:"as,omitempty" yaml:"as,omitempty"`
}

// Panel is one aggregate view of a dashboard.
//
// Keys are the grouping columns. For map_points they are label, longitude and
// latitude, in that order. For project they are the projected columns.
type Panel struct {
	ID         string           `json:"id" yaml:"id"`
	Title      string           `json:"title" yaml:"title"`
	Recipe     string           `json:"recipe" yaml:"recipe"`
	Keys       []string         `json:"keys" yaml:"keys"`
	Measure    string           `json:"measure,omitempty" yaml:"measure,omitempty"`
	Aggregates []PanelAggregate `json:"aggregates,omitempty" yaml:"aggregates,omitempty"`
	N          int              `json:"n,omitempty" yaml:"n,omitempty"`
	Order      string           `json:"order,omitempty" yaml:"order,omitempty"`
	Fallback   *Panel           `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Dataset describes one logical fact table.
type Dataset struct {
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	DefaultFile string `json:"defaultFile,omitempty" yaml:"default_file,omitempty"`

	RequiredColumns []string `json:"requiredColumns" yaml:"required_columns"`
	MeasureColumn   string   `json:"measureColumn" yaml:"measure_column"`
	// NumericColumns are parsed as numbers in addition to the measure.
	NumericColumns []string `json:"numericColumns,omitempty" yaml:"numeric_columns,omitempty"`
	Facets         []Facet  `json:"facets" yaml:"facets"`
	IDColumns      []string `json:"idColumns,omitempty" yaml:"id_columns,omitempty"`

	KPIs   []KPI   `json:"kpis,omitempty" yaml:"kpis,omitempty"`
	Panels []Panel `json:"panels,omitempty" yaml:"panels,omitempty"`
}

// IsNumeric reports whether a column holds numbers for this dataset.
func (d Dataset) IsNumeric(column string) bool {
	return column == d.MeasureColumn || slices.Contains(d.NumericColumns, column)
}

// FacetColumns returns the facet column names in declaration order.
func (d Dataset) FacetColumns() []string {
	cols := make([]string, len(d.Facets))
	for i, f := range d.Facets {
		cols[i] = f.Column
	}
	return cols
}

// Facet looks up a facet by column name.
func (d Dataset) Facet(column string) (Facet, bool) {
	for _, f := range d.Facets {
		if f.Column == column {
			return f, true
		}
	}
	return Facet{}, false
}

// Validate checks that the dataset is internally consistent.
func (d Dataset) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("dataset name is required"))
	}
	if d.MeasureColumn == "" {
		errs = append(errs, fmt.Errorf("dataset %q: measure column is required", d.Name))
	}
	seen := make(map[string]bool, len(d.Facets))
	for _, f := range d.Facets {
		if f.Column == "" {
			errs = append(errs, fmt.Errorf("dataset %q: facet column is required", d.Name))
			continue
		}
		if seen[f.Column] {
			errs = append(errs, fmt.Errorf("dataset %q: duplicate facet %q", d.Name, f.Column))
		}
		seen[f.Column] = true
		switch f.Default {
		case SelectAll, SelectNone:
		default:
			errs = append(errs, fmt.Errorf("dataset %q: facet %q has unknown default policy %q", d.Name, f.Column, f.Default))
		}
	}
	for _, k := range d.KPIs {
		switch k.Recipe {
		case KPISum, KPIMean, KPINUnique:
		default:
			errs = append(errs, fmt.Errorf("dataset %q: kpi %q has unknown recipe %q", d.Name, k.ID, k.Recipe))
		}
	}
	for _, p := range d.Panels {
		if err := validatePanel(d.Name, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validatePanel(dataset string, p Panel) error {
	switch p.Recipe {
	case RecipeSumBy, RecipeMeanBy:
		if len(p.Keys) == 0 || p.Measure == "" {
			return fmt.Errorf("dataset %q: panel %q needs keys and a measure", dataset, p.ID)
		}
	case RecipeTopN:
		if len(p.Keys) != 1 || p.Measure == "" {
			return fmt.Errorf("dataset %q: panel %q needs exactly one key and a measure", dataset, p.ID)
		}
	case RecipeCrossTab:
		if len(p.Keys) != 2 || p.Measure == "" {
			return fmt.Errorf("dataset %q: panel %q needs exactly two keys and a measure", dataset, p.ID)
		}
	case RecipeSummarize, RecipeSummarizeTop:
		if len(p.Keys) == 0 || len(p.Aggregates) == 0 {
			return fmt.Errorf("dataset %q: panel %q needs keys and aggregates", dataset, p.ID)
		}
		for _, a := range p.Aggregates {
			if a.Func != AggSum && a.Func != AggMean {
				return fmt.Errorf("dataset %q: panel %q has unknown aggregate %q", dataset, p.ID, a.Func)
			}
		}
	case RecipeMapPoints:
		if len(p.Keys) != 3 || p.Measure == "" {
			return fmt.Errorf("dataset %q: panel %q needs label, longitude and latitude keys and a measure", dataset, p.ID)
		}
	case RecipeProject:
		if len(p.Keys) == 0 {
			return fmt.Errorf("dataset %q: panel %q needs columns to project", dataset, p.ID)
		}
	default:
		return fmt.Errorf("dataset %q: panel %q has unknown recipe %q", dataset, p.ID, p.Recipe)
	}
	if p.Fallback != nil {
		return validatePanel(dataset, *p.Fallback)
	}
	return nil
}
