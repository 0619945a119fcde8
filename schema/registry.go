package schema

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// DATASET REGISTRY — Logical dataset name → Dataset schema
// ============================================================================
// The four crime fact tables are registered by Default(). Further datasets
// are added with Register or loaded from a YAML registry file; no pipeline
// code changes are needed for a new entry.
// ============================================================================

// ErrUnknownDataset is returned when a dataset name is not registered.
var ErrUnknownDataset = errors.New("unknown dataset")

// Registry maps dataset names to schemas. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	datasets map[string]Dataset
	order    []string
}

// NewRegistry creates a registry holding the given datasets.
func NewRegistry(datasets ...Dataset) (*Registry, error) {
	r := &Registry{datasets: make(map[string]Dataset, len(datasets))}
	for _, ds := range datasets {
		if err := r.Register(ds); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a dataset. Names must be unique.
func (r *Registry) Register(ds Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.datasets[ds.Name]; exists {
		return fmt.Errorf("dataset %q already registered", ds.Name)
	}
	r.datasets[ds.Name] = ds
	r.order = append(r.order, ds.Name)
	return nil
}

// SchemaFor returns the schema registered under name.
func (r *Registry) SchemaFor(name string) (Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.datasets[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return ds, nil
}

// Names returns registered dataset names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Datasets returns all registered schemas in registration order.
func (r *Registry) Datasets() []Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Dataset, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.datasets[name])
	}
	return out
}

// ============================================================================
// YAML REGISTRY FILES
// ============================================================================

type registryFile struct {
	Datasets []Dataset `yaml:"datasets"`
}

// LoadYAML decodes dataset definitions from a YAML document of the form
//
//	datasets:
//	  - name: fact_stop_search
//	    measure_column: number_of_searches
//	    ...
func LoadYAML(r io.Reader) ([]Dataset, error) {
	var f registryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}
	for i := range f.Datasets {
		if err := f.Datasets[i].Validate(); err != nil {
			return nil, err
		}
	}
	return f.Datasets, nil
}

// ============================================================================
// BUILT-IN DATASETS
// ============================================================================

// Dataset names registered by Default.
const (
	CrimeCount    = "fact_crime_count"
	CrimeNum      = "fact_crime_num"
	OccurringTime = "fact_occuring_time"
	Resolution    = "fact_resolution"
)

// Default returns a registry with the four crime fact datasets.
func Default() *Registry {
	r, err := NewRegistry(
		crimeCountDataset(),
		crimeNumDataset(),
		occurringTimeDataset(),
		resolutionDataset(),
	)
	if err != nil {
		panic(err)
	}
	return r
}

// basicFacets are shared by every crime dataset: temporal facets default to
// everything selected, area and category default to nothing selected.
func basicFacets() []Facet {
	return []Facet{
		{Column: ColumnYear, Label: "Year", Default: SelectAll, Integer: true},
		{Column: ColumnMonth, Label: "Month (number)", Default: SelectAll, Integer: true},
		{Column: ColumnLSOAName, Label: "LSOA Name", Default: SelectNone},
		{Column: ColumnCrimeType, Label: "Crime Type", Default: SelectNone},
	}
}

func monthlySeries(id, title, measure string) Panel {
	return Panel{
		ID:      id,
		Title:   title,
		Recipe:  RecipeSumBy,
		Keys:    []string{ColumnPeriod},
		Measure: measure,
	}
}

func crimeCountDataset() Dataset {
	return Dataset{
		Name:            CrimeCount,
		Title:           "Crime Count",
		DefaultFile:     "fact_crime_count.csv",
		RequiredColumns: []string{ColumnCrimeCount},
		MeasureColumn:   ColumnCrimeCount,
		NumericColumns:  []string{ColumnLongitude, ColumnLatitude},
		Facets:          basicFacets(),
		IDColumns:       []string{ColumnLSOAID, ColumnLocationID, ColumnCrimeTypeID},
		KPIs: []KPI{
			{ID: "total_crimes", Label: "Total Crimes", Recipe: KPISum, Column: ColumnCrimeCount, Format: FormatInteger},
			{ID: "unique_lsoas", Label: "Unique LSOAs", Recipe: KPINUnique, Column: ColumnLSOAID, Format: FormatInteger},
			{ID: "unique_locations", Label: "Unique Locations", Recipe: KPINUnique, Column: ColumnLocationID, Format: FormatInteger},
			{ID: "crime_types", Label: "Crime Types", Recipe: KPINUnique, Column: ColumnCrimeTypeID, Format: FormatInteger},
		},
		Panels: []Panel{
			monthlySeries("crimes_over_time", "Crimes Over Time (Monthly)", ColumnCrimeCount),
			{ID: "top_crime_types", Title: "Top Crime Types", Recipe: RecipeTopN,
				Keys: []string{ColumnCrimeType}, Measure: ColumnCrimeCount, N: 10, Order: "desc"},
			{ID: "crimes_by_lsoa", Title: "Crimes by LSOA", Recipe: RecipeTopN,
				Keys: []string{ColumnLSOAName}, Measure: ColumnCrimeCount, N: 15, Order: "desc"},
			{ID: "crime_locations", Title: "Crime Locations Map", Recipe: RecipeMapPoints,
				Keys: []string{ColumnLocation, ColumnLongitude, ColumnLatitude}, Measure: ColumnCrimeCount},
		},
	}
}

func crimeNumDataset() Dataset {
	strengthSummary := []PanelAggregate{
		{Column: ColumnCrimeCount, Func: AggSum},
		{Column: ColumnOfficers, Func: AggMean},
	}
	return Dataset{
		Name:            CrimeNum,
		Title:           "Crime Volume & Police Strength",
		DefaultFile:     "fact_crime_num.csv",
		RequiredColumns: []string{ColumnCrimeCount, ColumnOfficers},
		MeasureColumn:   ColumnCrimeCount,
		NumericColumns:  []string{ColumnOfficers, ColumnStaff, ColumnPCSO, ColumnLongitude, ColumnLatitude},
		Facets:          basicFacets(),
		IDColumns:       []string{ColumnLSOAID, ColumnCrimeTypeID},
		KPIs: []KPI{
			{ID: "total_crimes", Label: "Total Crimes", Recipe: KPISum, Column: ColumnCrimeCount, Format: FormatInteger},
			{ID: "avg_officer_strength", Label: "Avg Officer Strength", Recipe: KPIMean, Column: ColumnOfficers, Format: FormatDecimal1},
			{ID: "avg_staff_strength", Label: "Avg Staff Strength", Recipe: KPIMean, Column: ColumnStaff, Format: FormatDecimal1},
			{ID: "avg_pcso_strength", Label: "Avg PCSO Strength", Recipe: KPIMean, Column: ColumnPCSO, Format: FormatDecimal1},
		},
		Panels: []Panel{
			{ID: "crimes_vs_strength", Title: "Crimes Over Time vs Officer Strength", Recipe: RecipeSummarize,
				Keys: []string{ColumnPeriod}, Aggregates: strengthSummary},
			{ID: "crime_strength_scatter", Title: "Crime vs Officer Strength (Scatter)", Recipe: RecipeProject,
				Keys: []string{ColumnOfficers, ColumnCrimeCount, ColumnCrimeType, ColumnLSOAName, ColumnLocation, ColumnPeriod}},
			{ID: "lsoa_strength", Title: "Crime by LSOA and Police Strength", Recipe: RecipeSummarizeTop,
				Keys: []string{ColumnLSOAName}, Aggregates: strengthSummary, N: 15, Order: "desc"},
		},
	}
}

func occurringTimeDataset() Dataset {
	return Dataset{
		Name:            OccurringTime,
		Title:           "Crime Time Patterns",
		DefaultFile:     "fact_occuring_time.csv",
		RequiredColumns: []string{ColumnOccurring},
		MeasureColumn:   ColumnOccurring,
		NumericColumns:  []string{ColumnLongitude, ColumnLatitude},
		Facets:          basicFacets(),
		IDColumns:       []string{ColumnLSOAID, ColumnLocationID, ColumnCrimeTypeID},
		KPIs: []KPI{
			{ID: "total_crimes", Label: "Total Crimes (Time Fact)", Recipe: KPISum, Column: ColumnOccurring, Format: FormatInteger},
			{ID: "unique_lsoas", Label: "Unique LSOAs", Recipe: KPINUnique, Column: ColumnLSOAID, Format: FormatInteger},
			{ID: "unique_locations", Label: "Unique Locations", Recipe: KPINUnique, Column: ColumnLocationID, Format: FormatInteger},
			{ID: "crime_types", Label: "Crime Types", Recipe: KPINUnique, Column: ColumnCrimeTypeID, Format: FormatInteger},
		},
		Panels: []Panel{
			{ID: "crimes_by_day", Title: "Crimes by Day of Week", Recipe: RecipeSumBy,
				Keys: []string{ColumnDayOfWeek}, Measure: ColumnOccurring,
				Fallback: ptr(monthlySeries("crimes_over_time", "Crimes Over Time (Monthly)", ColumnOccurring))},
			{ID: "top_crime_types", Title: "Top Crime Types (Time Fact)", Recipe: RecipeTopN,
				Keys: []string{ColumnCrimeType}, Measure: ColumnOccurring, N: 10, Order: "desc"},
		},
	}
}

func resolutionDataset() Dataset {
	return Dataset{
		Name:            Resolution,
		Title:           "Resolution & Outcomes",
		DefaultFile:     "fact_resolution.csv",
		RequiredColumns: []string{ColumnResolutions},
		MeasureColumn:   ColumnResolutions,
		Facets:          basicFacets(),
		IDColumns:       []string{ColumnOutcomeID, ColumnCrimeTypeID, ColumnLSOAID},
		KPIs: []KPI{
			{ID: "total_resolutions", Label: "Total Resolutions", Recipe: KPISum, Column: ColumnResolutions, Format: FormatInteger},
			{ID: "distinct_outcomes", Label: "Distinct Outcomes", Recipe: KPINUnique, Column: ColumnOutcomeID, Format: FormatInteger},
			{ID: "crime_types", Label: "Crime Types Involved", Recipe: KPINUnique, Column: ColumnCrimeTypeID, Format: FormatInteger},
			{ID: "lsoas_affected", Label: "LSOAs Affected", Recipe: KPINUnique, Column: ColumnLSOAID, Format: FormatInteger},
		},
		Panels: []Panel{
			monthlySeries("resolutions_over_time", "Resolutions Over Time (Monthly)", ColumnResolutions),
			{ID: "top_outcomes", Title: "Top Outcomes", Recipe: RecipeTopN,
				Keys: []string{ColumnOutcome}, Measure: ColumnResolutions, N: 10, Order: "desc"},
			{ID: "crime_types_by_outcome", Title: "Crime Types by Outcome", Recipe: RecipeCrossTab,
				Keys: []string{ColumnCrimeType, ColumnOutcome}, Measure: ColumnResolutions},
		},
	}
}

func ptr[T any](v T) *T { return &v }
