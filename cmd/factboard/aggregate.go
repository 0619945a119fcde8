package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/factboard/engine"
	"github.com/spektr-org/factboard/schema"
)

func newAggregateCommand(a *app) *cobra.Command {
	var (
		ff      filterFlags
		recipe  string
		keys    []string
		measure string
		n       int
		order   string
		aggs    []string
	)

	cmd := &cobra.Command{
		Use:   "aggregate <dataset>",
		Short: "Run one aggregation over a filtered dataset",
		Long: `Run a single aggregation recipe over a dataset after applying the filter
request.

Grouped recipes: sum_by, mean_by, top_n, cross_tab, summarize, summarize_top,
map_points, project. Scalar recipes: sum, mean, nunique.`,
		Example: `  # Crimes per period
  factboard aggregate fact_crime_count --recipe sum_by --keys period

  # Five most frequent crime types in 2023
  factboard aggregate fact_crime_count --recipe top_n --keys crime_type --n 5 --filter year=2023

  # Crimes and mean officer strength per period
  factboard aggregate fact_crime_num --recipe summarize --keys period \
    --agg number_of_crime:sum --agg police_officer_strength:mean:officers`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := ff.build()
			if err != nil {
				return err
			}
			ds, table, err := a.loadDataset(cmd.Context(), args[0], ff.file)
			if err != nil {
				return err
			}
			if measure == "" {
				measure = ds.MeasureColumn
			}
			view := engine.ApplyFilters(table, req, ds.Facets)
			r := a.renderer(cmd)

			switch recipe {
			case schema.KPISum, schema.KPIMean, schema.KPINUnique:
				column := measure
				if recipe == schema.KPINUnique {
					if len(keys) != 1 {
						return errors.New("nunique needs exactly one --keys column")
					}
					column = keys[0]
				}
				format := schema.FormatInteger
				if recipe == schema.KPIMean {
					format = schema.FormatDecimal1
				}
				res := engine.EvaluateKPI(view, schema.KPI{ID: recipe, Recipe: recipe, Column: column, Format: format})
				if res.Error != "" {
					return errors.New(res.Error)
				}
				if r.isJSON() {
					return r.json(res)
				}
				r.table(engine.BuildKPITable(engine.LabelForColumn(args[0]), []engine.KPIResult{res}))
				return nil
			}

			panelAggs, err := parseAggregates(aggs)
			if err != nil {
				return err
			}
			panel := schema.Panel{
				ID:         recipe,
				Title:      fmt.Sprintf("%s by %s", engine.LabelForColumn(measure), strings.Join(keys, ", ")),
				Recipe:     recipe,
				Keys:       keys,
				Measure:    measure,
				Aggregates: panelAggs,
				N:          n,
				Order:      order,
			}
			res := engine.EvaluatePanel(view, panel)
			if res.Error != "" {
				return errors.New(res.Error)
			}
			if r.isJSON() {
				return r.json(res)
			}
			r.table(engine.BuildPanelTable(res))
			return nil
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVar(&recipe, "recipe", schema.RecipeSumBy, "aggregation recipe")
	cmd.Flags().StringSliceVar(&keys, "keys", []string{engine.PeriodColumn}, "grouping or projected columns")
	cmd.Flags().StringVar(&measure, "measure", "", "measure column (default: the dataset measure)")
	cmd.Flags().IntVar(&n, "n", 10, "rows kept by top_n and summarize_top (0 keeps all)")
	cmd.Flags().StringVar(&order, "order", string(engine.Desc), "ranking order (asc|desc)")
	cmd.Flags().StringArrayVar(&aggs, "agg", nil, "summarize aggregate as column:func[:as] (repeatable)")
	return cmd
}

// parseAggregates reads column:func[:as] specs.
func parseAggregates(specs []string) ([]schema.PanelAggregate, error) {
	out := make([]schema.PanelAggregate, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("invalid aggregate %q: want column:func[:as]", spec)
		}
		agg := schema.PanelAggregate{Column: parts[0], Func: parts[1]}
		if len(parts) == 3 {
			agg.As = parts[2]
		}
		out = append(out, agg)
	}
	return out, nil
}
