package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/factboard/engine"
)

func newDashboardCommand(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "dashboard <dataset>",
		Short: "Compute a dataset's dashboard",
		Long: `Load a dataset, apply the filter request and compute every KPI and panel of
its dashboard. A panel that fails is reported and the others are still shown.`,
		Example: `  # Whole dataset
  factboard dashboard fact_crime_count

  # Two years, one area
  factboard dashboard fact_crime_count --filter year=2022,2023 --filter "lsoa_name=Cambridge 007A"

  # Filters from a file, as JSON
  factboard dashboard fact_resolution --request filters.json -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := ff.build()
			if err != nil {
				return err
			}
			_, table, err := a.loadDataset(cmd.Context(), args[0], ff.file)
			if err != nil {
				return err
			}
			dash, err := a.executor.Run(cmd.Context(), table, engine.DashboardRequest{Dataset: args[0], Filters: req})
			if err != nil {
				return err
			}

			r := a.renderer(cmd)
			if r.isJSON() {
				return r.json(dash)
			}
			renderDashboard(r, dash)
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func renderDashboard(r *renderer, dash *engine.Dashboard) {
	r.printf("%s\n", dash.Title)
	filters := "none"
	if len(dash.ActiveFacets) > 0 {
		filters = strings.Join(dash.ActiveFacets, ", ")
	}
	r.printf("%d of %d rows (filters: %s)\n\n", dash.FilteredCount, dash.RowCount, filters)
	if dash.Empty {
		r.println("No records match the current filters.")
		r.println()
	}

	if len(dash.KPIs) > 0 {
		r.table(engine.BuildKPITable("KPIs", dash.KPIs))
		r.println()
	}
	for _, p := range dash.Panels {
		if p.Error != "" {
			r.printf("%s: %s\n\n", p.Title, p.Error)
			continue
		}
		r.table(engine.BuildPanelTable(p))
		r.println()
	}
}
