package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/factboard/engine"
)

func newFacetsCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "facets <dataset>",
		Short: "List the filter options of a dataset",
		Long: `List every facet of a dataset with its available values and its default
selection. Bounded facets (year, month) default to every value; large facets
(area, crime type) default to none. Either way nothing selected means no
restriction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, table, err := a.loadDataset(cmd.Context(), args[0], file)
			if err != nil {
				return err
			}
			choices := make([]engine.FacetChoice, 0, len(ds.Facets))
			for _, f := range ds.Facets {
				choices = append(choices, engine.FacetOptions(table, f))
			}

			r := a.renderer(cmd)
			if r.isJSON() {
				return r.json(choices)
			}
			td := &engine.TableData{
				Title: ds.Title,
				Columns: []engine.TableColumn{
					{Key: "facet", Label: "Facet", Type: "text", Align: "left"},
					{Key: "default", Label: "Default", Type: "text", Align: "left"},
					{Key: "count", Label: "Values", Type: "number", Align: "right"},
					{Key: "options", Label: "Options", Type: "text", Align: "left"},
				},
			}
			for _, c := range choices {
				td.Rows = append(td.Rows, []string{
					c.Facet.Label,
					string(c.Facet.Default),
					engine.FormatValue(float64(len(c.Options))),
					preview(c.Options, 8),
				})
			}
			r.table(td)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file to load instead of the configured one")
	return cmd
}

// preview joins the first n values, noting how many were left out.
func preview(values []string, n int) string {
	if len(values) <= n {
		return strings.Join(values, ", ")
	}
	return strings.Join(values[:n], ", ") + ", ..."
}
