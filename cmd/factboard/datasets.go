package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/factboard/engine"
)

type datasetInfo struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Measure string   `json:"measure"`
	Facets  []string `json:"facets"`
	File    string   `json:"file"`
	KPIs    int      `json:"kpis"`
	Panels  int      `json:"panels"`
}

func newDatasetsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List registered datasets",
		Long: `List every dataset in the registry with its measure, facets and the CSV
file it is loaded from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := a.renderer(cmd)

			infos := make([]datasetInfo, 0)
			for _, ds := range a.registry.Datasets() {
				infos = append(infos, datasetInfo{
					Name:    ds.Name,
					Title:   ds.Title,
					Measure: ds.MeasureColumn,
					Facets:  ds.FacetColumns(),
					File:    a.cfg.FileFor(ds),
					KPIs:    len(ds.KPIs),
					Panels:  len(ds.Panels),
				})
			}
			if r.isJSON() {
				return r.json(infos)
			}

			td := &engine.TableData{
				Title: "Datasets",
				Columns: []engine.TableColumn{
					{Key: "name", Label: "Name", Type: "text", Align: "left"},
					{Key: "title", Label: "Title", Type: "text", Align: "left"},
					{Key: "measure", Label: "Measure", Type: "text", Align: "left"},
					{Key: "facets", Label: "Facets", Type: "text", Align: "left"},
					{Key: "file", Label: "File", Type: "text", Align: "left"},
				},
			}
			for _, info := range infos {
				td.Rows = append(td.Rows, []string{
					info.Name, info.Title, info.Measure, strings.Join(info.Facets, ", "), info.File,
				})
			}
			r.table(td)
			return nil
		},
	}
}
