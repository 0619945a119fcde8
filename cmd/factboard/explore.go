package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spektr-org/factboard/engine"
	"github.com/spektr-org/factboard/helpers"
)

func newExploreCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "explore [dataset]",
		Short: "Profile a dataset or any CSV file",
		Long: `Show row and column counts, a per-column summary (dtype, distinct values,
missing values) and a preview of the first rows.

With a dataset name the canonical table is profiled. With only --file, any CSV
is profiled as-is.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view engine.RecordView
			switch {
			case len(args) == 1:
				_, table, err := a.loadDataset(cmd.Context(), args[0], file)
				if err != nil {
					return err
				}
				view = table
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				table, skipped, err := helpers.ParseCSVAuto(data)
				if err != nil {
					return fmt.Errorf("parse %s: %w", file, err)
				}
				if skipped > 0 {
					a.logger.Warn("skipped malformed rows", "file", file, "skipped", skipped)
				}
				view = table
			default:
				return errors.New("explore needs a dataset name or --file")
			}

			profile := engine.ProfileTable(view, a.cfg.PreviewRows)
			r := a.renderer(cmd)
			if r.isJSON() {
				return r.json(profile)
			}

			r.printf("%d rows, %d columns\n\n", profile.Rows, profile.Columns)
			summary := &engine.TableData{
				Title: "Columns",
				Columns: []engine.TableColumn{
					{Key: "column", Label: "Column", Type: "text", Align: "left"},
					{Key: "dtype", Label: "DType", Type: "text", Align: "left"},
					{Key: "n_unique", Label: "Unique", Type: "number", Align: "right"},
					{Key: "n_missing", Label: "Missing", Type: "number", Align: "right"},
				},
			}
			for _, c := range profile.Summary {
				summary.Rows = append(summary.Rows, []string{
					c.Name, c.DType,
					engine.FormatValue(float64(c.Unique)),
					engine.FormatValue(float64(c.Missing)),
				})
			}
			r.table(summary)
			r.println()
			r.table(engine.BuildRowSetTable("Preview", profile.Preview))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file to profile")
	return cmd
}
