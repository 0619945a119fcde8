package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/spektr-org/factboard/config"
	"github.com/spektr-org/factboard/engine"
)

// renderer writes command results as tables or JSON.
type renderer struct {
	w    io.Writer
	mode string
}

func newRenderer(w io.Writer, mode string) *renderer {
	return &renderer{w: w, mode: mode}
}

func (r *renderer) isJSON() bool { return r.mode == config.OutputJSON }

func (r *renderer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *renderer) println(a ...any) {
	_, _ = fmt.Fprintln(r.w, a...)
}

func (r *renderer) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.w, format, a...)
}

func (r *renderer) table(td *engine.TableData) {
	if td == nil {
		return
	}
	if len(td.Rows) == 0 {
		if td.Title != "" {
			r.println(td.Title)
		}
		r.println("(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	if td.Title != "" {
		t.SetTitle(td.Title)
	}

	header := make(table.Row, len(td.Columns))
	configs := make([]table.ColumnConfig, 0, len(td.Columns))
	for i, col := range td.Columns {
		header[i] = col.Label
		if col.Align == "right" {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for _, cells := range td.Rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}

	if td.Summary != nil {
		footer := make(table.Row, len(td.Columns))
		footer[0] = td.Summary.Label
		for i, col := range td.Columns {
			if v, ok := td.Summary.Values[col.Key]; ok && i > 0 {
				footer[i] = v
			}
		}
		t.AppendFooter(footer)
	}

	t.Render()
	r.printf("(%d rows)\n", len(td.Rows))
}
