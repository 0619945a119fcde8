package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/factboard/engine"
)

// filterFlags are the flags shared by commands that accept a filter request.
type filterFlags struct {
	file    string
	filters []string
	request string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "CSV file to load instead of the configured one")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "facet selection as facet=v1,v2 or facet=* (repeatable)")
	cmd.Flags().StringVar(&f.request, "request", "", "JSON file with a filter request")
}

// build merges the request file with --filter flags. Flags win per facet.
func (f *filterFlags) build() (engine.Request, error) {
	req := engine.Request{}
	if f.request != "" {
		data, err := os.ReadFile(f.request)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse request file %s: %w", f.request, err)
		}
	}
	flagReq, err := parseFilters(f.filters)
	if err != nil {
		return nil, err
	}
	for facet, sel := range flagReq {
		req[facet] = sel
	}
	return req, nil
}

// parseFilters reads facet=v1,v2 arguments. facet=* and facet=unrestricted
// lift the restriction; facet= selects nothing, which also lifts it.
func parseFilters(args []string) (engine.Request, error) {
	req := engine.Request{}
	for _, arg := range args {
		facet, values, ok := strings.Cut(arg, "=")
		facet = strings.TrimSpace(facet)
		if !ok || facet == "" {
			return nil, fmt.Errorf("invalid filter %q: want facet=value[,value...]", arg)
		}
		values = strings.TrimSpace(values)
		if values == "*" || strings.EqualFold(values, engine.UnrestrictedToken) {
			req[facet] = engine.Unrestricted()
			continue
		}
		var selected []string
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				selected = append(selected, v)
			}
		}
		sel := req[facet]
		sel.Values = append(sel.Values, selected...)
		req[facet] = sel
	}
	return req, nil
}
