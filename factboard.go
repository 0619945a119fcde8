// Package factboard presents dimensional fact datasets through faceted
// filtering and derived metrics.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/factboard/engine"
//	    "github.com/spektr-org/factboard/helpers"
//	    "github.com/spektr-org/factboard/schema"
//	)
//
//	registry := schema.Default()
//	ds, _ := registry.SchemaFor(schema.CrimeCount)
//	table, err := helpers.NewLoader(nil, nil).LoadFile(ctx, "fact_crime_count.csv", ds)
//
//	dash, err := engine.NewExecutor(registry).Run(ctx, table, engine.DashboardRequest{
//	    Dataset: schema.CrimeCount,
//	    Filters: engine.Request{"year": engine.Only("2023")},
//	})
//
// The pipeline has three stages, all pure over an immutable table:
// engine.Canonicalize normalises the temporal columns and derives the period
// key, a FilterSet restricts rows by facet, and the aggregation recipes
// (SumBy, MeanBy, TopN, CrossTab, scalar KPIs) reduce the filtered view.
// Which facets, KPIs and panels a dataset has is data in the schema registry.
package factboard
