package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spektr-org/factboard/schema"
)

// newTestTable builds a table from a header and string rows. Columns listed
// in measures hold numbers; empty or unparseable cells stay undefined.
func newTestTable(header []string, measures []string, rows ...[]string) *Table {
	isMeasure := make(map[string]bool, len(measures))
	for _, m := range measures {
		isMeasure[m] = true
	}
	cols := make([]Column, len(header))
	for i, h := range header {
		kind := KindDimension
		if isMeasure[h] {
			kind = KindMeasure
		}
		cols[i] = Column{Name: h, Kind: kind}
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := NewRecord()
		for i, v := range row {
			if isMeasure[header[i]] {
				if f, ok := parseNumber(v); ok {
					rec.Measures[header[i]] = f
				}
				continue
			}
			rec.Dimensions[header[i]] = v
		}
		records = append(records, rec)
	}
	return NewTable(cols, records)
}

func dataset(t *testing.T, name string) schema.Dataset {
	t.Helper()
	ds, err := schema.Default().SchemaFor(name)
	require.NoError(t, err)
	return ds
}

// cells reads every cell of a view as strings, column by column order.
func cells(view RecordView) [][]string {
	names := ColumnNames(view)
	out := make([][]string, view.Len())
	for i := range out {
		row := make([]string, len(names))
		for j, n := range names {
			row[j] = view.Dimension(i, n)
		}
		out[i] = row
	}
	return out
}

// column reads one column of a view.
func column(view RecordView, name string) []string {
	out := make([]string, view.Len())
	for i := range out {
		out[i] = view.Dimension(i, name)
	}
	return out
}

var crimeHeader = []string{
	"year", "month_number", "lsoa_id", "lsoa_name", "location_id", "location",
	"longitude", "latitude", "crime_type_id", "crime_type", "number_of_crime",
}

// crimeCountTable is a small canonical crime count table.
func crimeCountTable(t *testing.T) *Table {
	t.Helper()
	raw := newTestTable(crimeHeader, []string{"longitude", "latitude", "number_of_crime"},
		[]string{"2023", "7", "E01", "Cambridge 001A", "L1", "On or near Mill Road", "0.13", "52.20", "1", "Burglary", "3"},
		[]string{"2023", "7", "E02", "Cambridge 002B", "L2", "On or near Hills Road", "0.14", "52.19", "2", "Theft", "5"},
		[]string{"2023", "8", "E01", "Cambridge 001A", "L1", "On or near Mill Road", "0.13", "52.20", "2", "Theft", "2"},
		[]string{"2024", "1", "E03", "Cambridge 003C", "L3", "On or near Station Road", "", "", "1", "Burglary", "4"},
	)
	table, err := Canonicalize(raw, dataset(t, schema.CrimeCount))
	require.NoError(t, err)
	return table
}
