package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/factboard/engine"
	"github.com/spektr-org/factboard/schema"
)

const crimeCountCSV = "\xef\xbb\xbfYear,Month Number,LSOA Name,crimeType,longitude,latitude,number_of_crime\n" +
	"2023,7,Cambridge 001A,Burglary,0.13,52.2,3\n" +
	"2023,07,Cambridge 002B,Theft,,,5\n" +
	"2023,8,Cambridge 001A,Theft,0.13,52.2,n/a\n"

func crimeCount(t *testing.T) schema.Dataset {
	t.Helper()
	ds, err := schema.Default().SchemaFor(schema.CrimeCount)
	require.NoError(t, err)
	return ds
}

func TestParseCSV(t *testing.T) {
	table, skipped, err := ParseCSV([]byte(crimeCountCSV), crimeCount(t))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Equal(t, 3, table.Len())

	assert.Equal(t, []string{"year", "month_number", "lsoa_name", "crime_type", "longitude", "latitude", "number_of_crime"},
		engine.ColumnNames(table))

	kinds := make(map[string]engine.ColumnKind)
	for _, c := range table.Columns() {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, engine.KindMeasure, kinds["number_of_crime"])
	assert.Equal(t, engine.KindMeasure, kinds["longitude"])
	assert.Equal(t, engine.KindDimension, kinds["year"])
	assert.Equal(t, engine.KindDimension, kinds["crime_type"])

	// Raw text is kept until canonicalisation.
	assert.Equal(t, "07", table.Dimension(1, "month_number"))

	v, ok := table.Measure(0, "number_of_crime")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = table.Measure(2, "number_of_crime")
	assert.False(t, ok)
	_, ok = table.Measure(1, "longitude")
	assert.False(t, ok)
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	data := "year,month_number,number_of_crime\n" +
		"2023,7,3\n" +
		"2023,8\n" +
		"2023,9,1,extra\n" +
		"2024,1,2\n"

	table, skipped, err := ParseCSV([]byte(data), crimeCount(t))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, 2, table.Len())
}

func TestParseCSVHeaders(t *testing.T) {
	data := "crime_type,,Crime Type,number_of_crime\nTheft,x,Arson,1\n"
	table, _, err := ParseCSV([]byte(data), crimeCount(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"crime_type", "unnamed_1", "number_of_crime"}, engine.ColumnNames(table))
	assert.Equal(t, "Theft", table.Dimension(0, "crime_type"), "first duplicate header wins")
}

func TestParseCSVNoHeader(t *testing.T) {
	_, _, err := ParseCSV(nil, crimeCount(t))
	assert.True(t, errors.Is(err, ErrNoHeader))
}

func TestParseCSVAuto(t *testing.T) {
	data := "Region,Count,Share,Notes\nNorth,3,0.5,\nSouth,,0.25,late\n"
	table, _, err := ParseCSVAuto([]byte(data))
	require.NoError(t, err)

	kinds := make(map[string]engine.ColumnKind)
	for _, c := range table.Columns() {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, engine.KindDimension, kinds["region"])
	assert.Equal(t, engine.KindMeasure, kinds["count"])
	assert.Equal(t, engine.KindMeasure, kinds["share"])
	assert.Equal(t, engine.KindDimension, kinds["notes"])
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Month Number":    "month_number",
		"crimeTypeID":     "crime_type_id",
		"lsoa-name":       "lsoa_name",
		"already_snake":   "already_snake",
		"  Spaced  Name ": "spaced_name",
		"Police2Strength": "police2_strength",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}
