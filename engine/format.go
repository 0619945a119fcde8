package engine

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// FORMATTING — Labels and display values
// ============================================================================

var acronyms = map[string]string{
	"lsoa": "LSOA",
	"pcso": "PCSO",
	"id":   "ID",
}

// LabelForColumn turns a snake_case column name into a display label:
// "crime_type" → "Crime Type", "lsoa_name" → "LSOA Name".
func LabelForColumn(column string) string {
	if column == "" {
		return ""
	}
	caser := cases.Title(language.English)
	words := strings.Fields(strings.ReplaceAll(column, "_", " "))
	for i, w := range words {
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			words[i] = a
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// FormatKPI renders a KPI value: integer with thousands separators, or one
// decimal place.
func FormatKPI(value float64, format string) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	p := message.NewPrinter(language.English)
	switch format {
	case schema.FormatDecimal1:
		return p.Sprintf("%.1f", value)
	default:
		return p.Sprintf("%d", int64(math.Round(value)))
	}
}

// FormatValue renders an aggregate cell for tables. Whole numbers drop the
// fraction; others keep two decimals.
func FormatValue(value float64) string {
	if math.IsNaN(value) {
		return ""
	}
	p := message.NewPrinter(language.English)
	if value == math.Trunc(value) && math.Abs(value) < 1e15 {
		return p.Sprintf("%d", int64(value))
	}
	return p.Sprintf("%.2f", value)
}
