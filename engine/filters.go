package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spektr-org/factboard/schema"
)

// ============================================================================
// FILTERS — Facet-Based Filtering via RecordView
// ============================================================================
// Single-pass filter: checks every active facet constraint per record in one
// loop and returns a SubView (index list into parent), so the source table is
// never copied or mutated. OR within a facet, AND across facets.
// ============================================================================

// UnrestrictedToken is the JSON / CLI spelling of an unrestricted selection.
const UnrestrictedToken = "unrestricted"

// Selection is the set of allowed values for one facet.
// An unrestricted or empty selection imposes no constraint.
type Selection struct {
	Unrestricted bool
	Values       []string
}

// Unrestricted returns a selection that allows every value.
func Unrestricted() Selection { return Selection{Unrestricted: true} }

// Only returns a selection limited to values.
func Only(values ...string) Selection { return Selection{Values: values} }

// Active reports whether the selection constrains rows.
func (s Selection) Active() bool { return !s.Unrestricted && len(s.Values) > 0 }

// UnmarshalJSON accepts "unrestricted", a single scalar, or an array of
// strings and numbers.
func (s *Selection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Unrestricted()
		return nil
	}
	var raw []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("invalid selection: %w", err)
		}
	} else {
		var str string
		if err := json.Unmarshal(data, &str); err == nil && strings.EqualFold(str, UnrestrictedToken) {
			*s = Unrestricted()
			return nil
		}
		raw = []json.RawMessage{data}
	}
	values := make([]string, 0, len(raw))
	for _, r := range raw {
		var str string
		if err := json.Unmarshal(r, &str); err == nil {
			values = append(values, str)
			continue
		}
		var num json.Number
		if err := json.Unmarshal(r, &num); err != nil {
			return fmt.Errorf("invalid selection value %s", string(r))
		}
		values = append(values, num.String())
	}
	*s = Selection{Values: values}
	return nil
}

// MarshalJSON writes "unrestricted" or the list of values.
func (s Selection) MarshalJSON() ([]byte, error) {
	if s.Unrestricted {
		return json.Marshal(UnrestrictedToken)
	}
	if s.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Values)
}

// Request maps facet names to selections. Unknown facets are ignored.
type Request map[string]Selection

// ============================================================================
// FILTER SET
// ============================================================================

type constraint struct {
	column  string
	allowed map[string]bool
}

// FilterSet is the composed row predicate of a Request.
type FilterSet struct {
	constraints []constraint
}

// BuildFilterSet composes the active selections of req for the facets that
// exist both in the schema and in view. Facets missing from view and request
// keys that are not facets are ignored.
func BuildFilterSet(req Request, facets []schema.Facet, view RecordView) FilterSet {
	var fs FilterSet
	for _, facet := range facets {
		sel, ok := req[facet.Column]
		if !ok || !sel.Active() || !view.HasColumn(facet.Column) {
			continue
		}
		fs.constraints = append(fs.constraints, constraint{
			column:  facet.Column,
			allowed: toValueSet(sel.Values, facet.Integer),
		})
	}
	return fs
}

// ActiveFacets lists the facet columns that constrain rows.
func (fs FilterSet) ActiveFacets() []string {
	out := make([]string, len(fs.constraints))
	for i, c := range fs.constraints {
		out[i] = c.column
	}
	return out
}

// Match reports whether row i of view satisfies every constraint.
func (fs FilterSet) Match(view RecordView, i int) bool {
	for _, c := range fs.constraints {
		if !c.allowed[view.Dimension(i, c.column)] {
			return false
		}
	}
	return true
}

// Apply returns the rows of view matching the filter set, in original order.
func (fs FilterSet) Apply(view RecordView) RecordView {
	if len(fs.constraints) == 0 {
		return view
	}
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if fs.Match(view, i) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

// ApplyFilters builds a filter set from req and applies it to view.
func ApplyFilters(view RecordView, req Request, facets []schema.Facet) RecordView {
	return BuildFilterSet(req, facets, view).Apply(view)
}

// toValueSet converts selected values to a lookup set. Integer facets match
// on the canonical integer form so "07", "7" and "7.0" are equivalent.
func toValueSet(values []string, integer bool) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if integer {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int64(f)) {
				v = strconv.FormatInt(int64(f), 10)
			}
		}
		set[v] = true
	}
	return set
}

// ============================================================================
// FACET OPTIONS
// ============================================================================

// FacetChoice lists the values a facet can take and its default selection.
type FacetChoice struct {
	Facet   schema.Facet `json:"facet"`
	Options []string     `json:"options"`
	Default []string     `json:"default"`
}

// FacetOptions collects the distinct non-empty values of facet in view.
// Integer facets are ordered numerically, others lexically.
func FacetOptions(view RecordView, facet schema.Facet) FacetChoice {
	choice := FacetChoice{Facet: facet, Options: []string{}, Default: []string{}}
	if !view.HasColumn(facet.Column) {
		return choice
	}
	seen := make(map[string]bool)
	for i := 0; i < view.Len(); i++ {
		v := view.Dimension(i, facet.Column)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		choice.Options = append(choice.Options, v)
	}
	slices.SortFunc(choice.Options, compareKey)
	if facet.Default == schema.SelectAll {
		choice.Default = slices.Clone(choice.Options)
	}
	return choice
}
