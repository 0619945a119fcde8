package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrSchema           = errors.New("schema error")
	ErrMissingColumn    = errors.New("missing column")
	ErrEmptyAggregation = errors.New("empty aggregation")
)

// SchemaError reports a required column that is absent or a temporal value
// that cannot be coerced to an integer. Row is -1 for column-level problems.
type SchemaError struct {
	Column string
	Row    int
	Value  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("schema error: column %q row %d value %q: %s", e.Column, e.Row, e.Value, e.Reason)
	}
	return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// MissingColumnError reports an aggregation over a column the table lacks.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// EmptyAggregationError reports a mean over zero defined values.
type EmptyAggregationError struct {
	Column string
}

func (e *EmptyAggregationError) Error() string {
	return fmt.Sprintf("empty aggregation: no defined values in %q", e.Column)
}

func (e *EmptyAggregationError) Is(target error) bool { return target == ErrEmptyAggregation }

func requireColumns(view RecordView, columns ...string) error {
	for _, c := range columns {
		if !view.HasColumn(c) {
			return &MissingColumnError{Column: c}
		}
	}
	return nil
}
