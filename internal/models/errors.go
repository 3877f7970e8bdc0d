package models

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns that are absent from a loaded table.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s is missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

// DataFormatError reports a value that could not be converted to its
// column's type. Row is 1-based and counts data rows only.
type DataFormatError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data format error: row %d column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("data format error: row %d column %s: cannot parse %q", e.Row, e.Column, e.Value)
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

// RepeatFlagError is returned when a repeat_customer_flag is neither 0 nor 1.
type RepeatFlagError struct {
	Flag int
}

func (e *RepeatFlagError) Error() string {
	return fmt.Sprintf("repeat customer flag must be 0 or 1, got %d", e.Flag)
}
