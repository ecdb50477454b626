package dataprocessing

import (
	"errors"
	"fmt"

	"bikedash/pkg/contracts/domain"
)

var (
	// ErrUnknownCategory marks a categorical cell outside its dimension's value set.
	ErrUnknownCategory = domain.ErrUnknownCategory
	// ErrNegativeCount marks a negative casual, registered or count cell.
	ErrNegativeCount = errors.New("negative count")
	// ErrMissingColumn marks a header without a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyInput marks a file without a header or without data rows.
	ErrEmptyInput = errors.New("input contains no records")
	// ErrMalformedInput marks a file that is not valid CSV or XLSX, such as
	// a row with the wrong number of fields.
	ErrMalformedInput = errors.New("malformed input")
	// ErrInvalidGrouping marks a GroupAndReduce call with unusable keys, measures or reducer.
	ErrInvalidGrouping = errors.New("invalid grouping")
)

// MissingFileError is returned when the input source is absent or unreadable.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data file %q is missing or unreadable: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("data file %q is missing or unreadable", e.Path)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// ParseError reports a cell that could not be interpreted. Row is the 1-based
// data row (the header is not counted); Row 0 refers to the header itself.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("header: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("row %d: column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidFlagError is returned for a workingday flag other than 0 or 1.
type InvalidFlagError struct {
	Row   int
	Value string
}

func (e *InvalidFlagError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: invalid workingday flag %q, expected 0 or 1", e.Row, e.Value)
	}
	return fmt.Sprintf("invalid workingday flag %q, expected 0 or 1", e.Value)
}

// IsInputError reports whether err was caused by the content of the input
// rather than by the system reading it.
func IsInputError(err error) bool {
	var parseErr *ParseError
	var flagErr *InvalidFlagError
	return errors.As(err, &parseErr) || errors.As(err, &flagErr) || errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrMalformedInput)
}
