package store

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable is returned when the file lock could not be acquired
// after the configured number of attempts.
var ErrStorageUnavailable = errors.New("word store is locked by another process")

// ErrDuplicateTerm is returned by AppendUnique when the term is already present.
var ErrDuplicateTerm = errors.New("term already exists in the word store")

// ParseError describes a single malformed row. It is a diagnostic, not a
// failure: callers skip the row for selection, and the store carries the
// raw text so a rewrite puts the row back untouched.
type ParseError struct {
	Line   int
	Fields []string
	// Raw is the row's original text, preserved verbatim on rewrite
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s (row %v)", e.Line, e.Reason, e.Fields)
}
