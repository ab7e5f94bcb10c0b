package ingest

import (
	"fmt"
	"strings"
)

// ClientInputError means the record itself was rejected. Nothing was written.
type ClientInputError struct {
	Err error
}

func (e *ClientInputError) Error() string { return e.Err.Error() }
func (e *ClientInputError) Unwrap() error { return e.Err }

// StoreError wraps any failure of the destination store.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DuplicateError is returned when the duplicate check finds the natural key
// already stored.
type DuplicateError struct {
	Table string
	Key   map[string]any
	Order []string
}

func (e *DuplicateError) Error() string {
	parts := make([]string, len(e.Order))
	for i, col := range e.Order {
		parts[i] = fmt.Sprintf("%s=%v", col, e.Key[col])
	}
	return fmt.Sprintf("duplicate %s entry (%s)", e.Table, strings.Join(parts, ", "))
}
