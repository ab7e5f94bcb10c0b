package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/vehicle-ingest/internal/schema"
)

// ErrRowWidth is returned when a row does not carry one value per column.
var ErrRowWidth = errors.New("row width does not match column count")

// Store defines the operations the ingestion layer needs from a destination
// store. Rows are positional and aligned to columns.
type Store interface {
	EnsureTable(ctx context.Context, t *schema.Table) error
	Insert(ctx context.Context, table string, rows [][]any, columns []string) error
	Exists(ctx context.Context, t *schema.Table, key map[string]any) (bool, error)
	Close(ctx context.Context) error
}

// checkRows rejects a batch before anything reaches the store.
func checkRows(rows [][]any, columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrRowWidth)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("%w: row %d has %d values for %d columns", ErrRowWidth, i, len(row), len(columns))
		}
	}
	return nil
}

// keyTerm is one column of a natural-key lookup.
type keyTerm struct {
	Column string
	Value  any
}

// keyTerms orders the lookup by the table's key columns.
func keyTerms(t *schema.Table, key map[string]any) ([]keyTerm, error) {
	if len(t.Keys) == 0 {
		return nil, fmt.Errorf("table %s has no key columns", t.Name)
	}
	terms := make([]keyTerm, len(t.Keys))
	for i, col := range t.Keys {
		terms[i] = keyTerm{Column: col, Value: key[col]}
	}
	return terms, nil
}
