package source

import (
	"context"
	"fmt"

	"github.com/tributai/tributai-migrate/internal/schema"
)

// ColumnLister is implemented by readers that can list the columns a
// source table actually has.
type ColumnLister interface {
	ListColumns(ctx context.Context, table schema.Table) ([]string, error)
}

// ListColumns returns the column names of the source table in ordinal
// order. A missing table yields no columns and no error.
func (r *PostgresReader) ListColumns(ctx context.Context, table schema.Table) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := r.pool.Query(ctx, query, table.SourceSchema, table.SourceName)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table.SourceName, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table.SourceName, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// MissingColumns returns the expected columns of t absent from found.
// Extra source columns are ignored; they are never read.
func MissingColumns(t schema.Table, found []string) []string {
	have := make(map[string]bool, len(found))
	for _, c := range found {
		have[c] = true
	}
	var missing []string
	for _, c := range t.Columns {
		if !have[c.Name] {
			missing = append(missing, c.Name)
		}
	}
	return missing
}

// presentColumns returns the expected columns of t that appear in found. When
// found is empty the table is unknown to the catalog and every expected
// column is returned, so the query reports the real error.
func presentColumns(t schema.Table, found []string) []schema.Column {
	if len(found) == 0 {
		return t.Columns
	}
	have := make(map[string]bool, len(found))
	for _, c := range found {
		have[c] = true
	}
	cols := make([]schema.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if have[c.Name] {
			cols = append(cols, c)
		}
	}
	return cols
}
