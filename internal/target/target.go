package target

import (
	"context"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/transform"
)

// Inserter writes a single record into a destination table.
type Inserter interface {
	Insert(ctx context.Context, table schema.Table, rec *transform.Record) error
}

// Operator defines operations on the SQL Server destination.
type Operator interface {
	Inserter

	ServerVersion(ctx context.Context) (string, error)

	// EnsureTable creates the destination schema and table when missing.
	// Calling it on an existing table is a no-op.
	EnsureTable(ctx context.Context, table schema.Table) error
	Truncate(ctx context.Context, table schema.Table) error

	// WithinTx runs fn inside one destination transaction. The transaction
	// is rolled back when fn returns an error and committed otherwise.
	WithinTx(ctx context.Context, fn func(Inserter) error) error

	// Validation support
	CountRows(ctx context.Context, table schema.Table) (int64, error)
	Keys(ctx context.Context, table schema.Table) ([]int64, error)
	RowsByKey(ctx context.Context, table schema.Table, key int64) ([]*row.Source, error)
	DuplicateKeys(ctx context.Context, table schema.Table) ([]DuplicateKey, error)
	NullCounts(ctx context.Context, table schema.Table, columns []string) ([]NullCount, error)
	Range(ctx context.Context, table schema.Table, column string) (ColumnRange, error)

	Close() error
}

// DuplicateKey is a key value that occurs more than once in a table.
type DuplicateKey struct {
	Key         int64 `json:"key"`
	Repetitions int64 `json:"repetitions"`
}

// NullCount is the number of NULLs found in a column.
type NullCount struct {
	Column string `json:"column"`
	Nulls  int64  `json:"nulls"`
}

// ColumnRange holds the minimum and maximum of a column in text form.
// Empty is set when the column has no non-null values.
type ColumnRange struct {
	Column string `json:"column"`
	Min    string `json:"min"`
	Max    string `json:"max"`
	Empty  bool   `json:"empty,omitempty"`
}
