package source

import (
	"context"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
)

// Reader provides read-only, windowed access to the source tables.
type Reader interface {
	Connect(ctx context.Context) error
	// ServerVersion reports the server version string; used as a liveness check.
	ServerVersion(ctx context.Context) (string, error)
	CountRows(ctx context.Context, table schema.Table) (int64, error)
	// FetchWindow returns at most limit rows starting at offset. Fewer rows
	// than limit means the end of the table was reached.
	FetchWindow(ctx context.Context, table schema.Table, offset, limit int) ([]*row.Source, error)
	// Keys returns every non-null key value of the table.
	Keys(ctx context.Context, table schema.Table) ([]int64, error)
	Close() error
}
