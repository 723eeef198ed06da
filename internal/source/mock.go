package source

import (
	"context"
	"fmt"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
)

// Window records one FetchWindow call made against a MockReader.
type Window struct {
	Table  string
	Offset int
	Limit  int
}

// MockReader is a test double for the Reader interface.
type MockReader struct {
	ConnectErr error
	Version    string

	RowCounts   map[string]int64
	RowCountErr error
	Rows        map[string][]*row.Source // served window by window
	FetchErr    error
	FetchErrAt  int // offset at which FetchErr is returned; -1 for every call
	KeySets     map[string][]int64
	KeysErr     error
	ColumnSets  map[string][]string // nil means every expected column exists
	ColumnsErr  error

	Connected bool
	Closed    bool
	Fetches   []Window
}

func (m *MockReader) Connect(_ context.Context) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.Connected = true
	return nil
}

func (m *MockReader) ServerVersion(_ context.Context) (string, error) {
	if m.Version == "" {
		return "PostgreSQL (mock)", nil
	}
	return m.Version, nil
}

func (m *MockReader) CountRows(_ context.Context, table schema.Table) (int64, error) {
	if m.RowCountErr != nil {
		return 0, m.RowCountErr
	}
	if m.RowCounts != nil {
		if c, ok := m.RowCounts[table.SourceName]; ok {
			return c, nil
		}
	}
	if rows, ok := m.Rows[table.SourceName]; ok {
		return int64(len(rows)), nil
	}
	return 0, fmt.Errorf("no row count configured for table %s", table.SourceName)
}

func (m *MockReader) FetchWindow(_ context.Context, table schema.Table, offset, limit int) ([]*row.Source, error) {
	m.Fetches = append(m.Fetches, Window{Table: table.SourceName, Offset: offset, Limit: limit})
	if m.FetchErr != nil && (m.FetchErrAt < 0 || m.FetchErrAt == offset) {
		return nil, m.FetchErr
	}
	rows := m.Rows[table.SourceName]
	if offset >= len(rows) {
		return nil, nil
	}
	end := min(offset+limit, len(rows))
	return rows[offset:end], nil
}

func (m *MockReader) Keys(_ context.Context, table schema.Table) ([]int64, error) {
	if m.KeysErr != nil {
		return nil, m.KeysErr
	}
	return m.KeySets[table.SourceName], nil
}

func (m *MockReader) ListColumns(_ context.Context, table schema.Table) ([]string, error) {
	if m.ColumnsErr != nil {
		return nil, m.ColumnsErr
	}
	if cols, ok := m.ColumnSets[table.SourceName]; ok {
		return cols, nil
	}
	return table.ColumnNames(), nil
}

func (m *MockReader) Close() error {
	m.Closed = true
	return nil
}

// SyntheticRows builds n source rows with id_0 = 1..n and a few populated
// columns, for tests that exercise the migration loop.
func SyntheticRows(n int) []*row.Source {
	out := make([]*row.Source, n)
	for i := range out {
		src := row.NewSource(4)
		src.Set("id_0", row.Integer(int64(i+1)))
		src.Set("geom", row.Text("0101000000"))
		src.Set("avaluo_ter", row.Decimal("1000.00"))
		src.Set("terreno_co", row.Text(fmt.Sprintf("T-%d", i+1)))
		out[i] = src
	}
	return out
}
