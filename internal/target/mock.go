package target

import (
	"context"
	"fmt"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/transform"
)

// MockOperator is a test double for the Operator interface. Inserted
// records are kept per target table.
type MockOperator struct {
	Version   string
	EnsureErr error
	TruncErr  error
	CloseErr  error

	// InsertErrAt fails the insert whose record has this id_0 value.
	InsertErrAt *int32
	InsertErr   error

	RowCounts   map[string]int64 // overrides the count of inserted records
	RowCountErr error
	KeySets     map[string][]int64 // overrides the keys of inserted records
	KeysErr     error
	Rows        map[string]map[int64][]*row.Source
	RowsErr     error
	Duplicates  map[string][]DuplicateKey
	DupErr      error
	Nulls       map[string][]NullCount
	NullErr     error
	Ranges      map[string]ColumnRange // key: "table.column"
	RangeErr    error

	// Track calls
	Ensured     []string
	Truncated   []string
	Inserted    map[string][]*transform.Record
	Commits     int
	Rollbacks   int
	Closed      bool
	TxStarted   int
	InsertCalls int
}

func (m *MockOperator) ServerVersion(_ context.Context) (string, error) {
	if m.Version == "" {
		return "Microsoft SQL Server (mock)", nil
	}
	return m.Version, nil
}

func (m *MockOperator) EnsureTable(_ context.Context, t schema.Table) error {
	if m.EnsureErr != nil {
		return m.EnsureErr
	}
	m.Ensured = append(m.Ensured, t.String())
	return nil
}

func (m *MockOperator) Truncate(_ context.Context, t schema.Table) error {
	if m.TruncErr != nil {
		return m.TruncErr
	}
	m.Truncated = append(m.Truncated, t.String())
	delete(m.Inserted, t.String())
	return nil
}

func (m *MockOperator) Insert(_ context.Context, t schema.Table, rec *transform.Record) error {
	m.InsertCalls++
	if m.InsertErrAt != nil && rec.ID0.Valid && rec.ID0.Int32 == *m.InsertErrAt {
		if m.InsertErr != nil {
			return m.InsertErr
		}
		return fmt.Errorf("insert of id_0 %d rejected", rec.ID0.Int32)
	}
	if m.Inserted == nil {
		m.Inserted = make(map[string][]*transform.Record)
	}
	m.Inserted[t.String()] = append(m.Inserted[t.String()], rec)
	return nil
}

// WithinTx buffers inserts and only publishes them when fn succeeds.
func (m *MockOperator) WithinTx(ctx context.Context, fn func(Inserter) error) error {
	m.TxStarted++
	buf := &MockOperator{InsertErrAt: m.InsertErrAt, InsertErr: m.InsertErr}
	if err := fn(buf); err != nil {
		m.Rollbacks++
		m.InsertCalls += buf.InsertCalls
		return err
	}
	m.InsertCalls += buf.InsertCalls
	for table, recs := range buf.Inserted {
		if m.Inserted == nil {
			m.Inserted = make(map[string][]*transform.Record)
		}
		m.Inserted[table] = append(m.Inserted[table], recs...)
	}
	m.Commits++
	return nil
}

func (m *MockOperator) CountRows(_ context.Context, t schema.Table) (int64, error) {
	if m.RowCountErr != nil {
		return 0, m.RowCountErr
	}
	if c, ok := m.RowCounts[t.TargetName]; ok {
		return c, nil
	}
	return int64(len(m.Inserted[t.String()])), nil
}

func (m *MockOperator) Keys(_ context.Context, t schema.Table) ([]int64, error) {
	if m.KeysErr != nil {
		return nil, m.KeysErr
	}
	if k, ok := m.KeySets[t.TargetName]; ok {
		return k, nil
	}
	var keys []int64
	for _, rec := range m.Inserted[t.String()] {
		if rec.ID0.Valid {
			keys = append(keys, int64(rec.ID0.Int32))
		}
	}
	return keys, nil
}

func (m *MockOperator) RowsByKey(_ context.Context, t schema.Table, key int64) ([]*row.Source, error) {
	if m.RowsErr != nil {
		return nil, m.RowsErr
	}
	return m.Rows[t.TargetName][key], nil
}

func (m *MockOperator) DuplicateKeys(_ context.Context, t schema.Table) ([]DuplicateKey, error) {
	if m.DupErr != nil {
		return nil, m.DupErr
	}
	return m.Duplicates[t.TargetName], nil
}

func (m *MockOperator) NullCounts(_ context.Context, t schema.Table, columns []string) ([]NullCount, error) {
	if m.NullErr != nil {
		return nil, m.NullErr
	}
	if n, ok := m.Nulls[t.TargetName]; ok {
		return n, nil
	}
	out := make([]NullCount, len(columns))
	for i, c := range columns {
		out[i] = NullCount{Column: c}
	}
	return out, nil
}

func (m *MockOperator) Range(_ context.Context, t schema.Table, column string) (ColumnRange, error) {
	if m.RangeErr != nil {
		return ColumnRange{}, m.RangeErr
	}
	if r, ok := m.Ranges[t.TargetName+"."+column]; ok {
		return r, nil
	}
	return ColumnRange{Column: column, Empty: true}, nil
}

func (m *MockOperator) Close() error {
	m.Closed = true
	return m.CloseErr
}
