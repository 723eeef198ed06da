package target

import (
	"context"
	"database/sql"
	"fmt"

	// SQL Server driver
	_ "github.com/microsoft/go-mssqldb"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/transform"
	"github.com/tributai/tributai-migrate/internal/typemap"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLServerOperator implements Operator using go-mssqldb.
type SQLServerOperator struct {
	db    *sql.DB
	types *typemap.TypeMap
}

// NewSQLServerOperator opens a connection pool to SQL Server and verifies it
// with a ping.
func NewSQLServerOperator(ctx context.Context, connStr string, maxConns int, types *typemap.TypeMap) (*SQLServerOperator, error) {
	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening SQL Server connection: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging SQL Server: %w", err)
	}
	if types == nil {
		types = typemap.DefaultSQLServer()
	}
	return &SQLServerOperator{db: db, types: types}, nil
}

func (o *SQLServerOperator) ServerVersion(ctx context.Context) (string, error) {
	var v string
	if err := o.db.QueryRowContext(ctx, "SELECT @@VERSION").Scan(&v); err != nil {
		return "", fmt.Errorf("querying SQL Server version: %w", err)
	}
	return v, nil
}

func (o *SQLServerOperator) EnsureTable(ctx context.Context, t schema.Table) error {
	var n int
	err := o.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sys.schemas WHERE name = @schema",
		sql.Named("schema", t.TargetSchema)).Scan(&n)
	if err != nil {
		return fmt.Errorf("checking schema %s: %w", t.TargetSchema, err)
	}
	if n == 0 {
		if _, err := o.db.ExecContext(ctx, createSchemaSQL(t.TargetSchema)); err != nil {
			return fmt.Errorf("creating schema %s: %w", t.TargetSchema, err)
		}
	}

	err = o.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @schema AND TABLE_NAME = @table",
		sql.Named("schema", t.TargetSchema), sql.Named("table", t.TargetName)).Scan(&n)
	if err != nil {
		return fmt.Errorf("checking table %s: %w", t, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := o.db.ExecContext(ctx, createTableSQL(t, o.types)); err != nil {
		return fmt.Errorf("creating table %s: %w", t, err)
	}
	return nil
}

func (o *SQLServerOperator) Truncate(ctx context.Context, t schema.Table) error {
	if _, err := o.db.ExecContext(ctx, "TRUNCATE TABLE "+qualified(t)); err != nil {
		return fmt.Errorf("truncating %s: %w", t, err)
	}
	return nil
}

func (o *SQLServerOperator) Insert(ctx context.Context, t schema.Table, rec *transform.Record) error {
	return insert(ctx, o.db, t, rec)
}

func insert(ctx context.Context, ex execer, t schema.Table, rec *transform.Record) error {
	if _, err := ex.ExecContext(ctx, insertSQL(t), rec.NamedArgs()...); err != nil {
		return fmt.Errorf("inserting into %s: %w", t, err)
	}
	return nil
}

type txInserter struct {
	tx *sql.Tx
}

func (ti txInserter) Insert(ctx context.Context, t schema.Table, rec *transform.Record) error {
	return insert(ctx, ti.tx, t, rec)
}

func (o *SQLServerOperator) WithinTx(ctx context.Context, fn func(Inserter) error) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(txInserter{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (o *SQLServerOperator) CountRows(ctx context.Context, t schema.Table) (int64, error) {
	var count int64
	if err := o.db.QueryRowContext(ctx, "SELECT COUNT_BIG(*) FROM "+qualified(t)).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", t, err)
	}
	return count, nil
}

func (o *SQLServerOperator) Keys(ctx context.Context, t schema.Table) ([]int64, error) {
	key := quoteIdentMs(t.KeyColumn)
	rows, err := o.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL", key, qualified(t), key))
	if err != nil {
		return nil, fmt.Errorf("reading keys of %s: %w", t, err)
	}
	defer rows.Close()

	var keys []int64
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key of %s: %w", t, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys of %s: %w", t, err)
	}
	return keys, nil
}

func (o *SQLServerOperator) RowsByKey(ctx context.Context, t schema.Table, key int64) ([]*row.Source, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = @key",
		selectColumns(t), qualified(t), quoteIdentMs(t.KeyColumn))
	rows, err := o.db.QueryContext(ctx, q, sql.Named("key", key))
	if err != nil {
		return nil, fmt.Errorf("reading %s rows with %s = %d: %w", t, t.KeyColumn, key, err)
	}
	defer rows.Close()

	var out []*row.Source
	for rows.Next() {
		vals := make([]any, len(t.Columns))
		ptrs := make([]any, len(t.Columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", t, err)
		}
		src := row.NewSource(len(t.Columns))
		for i, c := range t.Columns {
			src.Set(c.Name, toValue(vals[i], c))
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", t, err)
	}
	return out, nil
}

// DuplicateKeys lists keys that occur more than once, most repeated first.
func (o *SQLServerOperator) DuplicateKeys(ctx context.Context, t schema.Table) ([]DuplicateKey, error) {
	key := quoteIdentMs(t.KeyColumn)
	q := fmt.Sprintf(
		"SELECT %s, COUNT_BIG(*) FROM %s WHERE %s IS NOT NULL GROUP BY %s HAVING COUNT_BIG(*) > 1 ORDER BY COUNT_BIG(*) DESC, %s",
		key, qualified(t), key, key, key)
	rows, err := o.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("finding duplicate keys in %s: %w", t, err)
	}
	defer rows.Close()

	var dups []DuplicateKey
	for rows.Next() {
		var d DuplicateKey
		if err := rows.Scan(&d.Key, &d.Repetitions); err != nil {
			return nil, fmt.Errorf("scanning duplicate key of %s: %w", t, err)
		}
		dups = append(dups, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate keys of %s: %w", t, err)
	}
	return dups, nil
}

func (o *SQLServerOperator) NullCounts(ctx context.Context, t schema.Table, columns []string) ([]NullCount, error) {
	if len(columns) == 0 {
		return nil, nil
	}
	counts := make([]int64, len(columns))
	ptrs := make([]any, len(columns))
	for i := range counts {
		ptrs[i] = &counts[i]
	}
	if err := o.db.QueryRowContext(ctx, nullCountsSQL(t, columns)).Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("counting nulls in %s: %w", t, err)
	}
	out := make([]NullCount, len(columns))
	for i, c := range columns {
		out[i] = NullCount{Column: c, Nulls: counts[i]}
	}
	return out, nil
}

func (o *SQLServerOperator) Range(ctx context.Context, t schema.Table, column string) (ColumnRange, error) {
	col := quoteIdentMs(column)
	var lo, hi sql.NullString
	q := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s", col, col, qualified(t))
	if err := o.db.QueryRowContext(ctx, q).Scan(&lo, &hi); err != nil {
		return ColumnRange{}, fmt.Errorf("reading range of %s.%s: %w", t, column, err)
	}
	return ColumnRange{Column: column, Min: lo.String, Max: hi.String, Empty: !lo.Valid && !hi.Valid}, nil
}

func (o *SQLServerOperator) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}
