package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
)

// PostgresReader implements Reader for PostgreSQL using pgx.
type PostgresReader struct {
	connStr    string
	maxConns   int32
	orderByKey bool
	pool       *pgxpool.Pool

	// selects caches the window query per table, built from the columns
	// the table actually has.
	selects map[string]string
}

// NewPostgresReader creates a new PostgreSQL reader. When orderByKey is set,
// windows are read in key order so that pagination is deterministic.
func NewPostgresReader(connStr string, maxConns int32, orderByKey bool) *PostgresReader {
	if maxConns <= 0 {
		maxConns = 5
	}
	return &PostgresReader{connStr: connStr, maxConns: maxConns, orderByKey: orderByKey}
}

func (r *PostgresReader) Connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(r.connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = r.maxConns
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	r.pool = pool
	return nil
}

func (r *PostgresReader) ServerVersion(ctx context.Context) (string, error) {
	var v string
	if err := r.pool.QueryRow(ctx, "SELECT version()").Scan(&v); err != nil {
		return "", fmt.Errorf("querying PostgreSQL version: %w", err)
	}
	return v, nil
}

func (r *PostgresReader) CountRows(ctx context.Context, table schema.Table) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, countQuery(table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table.SourceName, err)
	}
	return count, nil
}

func (r *PostgresReader) FetchWindow(ctx context.Context, table schema.Table, offset, limit int) ([]*row.Source, error) {
	query, err := r.selectFor(ctx, table)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching %s at offset %d: %w", table.SourceName, offset, err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	out := make([]*row.Source, 0, limit)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table.SourceName, err)
		}
		src := row.NewSource(len(descs))
		for i, d := range descs {
			src.Set(d.Name, toValue(vals[i]))
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", table.SourceName, err)
	}
	return out, nil
}

// selectFor returns the window query of the table. Expected columns the
// table lacks are left out of the select list and read as NULL.
func (r *PostgresReader) selectFor(ctx context.Context, table schema.Table) (string, error) {
	key := table.SourceSchema + "." + table.SourceName
	if q, ok := r.selects[key]; ok {
		return q, nil
	}
	found, err := r.ListColumns(ctx, table)
	if err != nil {
		return "", err
	}
	q := windowQuery(table, presentColumns(table, found), r.orderByKey)
	if r.selects == nil {
		r.selects = make(map[string]string)
	}
	r.selects[key] = q
	return q, nil
}

func (r *PostgresReader) Keys(ctx context.Context, table schema.Table) ([]int64, error) {
	sql := fmt.Sprintf("SELECT %s::bigint FROM %s WHERE %s IS NOT NULL",
		quoteIdentPg(table.KeyColumn), qualified(table), quoteIdentPg(table.KeyColumn))
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("reading keys of %s: %w", table.SourceName, err)
	}
	defer rows.Close()

	var keys []int64
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key of %s: %w", table.SourceName, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys of %s: %w", table.SourceName, err)
	}
	return keys, nil
}

func (r *PostgresReader) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func qualified(t schema.Table) string {
	return quoteIdentPg(t.SourceSchema) + "." + quoteIdentPg(t.SourceName)
}

func countQuery(t schema.Table) string {
	return "SELECT COUNT(*) FROM " + qualified(t)
}

// windowQuery selects the given columns. Geometry columns are cast to text
// so they arrive in their textual (hex EWKB) form. Rows are ordered by the
// key only when it is among the selected columns.
func windowQuery(t schema.Table, cols []schema.Column, orderByKey bool) string {
	exprs := make([]string, len(cols))
	hasKey := false
	for i, c := range cols {
		if c.Geometry {
			exprs[i] = fmt.Sprintf("%s::text AS %s", quoteIdentPg(c.Name), quoteIdentPg(c.Name))
		} else {
			exprs[i] = quoteIdentPg(c.Name)
		}
		hasKey = hasKey || c.Name == t.KeyColumn
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(exprs, ", "), qualified(t))
	if orderByKey && hasKey {
		fmt.Fprintf(&b, " ORDER BY %s", quoteIdentPg(t.KeyColumn))
	}
	b.WriteString(" LIMIT $1 OFFSET $2")
	return b.String()
}

func quoteIdentPg(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
