package target

import (
	"fmt"
	"strings"

	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/typemap"
)

func quoteIdentMs(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

func qualified(t schema.Table) string {
	return quoteIdentMs(t.TargetSchema) + "." + quoteIdentMs(t.TargetName)
}

// createSchemaSQL goes through EXEC because CREATE SCHEMA must be the only
// statement in its batch.
func createSchemaSQL(name string) string {
	stmt := "CREATE SCHEMA " + quoteIdentMs(name)
	return "EXEC('" + strings.ReplaceAll(stmt, "'", "''") + "')"
}

func createTableSQL(t schema.Table, tm *typemap.TypeMap) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = fmt.Sprintf("    %s %s NULL", quoteIdentMs(c.Name), tm.Resolve(c))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", qualified(t), strings.Join(defs, ",\n"))
}

// insertSQL binds every column by name; values are never interpolated.
func insertSQL(t schema.Table) string {
	cols := make([]string, len(t.Columns))
	params := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdentMs(c.Name)
		params[i] = "@" + c.Name
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qualified(t), strings.Join(cols, ", "), strings.Join(params, ", "))
}

func selectColumns(t schema.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdentMs(c.Name)
	}
	return strings.Join(cols, ", ")
}

func nullCountsSQL(t schema.Table, columns []string) string {
	exprs := make([]string, len(columns))
	for i, c := range columns {
		exprs[i] = fmt.Sprintf("COUNT_BIG(*) - COUNT_BIG(%s)", quoteIdentMs(c))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), qualified(t))
}

// DDL returns the statements EnsureTable would run against an empty
// database, for review before provisioning.
func DDL(t schema.Table, tm *typemap.TypeMap) string {
	if tm == nil {
		tm = typemap.DefaultSQLServer()
	}
	return createSchemaSQL(t.TargetSchema) + ";\n" + createTableSQL(t, tm) + ";\n"
}
