package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tributai/tributai-migrate/internal/config"
	"github.com/tributai/tributai-migrate/internal/lock"
	"github.com/tributai/tributai-migrate/internal/migration"
	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/source"
	"github.com/tributai/tributai-migrate/internal/target"
	"github.com/tributai/tributai-migrate/internal/typemap"
)

type fixture struct {
	engine *Engine
	reader *source.MockReader
	op     *target.MockOperator
}

func testEngine(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Source.Host, cfg.Source.Database, cfg.Source.Username = "pg.local", "catastro", "reader"
	cfg.Target.Host, cfg.Target.Database, cfg.Target.Username = "sql01", "TRIBUTAI", "writer"

	f := &fixture{
		reader: &source.MockReader{Rows: map[string][]*row.Source{
			schema.RuralAreaTable: source.SyntheticRows(120),
			schema.UrbanAreaTable: source.SyntheticRows(30),
		}},
		op: &target.MockOperator{},
	}
	e := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.lockDir = t.TempDir()
	e.newSource = func(config.SourceConfig, bool) source.Reader { return f.reader }
	e.newTarget = func(context.Context, config.TargetConfig, *typemap.TypeMap) (target.Operator, error) { return f.op, nil }
	f.engine = e
	return f
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Migration.TypeOverrides = map[string]string{"geom": "geometry"}
	e := New(cfg, nil)
	if e.Config != cfg {
		t.Error("Config not set")
	}
	if e.Logger == nil {
		t.Error("Logger not set")
	}
	if !e.TypeMap.IsOverridden("geom") {
		t.Error("expected geom override applied")
	}
}

func TestTables(t *testing.T) {
	f := testEngine(t)

	tables, err := f.engine.Tables(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 2 || tables[0].SourceName != schema.RuralAreaTable {
		t.Errorf("expected configured tables rural then urban, got %v", tables)
	}
	if tables[0].TargetSchema != "TRIBUTAI" {
		t.Errorf("expected TRIBUTAI target schema, got %s", tables[0].TargetSchema)
	}

	if _, err := f.engine.Tables([]string{"predios"}); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestMigrate(t *testing.T) {
	f := testEngine(t)
	var updates int

	sum, err := f.engine.Migrate(context.Background(), nil, f.engine.MigrationOptions(), func(migration.Progress) { updates++ })
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if sum.Rows != 150 || sum.Phase != "completed" {
		t.Errorf("unexpected summary %+v", sum)
	}
	if updates != 4 {
		t.Errorf("expected 4 progress updates (3 + 1), got %d", updates)
	}
	if !f.reader.Connected || !f.reader.Closed || !f.op.Closed {
		t.Error("expected both endpoints opened and closed")
	}

	lockPath := lock.PathFor(f.engine.lockDir, "sql01", "TRIBUTAI")
	if held, _, _ := lock.IsHeld(lockPath); held {
		t.Error("expected lock released after the run")
	}
}

func TestMigrate_FailureClosesPools(t *testing.T) {
	f := testEngine(t)
	f.op.EnsureErr = errors.New("permission denied")

	_, err := f.engine.Migrate(context.Background(), nil, f.engine.MigrationOptions(), nil)
	var te *migration.TableError
	if !errors.As(err, &te) || te.Stage != migration.StageProvision {
		t.Fatalf("expected provision TableError, got %v", err)
	}
	if !f.reader.Closed || !f.op.Closed {
		t.Error("expected both endpoints closed after failure")
	}
}

func TestMigrate_LockHeld(t *testing.T) {
	f := testEngine(t)
	lockPath := lock.PathFor(f.engine.lockDir, "sql01", "TRIBUTAI")
	if err := lock.Acquire(lockPath); err != nil {
		t.Fatal(err)
	}
	defer lock.Release(lockPath)

	if _, err := f.engine.Migrate(context.Background(), nil, f.engine.MigrationOptions(), nil); err == nil {
		t.Fatal("expected lock error")
	}
	if f.reader.Connected {
		t.Error("source should not be opened while the lock is held")
	}
}

func TestMigrate_SourceConnectFails(t *testing.T) {
	f := testEngine(t)
	f.reader.ConnectErr = errors.New("no route to host")

	_, err := f.engine.Migrate(context.Background(), nil, f.engine.MigrationOptions(), nil)
	if err == nil || !strings.Contains(err.Error(), "connecting to source pg.local/catastro") {
		t.Fatalf("expected source connection error, got %v", err)
	}
}

func TestValidate_AfterMigrate(t *testing.T) {
	f := testEngine(t)
	if _, err := f.engine.Migrate(context.Background(), nil, f.engine.MigrationOptions(), nil); err != nil {
		t.Fatal(err)
	}

	checks := 0
	res, err := f.engine.Validate(context.Background(), nil, func(string, string, bool) { checks++ })
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Status != "PASS" {
		t.Errorf("expected PASS, got %s", res.Status)
	}
	if checks == 0 {
		t.Error("expected validation callbacks")
	}
}

func TestValidate_TargetConnectFails(t *testing.T) {
	f := testEngine(t)
	f.engine.newTarget = func(context.Context, config.TargetConfig, *typemap.TypeMap) (target.Operator, error) {
		return nil, errors.New("login failed")
	}

	if _, err := f.engine.Validate(context.Background(), nil, nil); err == nil {
		t.Fatal("expected connection error")
	}
	if !f.reader.Closed {
		t.Error("expected source closed when the destination cannot be opened")
	}
}

func TestProvision(t *testing.T) {
	f := testEngine(t)
	tables, err := f.engine.Provision(context.Background(), []string{schema.UrbanAreaTable})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if len(tables) != 1 || len(f.op.Ensured) != 1 || f.op.Ensured[0] != "TRIBUTAI.diferencia_urbana_area" {
		t.Errorf("unexpected provisioning: %v", f.op.Ensured)
	}
}

func TestCheck(t *testing.T) {
	f := testEngine(t)
	f.reader.Version = "PostgreSQL 15.4"

	statuses, err := f.engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(statuses) != 2 || !statuses[0].OK || !statuses[1].OK {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
	if statuses[0].Version != "PostgreSQL 15.4" {
		t.Errorf("unexpected source version %q", statuses[0].Version)
	}
}

func TestCheck_ReportsBothFailures(t *testing.T) {
	f := testEngine(t)
	f.reader.ConnectErr = errors.New("pg down")
	f.engine.newTarget = func(context.Context, config.TargetConfig, *typemap.TypeMap) (target.Operator, error) {
		return nil, errors.New("mssql down")
	}

	statuses, err := f.engine.Check(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "pg down") || !strings.Contains(err.Error(), "mssql down") {
		t.Errorf("expected both failures in %v", err)
	}
	if statuses[0].OK || statuses[1].OK {
		t.Errorf("expected both endpoints failed, got %+v", statuses)
	}
}

func TestExtract(t *testing.T) {
	f := testEngine(t)
	path := filepath.Join(t.TempDir(), "urbana.json")

	n, err := f.engine.Extract(context.Background(), schema.UrbanAreaTable, path, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if n != 30 {
		t.Errorf("expected 30 rows, got %d", n)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) != 30 {
		t.Errorf("unexpected dump (err=%v)", err)
	}
}

func TestEndpoints(t *testing.T) {
	f := testEngine(t)
	src, tgt := f.engine.Endpoints()
	if src.Type != "postgresql" || src.Schema != "public" {
		t.Errorf("unexpected source endpoint %+v", src)
	}
	if tgt.Type != "sqlserver" || tgt.Database != "TRIBUTAI" {
		t.Errorf("unexpected target endpoint %+v", tgt)
	}
}

func TestCheck_MissingSourceColumns(t *testing.T) {
	f := testEngine(t)
	f.reader.ColumnSets = map[string][]string{schema.UrbanAreaTable: {"id_0", "geom"}}

	statuses, err := f.engine.Check(context.Background())
	if err == nil {
		t.Fatal("expected column drift error")
	}
	src := statuses[0]
	if src.OK {
		t.Error("expected source status to fail")
	}
	if len(src.MissingColumns[schema.UrbanAreaTable]) != 19 {
		t.Errorf("expected 19 missing columns, got %v", src.MissingColumns)
	}
	if _, ok := src.MissingColumns[schema.RuralAreaTable]; ok {
		t.Error("rural table should have every column")
	}
	if !statuses[1].OK {
		t.Error("destination should still be OK")
	}
}
