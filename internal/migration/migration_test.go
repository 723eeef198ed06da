package migration

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/source"
	"github.com/tributai/tributai-migrate/internal/target"
)

func rural() schema.Table { return schema.DifferenceArea(schema.RuralAreaTable, "", "") }
func urban() schema.Table { return schema.DifferenceArea(schema.UrbanAreaTable, "", "") }

func TestMigrateTable_120Rows(t *testing.T) {
	reader := &source.MockReader{Rows: map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(120)}}
	tgt := &target.MockOperator{}
	orch := NewOrchestrator(reader, tgt, Options{BatchSize: 50}, nil)

	var updates []Progress
	res, err := orch.MigrateTable(context.Background(), rural(), func(p Progress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantWindows := []source.Window{
		{Table: schema.RuralAreaTable, Offset: 0, Limit: 50},
		{Table: schema.RuralAreaTable, Offset: 50, Limit: 50},
		{Table: schema.RuralAreaTable, Offset: 100, Limit: 50},
	}
	if len(reader.Fetches) != len(wantWindows) {
		t.Fatalf("expected %d fetches, got %d: %+v", len(wantWindows), len(reader.Fetches), reader.Fetches)
	}
	for i, w := range wantWindows {
		if reader.Fetches[i] != w {
			t.Errorf("fetch %d = %+v, want %+v", i, reader.Fetches[i], w)
		}
	}

	if got := len(tgt.Inserted[rural().String()]); got != 120 {
		t.Errorf("inserted %d rows, want 120", got)
	}
	if res.Written != 120 || res.Total != 120 || res.State != "completed" || res.Windows != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(updates) != 3 || updates[2].Processed != 120 || updates[2].Percent() != 100 {
		t.Errorf("unexpected progress updates: %+v", updates)
	}
	if len(tgt.Ensured) != 1 {
		t.Errorf("table should be provisioned once, got %v", tgt.Ensured)
	}
}

// A full window never ends the loop, so a table whose size is a multiple of
// the batch size takes one more, empty, fetch.
func TestMigrateTable_FetchCount(t *testing.T) {
	tests := []struct {
		rows, batch, fetches int
	}{
		{0, 50, 1},
		{1, 50, 1},
		{50, 50, 2},
		{100, 50, 3},
		{101, 50, 3},
		{7, 3, 3},
		{9, 3, 4},
	}
	for _, tt := range tests {
		reader := &source.MockReader{Rows: map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(tt.rows)}}
		tgt := &target.MockOperator{}
		res, err := NewOrchestrator(reader, tgt, Options{BatchSize: tt.batch}, nil).
			MigrateTable(context.Background(), rural(), nil)
		if err != nil {
			t.Fatalf("rows=%d batch=%d: %v", tt.rows, tt.batch, err)
		}
		if len(reader.Fetches) != tt.fetches {
			t.Errorf("rows=%d batch=%d: %d fetches, want %d", tt.rows, tt.batch, len(reader.Fetches), tt.fetches)
		}
		if res.Written != int64(tt.rows) {
			t.Errorf("rows=%d batch=%d: wrote %d", tt.rows, tt.batch, res.Written)
		}
	}
}

func TestMigrateTable_SourceShrinks(t *testing.T) {
	// Counted 120 but only 70 rows are left when the windows are read.
	reader := &source.MockReader{
		RowCounts: map[string]int64{schema.RuralAreaTable: 120},
		Rows:      map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(70)},
	}
	tgt := &target.MockOperator{}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	res, err := NewOrchestrator(reader, tgt, Options{BatchSize: 50}, logger).
		MigrateTable(context.Background(), rural(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reader.Fetches) != 2 || res.Written != 70 {
		t.Errorf("fetches=%d written=%d, want 2 and 70", len(reader.Fetches), res.Written)
	}
	if !strings.Contains(buf.String(), "source shrank during migration") {
		t.Errorf("expected a warning about the shrunk source, got:\n%s", buf.String())
	}
}

func TestMigrateTable_SourceGrows(t *testing.T) {
	// Counted 100 but 130 rows are there by the time the windows are read.
	reader := &source.MockReader{
		RowCounts: map[string]int64{schema.RuralAreaTable: 100},
		Rows:      map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(130)},
	}
	tgt := &target.MockOperator{}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var last Progress
	res, err := NewOrchestrator(reader, tgt, Options{BatchSize: 50}, logger).
		MigrateTable(context.Background(), rural(), func(p Progress) { last = p })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reader.Fetches) != 3 || res.Written != 130 || res.State != "completed" {
		t.Errorf("fetches=%d written=%d state=%s, want 3, 130, completed", len(reader.Fetches), res.Written, res.State)
	}
	if got := len(tgt.Inserted[rural().String()]); got != 130 {
		t.Errorf("inserted %d rows, want 130", got)
	}
	if last.Processed != 130 || last.Percent() != 100 {
		t.Errorf("unexpected final progress: %+v", last)
	}
	if !strings.Contains(buf.String(), "source grew during migration") {
		t.Errorf("expected a warning about the grown source, got:\n%s", buf.String())
	}
}

func TestMigrateTable_NonNumericDecimalStillWritten(t *testing.T) {
	rows := source.SyntheticRows(3)
	rows[1].Set("avaluo_ter", row.Text("N/A"))
	reader := &source.MockReader{Rows: map[string][]*row.Source{schema.RuralAreaTable: rows}}
	tgt := &target.MockOperator{}

	if _, err := NewOrchestrator(reader, tgt, Options{BatchSize: 50}, nil).
		MigrateTable(context.Background(), rural(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inserted := tgt.Inserted[rural().String()]
	if len(inserted) != 3 {
		t.Fatalf("expected 3 rows written, got %d", len(inserted))
	}
	if inserted[1].AvaluoTer.Valid {
		t.Errorf("avaluo_ter should be null, got %+v", inserted[1].AvaluoTer)
	}
	if !inserted[1].TerrenoCo.Valid {
		t.Error("other fields should still be populated")
	}
}

func TestMigrateTable_WriteFailure(t *testing.T) {
	failAt := int32(75)
	reader := &source.MockReader{Rows: map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(120)}}
	tgt := &target.MockOperator{InsertErrAt: &failAt, InsertErr: errors.New("arithmetic overflow")}

	var updates []Progress
	res, err := NewOrchestrator(reader, tgt, Options{BatchSize: 50}, nil).
		MigrateTable(context.Background(), rural(), func(p Progress) { updates = append(updates, p) })

	var te *TableError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TableError, got %v", err)
	}
	if te.Stage != StageWrite || te.Offset != 50 {
		t.Errorf("stage=%s offset=%d, want write at 50", te.Stage, te.Offset)
	}
	var re *RowError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RowError in chain, got %v", err)
	}
	if re.Index != 24 || re.Key != int32(75) {
		t.Errorf("row error index=%d key=%v", re.Index, re.Key)
	}

	// Per-row autocommit: the rows before the failing one stay written.
	if got := len(tgt.Inserted[rural().String()]); got != 74 {
		t.Errorf("inserted %d rows, want 74", got)
	}
	if len(updates) != 1 || updates[0].Processed != 50 {
		t.Errorf("progress must not advance past the failed window: %+v", updates)
	}
	if len(reader.Fetches) != 2 {
		t.Errorf("no window after the failure should be fetched, got %d fetches", len(reader.Fetches))
	}
	if res.State != "failed" || res.Written != 74 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestMigrateTable_TransactionalRollsBackWindow(t *testing.T) {
	failAt := int32(75)
	reader := &source.MockReader{Rows: map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(120)}}
	tgt := &target.MockOperator{InsertErrAt: &failAt}

	res, err := NewOrchestrator(reader, tgt, Options{BatchSize: 50, Transactional: true}, nil).
		MigrateTable(context.Background(), rural(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := len(tgt.Inserted[rural().String()]); got != 50 {
		t.Errorf("inserted %d rows, want only the first window (50)", got)
	}
	if tgt.Commits != 1 || tgt.Rollbacks != 1 {
		t.Errorf("commits=%d rollbacks=%d", tgt.Commits, tgt.Rollbacks)
	}
	if res.Written != 50 {
		t.Errorf("written = %d, want 50", res.Written)
	}
}

func TestMigrateTable_Stages(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		reader *source.MockReader
		tgt    *target.MockOperator
		opts   Options
		stage  Stage
	}{
		{"provision", &source.MockReader{}, &target.MockOperator{EnsureErr: boom}, Options{}, StageProvision},
		{"truncate", &source.MockReader{}, &target.MockOperator{TruncErr: boom}, Options{Truncate: true}, StageTruncate},
		{"count", &source.MockReader{RowCountErr: boom}, &target.MockOperator{}, Options{}, StageCount},
		{"fetch", &source.MockReader{
			Rows:       map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(10)},
			FetchErr:   boom,
			FetchErrAt: -1,
		}, &target.MockOperator{}, Options{}, StageFetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrchestrator(tt.reader, tt.tgt, tt.opts, nil).MigrateTable(context.Background(), rural(), nil)
			var te *TableError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TableError, got %v", err)
			}
			if te.Stage != tt.stage {
				t.Errorf("stage = %s, want %s", te.Stage, tt.stage)
			}
			if !errors.Is(err, boom) {
				t.Errorf("underlying error lost: %v", err)
			}
		})
	}
}

func TestMigrateTable_Truncate(t *testing.T) {
	reader := &source.MockReader{Rows: map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(5)}}
	tgt := &target.MockOperator{}
	if _, err := NewOrchestrator(reader, tgt, Options{Truncate: true}, nil).
		MigrateTable(context.Background(), rural(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tgt.Truncated) != 1 {
		t.Errorf("expected one truncate, got %v", tgt.Truncated)
	}
}

func TestMigrateTable_Cancelled(t *testing.T) {
	reader := &source.MockReader{Rows: map[string][]*row.Source{schema.RuralAreaTable: source.SyntheticRows(5)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOrchestrator(reader, &target.MockOperator{}, Options{}, nil).MigrateTable(ctx, rural(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(reader.Fetches) != 0 {
		t.Errorf("no window should be fetched after cancellation")
	}
}

func TestRun_StopsAtFirstFailedTable(t *testing.T) {
	failAt := int32(3)
	reader := &source.MockReader{Rows: map[string][]*row.Source{
		schema.RuralAreaTable: source.SyntheticRows(10),
		schema.UrbanAreaTable: source.SyntheticRows(10),
	}}
	tgt := &target.MockOperator{InsertErrAt: &failAt}

	summary, err := NewOrchestrator(reader, tgt, Options{BatchSize: 5}, nil).
		Run(context.Background(), []schema.Table{rural(), urban()}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if summary.Phase != "failed" || len(summary.Tables) != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	for _, f := range reader.Fetches {
		if f.Table == schema.UrbanAreaTable {
			t.Fatal("urban table must not be read after the rural table failed")
		}
	}
	for _, e := range tgt.Ensured {
		if e == urban().String() {
			t.Fatal("urban table must not be provisioned after the rural table failed")
		}
	}
}

func TestRun_AllTables(t *testing.T) {
	reader := &source.MockReader{Rows: map[string][]*row.Source{
		schema.RuralAreaTable: source.SyntheticRows(60),
		schema.UrbanAreaTable: source.SyntheticRows(40),
	}}
	tgt := &target.MockOperator{}

	summary, err := NewOrchestrator(reader, tgt, Options{}, nil).
		Run(context.Background(), []schema.Table{rural(), urban()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Phase != "completed" || summary.Rows != 100 || len(summary.Tables) != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.Tables[0].Table != rural().String() {
		t.Errorf("rural table must be migrated first, got %s", summary.Tables[0].Table)
	}
}

func TestProgress_Percent(t *testing.T) {
	tests := []struct {
		p    Progress
		want float64
	}{
		{Progress{Processed: 50, Total: 200}, 25},
		{Progress{Processed: 0, Total: 0}, 100},
		{Progress{Processed: 130, Total: 120}, 100},
	}
	for _, tt := range tests {
		if got := tt.p.Percent(); got != tt.want {
			t.Errorf("Percent(%+v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestTableError_Message(t *testing.T) {
	err := &TableError{Table: "TRIBUTAI.x", Stage: StageWrite, Offset: 100, Err: errors.New("bad")}
	if err.Error() != "migrating TRIBUTAI.x: write at offset 100: bad" {
		t.Errorf("Error() = %q", err.Error())
	}
	err.Offset = -1
	if err.Error() != "migrating TRIBUTAI.x: write: bad" {
		t.Errorf("Error() = %q", err.Error())
	}
}
