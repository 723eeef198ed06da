package source

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
)

func ruralTable() schema.Table {
	return schema.DifferenceArea(schema.RuralAreaTable, "", "")
}

func TestWindowQuery(t *testing.T) {
	tbl := ruralTable()

	ordered := windowQuery(tbl, tbl.Columns, true)
	if !strings.HasPrefix(ordered, `SELECT "id_0", "geom"::text AS "geom", "id", `) {
		t.Errorf("unexpected select list: %s", ordered)
	}
	if !strings.Contains(ordered, `FROM "public"."diferencia_rural_area" ORDER BY "id_0" LIMIT $1 OFFSET $2`) {
		t.Errorf("unexpected tail: %s", ordered)
	}

	unordered := windowQuery(tbl, tbl.Columns, false)
	if strings.Contains(unordered, "ORDER BY") {
		t.Errorf("ORDER BY present when disabled: %s", unordered)
	}
	if !strings.HasSuffix(unordered, "LIMIT $1 OFFSET $2") {
		t.Errorf("offset and limit must be bound: %s", unordered)
	}
}

func TestWindowQuery_MissingColumns(t *testing.T) {
	tbl := ruralTable()
	cols := presentColumns(tbl, []string{"geom", "id", "terreno_co", "extra"})
	if len(cols) != 3 {
		t.Fatalf("expected 3 selectable columns, got %d", len(cols))
	}

	q := windowQuery(tbl, cols, true)
	if !strings.HasPrefix(q, `SELECT "geom"::text AS "geom", "id", "terreno_co" FROM `) {
		t.Errorf("unexpected select list: %s", q)
	}
	if strings.Contains(q, "ORDER BY") {
		t.Errorf("cannot order by a key the table lacks: %s", q)
	}
	if strings.Contains(q, `"extra"`) {
		t.Errorf("unexpected column selected: %s", q)
	}
}

func TestPresentColumns_UnknownTable(t *testing.T) {
	tbl := ruralTable()
	if got := presentColumns(tbl, nil); len(got) != len(tbl.Columns) {
		t.Errorf("expected every column for an unknown table, got %d", len(got))
	}
}

func TestCountQuery(t *testing.T) {
	got := countQuery(ruralTable())
	want := `SELECT COUNT(*) FROM "public"."diferencia_rural_area"`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestQuoteIdentPg(t *testing.T) {
	if got := quoteIdentPg(`we"ird`); got != `"we""ird"` {
		t.Errorf("quoteIdentPg = %s", got)
	}
}

func TestToValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want row.Value
	}{
		{"nil", nil, row.Null()},
		{"int16", int16(3), row.Integer(3)},
		{"int32", int32(42), row.Integer(42)},
		{"int64", int64(9000000001), row.Integer(9000000001)},
		{"float64", 12.5, row.Decimal("12.5")},
		{"numeric", pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}, row.Decimal("123.45")},
		{"numeric null", pgtype.Numeric{}, row.Null()},
		{"numeric nan", pgtype.Numeric{NaN: true, Valid: true}, row.Null()},
		{"text", "rural", row.Text("rural")},
		{"bytes", []byte{0x01, 0x0a}, row.Text("010a")},
		{"time", time.Date(2021, 3, 14, 10, 0, 0, 0, time.UTC), row.Date(civil.Date{Year: 2021, Month: 3, Day: 14})},
		{"bool", true, row.Text("true")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toValue(tt.in); got != tt.want {
				t.Errorf("toValue(%v) = %v (%s), want %v (%s)", tt.in, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestMockReader_Connect(t *testing.T) {
	m := &MockReader{}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Connected {
		t.Error("should be connected")
	}
}

func TestMockReader_ConnectError(t *testing.T) {
	m := &MockReader{ConnectErr: errors.New("refused")}
	if err := m.Connect(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestMockReader_CountRows(t *testing.T) {
	m := &MockReader{
		RowCounts: map[string]int64{schema.RuralAreaTable: 1000},
		Rows:      map[string][]*row.Source{schema.UrbanAreaTable: SyntheticRows(7)},
	}

	tests := []struct {
		table string
		want  int64
	}{
		{schema.RuralAreaTable, 1000},
		{schema.UrbanAreaTable, 7},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			got, err := m.CountRows(context.Background(), schema.DifferenceArea(tt.table, "", ""))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CountRows(%s) = %d, want %d", tt.table, got, tt.want)
			}
		})
	}

	if _, err := m.CountRows(context.Background(), schema.Table{SourceName: "missing"}); err == nil {
		t.Error("expected error for missing table")
	}
}

func TestMockReader_FetchWindow(t *testing.T) {
	m := &MockReader{Rows: map[string][]*row.Source{schema.RuralAreaTable: SyntheticRows(120)}}
	tbl := ruralTable()
	ctx := context.Background()

	var total int
	for offset := 0; ; offset += 50 {
		rows, err := m.FetchWindow(ctx, tbl, offset, 50)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		total += len(rows)
		if len(rows) < 50 {
			break
		}
	}
	if total != 120 {
		t.Errorf("fetched %d rows, want 120", total)
	}
	if len(m.Fetches) != 3 {
		t.Fatalf("expected 3 fetches, got %d", len(m.Fetches))
	}
	if m.Fetches[2] != (Window{Table: schema.RuralAreaTable, Offset: 100, Limit: 50}) {
		t.Errorf("third window = %+v", m.Fetches[2])
	}
}

func TestMockReader_FetchError(t *testing.T) {
	m := &MockReader{
		Rows:       map[string][]*row.Source{schema.RuralAreaTable: SyntheticRows(120)},
		FetchErr:   errors.New("connection reset"),
		FetchErrAt: 50,
	}
	ctx := context.Background()
	if _, err := m.FetchWindow(ctx, ruralTable(), 0, 50); err != nil {
		t.Fatalf("first window should succeed: %v", err)
	}
	if _, err := m.FetchWindow(ctx, ruralTable(), 50, 50); err == nil {
		t.Error("expected error at offset 50")
	}
}

func TestMockReader_Keys(t *testing.T) {
	m := &MockReader{KeySets: map[string][]int64{schema.RuralAreaTable: {1, 2, 3}}}
	keys, err := m.Keys(context.Background(), ruralTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("expected 3 keys, got %d", len(keys))
	}
}

func TestMockReader_Close(t *testing.T) {
	m := &MockReader{}
	m.Close()
	if !m.Closed {
		t.Error("should be closed")
	}
}

func TestMissingColumns(t *testing.T) {
	table := schema.DifferenceArea(schema.RuralAreaTable, "public", "TRIBUTAI")

	if got := MissingColumns(table, append(table.ColumnNames(), "extra")); len(got) != 0 {
		t.Errorf("expected nothing missing, got %v", got)
	}

	found := []string{}
	for _, c := range table.ColumnNames() {
		if c != "geom" && c != "area_m2" {
			found = append(found, c)
		}
	}
	got := MissingColumns(table, found)
	if len(got) != 2 || got[0] != "geom" || got[1] != "area_m2" {
		t.Errorf("expected [geom area_m2], got %v", got)
	}

	if got := MissingColumns(table, nil); len(got) != 21 {
		t.Errorf("expected all 21 columns missing for an absent table, got %d", len(got))
	}
}
