package validation

import (
	"context"
	"log/slog"
	"time"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/source"
	"github.com/tributai/tributai-migrate/internal/target"
)

// Columns whose NULL count is reported for every table.
var NullCheckColumns = []string{"id_0", "geom", "id", "fid", "terreno_co"}

// Columns whose minimum and maximum are reported for every table.
var RangeColumns = []string{"id_0", "avaluo_ter", "avaluo_com"}

// Result holds the outcome of validating several tables.
type Result struct {
	Status      string    `json:"status"` // PASS, FAIL, PARTIAL
	Tables      []*Report `json:"tables"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Report holds the findings for one table. It is built fresh on every run.
type Report struct {
	Table      string               `json:"table"`
	Status     string               `json:"status"` // PASS, FAIL, ERROR
	RowCount   *RowCountCheck       `json:"row_count,omitempty"`
	TargetOnly []KeyedRows          `json:"target_only,omitempty"`
	Missing    []int64              `json:"missing,omitempty"` // source keys absent from the destination
	Duplicates []DuplicateGroup     `json:"duplicates,omitempty"`
	NullCounts []target.NullCount   `json:"null_counts,omitempty"`
	Ranges     []target.ColumnRange `json:"ranges,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// KeyedRows is a destination-only key with every destination row holding it.
type KeyedRows struct {
	Key  int64         `json:"key"`
	Rows []*row.Source `json:"rows,omitempty"`
}

// DuplicateGroup is a key stored more than once in the destination.
type DuplicateGroup struct {
	Key         int64         `json:"key"`
	Repetitions int64         `json:"repetitions"`
	Rows        []*row.Source `json:"rows,omitempty"`
}

// Clean reports whether counts match and no duplicate or destination-only
// keys were found.
func (r *Report) Clean() bool {
	return r.Error == "" &&
		r.RowCount != nil && r.RowCount.Delta == 0 &&
		len(r.TargetOnly) == 0 && len(r.Duplicates) == 0
}

// Validator compares source and destination tables. It never writes to
// either side.
type Validator struct {
	Source   source.Reader
	Target   target.Operator
	Logger   *slog.Logger
	Callback func(table, checkType string, passed bool)
}

// ValidateTable runs every check for one table. A query error stops the
// remaining checks; the partial report is returned together with the error.
func (v *Validator) ValidateTable(ctx context.Context, t schema.Table) (*Report, error) {
	rep := &Report{Table: t.String(), Status: "PASS"}

	fail := func(err error) (*Report, error) {
		rep.Status = "ERROR"
		rep.Error = err.Error()
		return rep, err
	}

	rc, err := v.validateRowCount(ctx, t)
	if err != nil {
		return fail(err)
	}
	rep.RowCount = rc
	v.notify(rep.Table, "row_count", rc.Match)

	if !rc.Match {
		if err := v.findTargetOnly(ctx, t, rep); err != nil {
			return fail(err)
		}
		v.notify(rep.Table, "target_only", len(rep.TargetOnly) == 0)
	}

	if err := v.findDuplicates(ctx, t, rep); err != nil {
		return fail(err)
	}
	v.notify(rep.Table, "duplicates", len(rep.Duplicates) == 0)

	if err := v.profile(ctx, t, rep); err != nil {
		return fail(err)
	}

	if !rep.Clean() {
		rep.Status = "FAIL"
	}
	return rep, nil
}

// ValidateAll validates every table. A failing table is logged and recorded
// in its report; the remaining tables are still validated.
func (v *Validator) ValidateAll(ctx context.Context, tables []schema.Table) *Result {
	result := &Result{StartedAt: time.Now()}

	for _, t := range tables {
		rep, err := v.ValidateTable(ctx, t)
		if err != nil {
			v.logger().Error("validation failed", "table", t.String(), "err", err)
		}
		result.Tables = append(result.Tables, rep)
	}

	result.CompletedAt = time.Now()
	result.Status = computeOverallStatus(result.Tables)
	return result
}

func (v *Validator) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}

func (v *Validator) notify(table, checkType string, passed bool) {
	if v.Callback != nil {
		v.Callback(table, checkType, passed)
	}
}

func computeOverallStatus(reports []*Report) string {
	if len(reports) == 0 {
		return "PASS"
	}
	failCount := 0
	for _, r := range reports {
		if r.Status != "PASS" {
			failCount++
		}
	}
	if failCount == 0 {
		return "PASS"
	}
	if failCount == len(reports) {
		return "FAIL"
	}
	return "PARTIAL"
}
