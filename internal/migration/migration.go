package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/source"
	"github.com/tributai/tributai-migrate/internal/target"
	"github.com/tributai/tributai-migrate/internal/transform"
)

// DefaultBatchSize is the number of rows read and written per window.
const DefaultBatchSize = 50

// Progress tracks one table. It only advances after a window has been fully
// written.
type Progress struct {
	Table     string `json:"table"`
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
	Offset    int    `json:"offset"` // next window offset
	Windows   int    `json:"windows"`
}

// Percent returns completion in the range 0-100.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 100
	}
	pct := float64(p.Processed) / float64(p.Total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// ProgressCallback is called after every successfully written window.
type ProgressCallback func(p Progress)

// TableResult is the outcome of migrating one table.
type TableResult struct {
	Table    string        `json:"table"`
	State    string        `json:"state"` // "completed", "failed"
	Total    int64         `json:"total"`
	Written  int64         `json:"written"`
	Windows  int           `json:"windows"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Summary is the outcome of a whole run.
type Summary struct {
	Phase    string        `json:"phase"` // "completed", "failed"
	Tables   []TableResult `json:"tables"`
	Rows     int64         `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// Options control a migration run.
type Options struct {
	BatchSize     int
	Truncate      bool
	Transactional bool
}

// Orchestrator drives the window loop for each table, strictly one window
// and one table at a time.
type Orchestrator struct {
	reader source.Reader
	target target.Operator
	writer *Writer
	opts   Options
	logger *slog.Logger
}

// NewOrchestrator creates a new orchestrator over already connected endpoints.
func NewOrchestrator(r source.Reader, tgt target.Operator, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		reader: r,
		target: tgt,
		writer: NewWriter(tgt, opts.Transactional, logger),
		opts:   opts,
		logger: logger,
	}
}

// Run migrates the tables in the given order. The first failed table ends
// the run; later tables are not touched.
func (o *Orchestrator) Run(ctx context.Context, tables []schema.Table, callback ProgressCallback) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Phase: "completed"}

	for _, t := range tables {
		res, err := o.MigrateTable(ctx, t, callback)
		summary.Tables = append(summary.Tables, *res)
		summary.Rows += res.Written
		if err != nil {
			summary.Phase = "failed"
			summary.Duration = time.Since(start)
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// MigrateTable provisions the destination table and copies every source row
// into it window by window. A returned error is always a *TableError.
func (o *Orchestrator) MigrateTable(ctx context.Context, t schema.Table, callback ProgressCallback) (*TableResult, error) {
	start := time.Now()
	name := t.String()
	res := &TableResult{Table: name, State: "failed"}
	logger := o.logger.With("table", name)

	fail := func(stage Stage, offset int, err error) (*TableResult, error) {
		res.Duration = time.Since(start)
		res.Error = err.Error()
		logger.Error("table migration failed", "stage", string(stage), "offset", offset, "err", err)
		return res, &TableError{Table: name, Stage: stage, Offset: offset, Err: err}
	}

	if err := o.target.EnsureTable(ctx, t); err != nil {
		return fail(StageProvision, -1, err)
	}
	if o.opts.Truncate {
		if err := o.target.Truncate(ctx, t); err != nil {
			return fail(StageTruncate, -1, err)
		}
		logger.Info("destination table truncated")
	}

	total, err := o.reader.CountRows(ctx, t)
	if err != nil {
		return fail(StageCount, -1, err)
	}
	res.Total = total
	logger.Info("starting table migration", "rows", total, "batch_size", o.opts.BatchSize)

	progress := Progress{Table: name, Total: total}
	batch := o.opts.BatchSize
	for offset := 0; ; offset += batch {
		if err := ctx.Err(); err != nil {
			return fail(StageFetch, offset, fmt.Errorf("cancelled: %w", err))
		}

		rows, err := o.reader.FetchWindow(ctx, t, offset, batch)
		if err != nil {
			return fail(StageFetch, offset, err)
		}
		if len(rows) == 0 {
			break
		}

		records := transform.MapRows(rows)
		written, err := o.writer.WriteBatch(ctx, t, records)
		res.Written += int64(written)
		if err != nil {
			return fail(StageWrite, offset, err)
		}

		progress.Processed += int64(written)
		progress.Offset = offset + batch
		progress.Windows++
		res.Windows = progress.Windows
		logger.Debug("window written", "offset", offset, "rows", written)
		if callback != nil {
			callback(progress)
		}

		if len(rows) < batch {
			break
		}
	}

	res.State = "completed"
	res.Duration = time.Since(start)
	switch {
	case progress.Processed > total:
		logger.Warn("source grew during migration", "counted", total, "migrated", progress.Processed)
	case progress.Processed < total:
		logger.Warn("source shrank during migration", "counted", total, "migrated", progress.Processed)
	}
	logger.Info("table migration completed", "rows", progress.Processed, "windows", progress.Windows,
		"duration", res.Duration.Round(time.Millisecond))
	return res, nil
}
