package migration

import (
	"context"
	"log/slog"

	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/target"
	"github.com/tributai/tributai-migrate/internal/transform"
)

// Writer inserts mapped batches into the destination, one statement per
// record.
type Writer struct {
	target        target.Operator
	transactional bool
	logger        *slog.Logger
}

// NewWriter creates a writer. In transactional mode a batch is committed as
// a whole or not at all; otherwise every row commits on its own.
func NewWriter(tgt target.Operator, transactional bool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{target: tgt, transactional: transactional, logger: logger}
}

// WriteBatch writes records in order and stops at the first failure. It
// returns the number of rows that remain written and a *RowError describing
// the failing record. There is no retry.
func (w *Writer) WriteBatch(ctx context.Context, table schema.Table, records []*transform.Record) (int, error) {
	if !w.transactional {
		return w.writeRows(ctx, w.target, table, records)
	}

	var written int
	err := w.target.WithinTx(ctx, func(ins target.Inserter) error {
		var err error
		written, err = w.writeRows(ctx, ins, table, records)
		return err
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (w *Writer) writeRows(ctx context.Context, ins target.Inserter, table schema.Table, records []*transform.Record) (int, error) {
	for i, rec := range records {
		if err := ins.Insert(ctx, table, rec); err != nil {
			w.logger.Error("row write failed",
				"table", table.String(),
				"index", i,
				"id_0", rec.Key(),
				"err", err,
			)
			return i, &RowError{Table: table.String(), Index: i, Key: rec.Key(), Err: err}
		}
	}
	return len(records), nil
}
