package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tributai/tributai-migrate/internal/migration"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/source"
)

// Dumper writes a source table as a JSON array, one window at a time, so
// the whole table is never held in memory.
type Dumper struct {
	reader    source.Reader
	batchSize int
	logger    *slog.Logger
}

// NewDumper creates a dumper over a connected reader.
func NewDumper(r source.Reader, batchSize int, logger *slog.Logger) *Dumper {
	if batchSize <= 0 {
		batchSize = migration.DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dumper{reader: r, batchSize: batchSize, logger: logger}
}

// DumpFile writes the table to path, creating parent directories. A failed
// dump removes the partial file.
func (d *Dumper) DumpFile(ctx context.Context, t schema.Table, path string, callback migration.ProgressCallback) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}

	n, err := d.Dump(ctx, t, f, callback)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", path, cerr)
	}
	if err != nil {
		os.Remove(path)
		return n, err
	}
	return n, nil
}

// Dump streams every row of the table to w as a JSON array of objects
// keyed by column name. It returns the number of rows written.
func (d *Dumper) Dump(ctx context.Context, t schema.Table, w io.Writer, callback migration.ProgressCallback) (int64, error) {
	logger := d.logger.With("table", t.SourceName)

	total, err := d.reader.CountRows(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("counting rows of %s: %w", t.SourceName, err)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("["); err != nil {
		return 0, err
	}

	progress := migration.Progress{Table: t.SourceName, Total: total}
	for offset := 0; ; offset += d.batchSize {
		if err := ctx.Err(); err != nil {
			return progress.Processed, fmt.Errorf("cancelled at offset %d: %w", offset, err)
		}

		rows, err := d.reader.FetchWindow(ctx, t, offset, d.batchSize)
		if err != nil {
			logger.Error("window fetch failed", "offset", offset, "err", err)
			return progress.Processed, fmt.Errorf("fetching %s at offset %d: %w", t.SourceName, offset, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, r := range rows {
			data, err := json.Marshal(r)
			if err != nil {
				return progress.Processed, fmt.Errorf("encoding row at offset %d: %w", offset, err)
			}
			if progress.Processed > 0 {
				bw.WriteString(",")
			}
			bw.WriteString("\n  ")
			if _, err := bw.Write(data); err != nil {
				return progress.Processed, fmt.Errorf("writing row: %w", err)
			}
			progress.Processed++
		}

		progress.Offset = offset + d.batchSize
		progress.Windows++
		if callback != nil {
			callback(progress)
		}
		if len(rows) < d.batchSize {
			break
		}
	}

	if progress.Processed > 0 {
		bw.WriteString("\n")
	}
	if _, err := bw.WriteString("]\n"); err != nil {
		return progress.Processed, err
	}
	if err := bw.Flush(); err != nil {
		return progress.Processed, fmt.Errorf("flushing output: %w", err)
	}

	if progress.Processed != total {
		logger.Warn("row count changed during extraction", "counted", total, "extracted", progress.Processed)
	}
	logger.Info("table extracted", "rows", progress.Processed, "windows", progress.Windows)
	return progress.Processed, nil
}
