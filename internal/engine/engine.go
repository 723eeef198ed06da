package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tributai/tributai-migrate/internal/config"
	"github.com/tributai/tributai-migrate/internal/extract"
	"github.com/tributai/tributai-migrate/internal/lock"
	"github.com/tributai/tributai-migrate/internal/migration"
	"github.com/tributai/tributai-migrate/internal/report"
	"github.com/tributai/tributai-migrate/internal/schema"
	"github.com/tributai/tributai-migrate/internal/source"
	"github.com/tributai/tributai-migrate/internal/target"
	"github.com/tributai/tributai-migrate/internal/typemap"
	"github.com/tributai/tributai-migrate/internal/validation"
)

// SourceFactory builds an unconnected source reader.
type SourceFactory func(cfg config.SourceConfig, orderByKey bool) source.Reader

// TargetFactory opens a destination operator.
type TargetFactory func(ctx context.Context, cfg config.TargetConfig, types *typemap.TypeMap) (target.Operator, error)

// Engine wires configuration, endpoints and the migration components
// together for the CLI.
type Engine struct {
	Config  *config.Config
	TypeMap *typemap.TypeMap
	Logger  *slog.Logger

	newSource SourceFactory
	newTarget TargetFactory
	lockDir   string
}

// New creates a new Engine with the given config and logger.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Config:    cfg,
		TypeMap:   typemap.WithOverrides(cfg.Migration.TypeOverrides),
		Logger:    logger,
		newSource: defaultSource,
		newTarget: defaultTarget,
	}
}

func defaultSource(cfg config.SourceConfig, orderByKey bool) source.Reader {
	return source.NewPostgresReader(cfg.ConnString(), int32(cfg.MaxConnections), orderByKey)
}

func defaultTarget(ctx context.Context, cfg config.TargetConfig, types *typemap.TypeMap) (target.Operator, error) {
	return target.NewSQLServerOperator(ctx, cfg.ConnString(), cfg.MaxConnections, types)
}

// Tables resolves table names against the configured schemas. An empty list
// selects the configured tables.
func (e *Engine) Tables(names []string) ([]schema.Table, error) {
	if len(names) == 0 {
		names = e.Config.Migration.Tables
	}
	return schema.Resolve(names, e.Config.Source.Schema, e.Config.Target.Schema)
}

// Endpoints describes both sides for reports.
func (e *Engine) Endpoints() (report.Endpoint, report.Endpoint) {
	s, t := e.Config.Source, e.Config.Target
	return report.Endpoint{Type: "postgresql", Host: s.Host, Database: s.Database, Schema: s.Schema},
		report.Endpoint{Type: "sqlserver", Host: t.Host, Database: t.Database, Schema: t.Schema}
}

// OpenSource connects to the source database.
func (e *Engine) OpenSource(ctx context.Context) (source.Reader, error) {
	r := e.newSource(e.Config.Source, e.Config.OrderByKey())
	if err := r.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to source %s/%s: %w", e.Config.Source.Host, e.Config.Source.Database, err)
	}
	return r, nil
}

// OpenTarget connects to the destination database.
func (e *Engine) OpenTarget(ctx context.Context) (target.Operator, error) {
	op, err := e.newTarget(ctx, e.Config.Target, e.TypeMap)
	if err != nil {
		return nil, fmt.Errorf("connecting to destination %s/%s: %w", e.Config.Target.Host, e.Config.Target.Database, err)
	}
	return op, nil
}

// open connects to both sides. On error nothing is left open.
func (e *Engine) open(ctx context.Context) (source.Reader, target.Operator, error) {
	r, err := e.OpenSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	op, err := e.OpenTarget(ctx)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	return r, op, nil
}

func (e *Engine) closeAll(r source.Reader, op target.Operator) {
	if err := op.Close(); err != nil {
		e.Logger.Warn("closing destination pool", "err", err)
	}
	if err := r.Close(); err != nil {
		e.Logger.Warn("closing source pool", "err", err)
	}
}

// EndpointStatus is the outcome of a connectivity check for one side.
type EndpointStatus struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`

	// MissingColumns lists, per source table, expected columns the table
	// does not have.
	MissingColumns map[string][]string `json:"missing_columns,omitempty"`
}

// Check connects to both databases independently and reports their server
// versions. The returned error joins every failure.
func (e *Engine) Check(ctx context.Context) ([]EndpointStatus, error) {
	var errs []error
	statuses := make([]EndpointStatus, 0, 2)

	src := EndpointStatus{Name: "source"}
	if r, err := e.OpenSource(ctx); err != nil {
		src.Error = err.Error()
		errs = append(errs, err)
	} else {
		src.Version, err = r.ServerVersion(ctx)
		if err != nil {
			src.Error = err.Error()
			errs = append(errs, fmt.Errorf("querying source version: %w", err))
		}
		src.OK = err == nil
		if src.OK {
			if err := e.checkColumns(ctx, r, &src); err != nil {
				errs = append(errs, err)
			}
		}
		r.Close()
	}
	statuses = append(statuses, src)

	tgt := EndpointStatus{Name: "destination"}
	if op, err := e.OpenTarget(ctx); err != nil {
		tgt.Error = err.Error()
		errs = append(errs, err)
	} else {
		tgt.Version, err = op.ServerVersion(ctx)
		if err != nil {
			tgt.Error = err.Error()
			errs = append(errs, fmt.Errorf("querying destination version: %w", err))
		}
		tgt.OK = err == nil
		op.Close()
	}
	statuses = append(statuses, tgt)

	for _, s := range statuses {
		if s.OK {
			e.Logger.Info("connection ok", "endpoint", s.Name, "version", s.Version)
		} else {
			e.Logger.Error("connection failed", "endpoint", s.Name, "err", s.Error)
		}
	}
	return statuses, errors.Join(errs...)
}

// checkColumns compares the configured source tables with the columns the
// database reports.
func (e *Engine) checkColumns(ctx context.Context, r source.Reader, st *EndpointStatus) error {
	lister, ok := r.(source.ColumnLister)
	if !ok {
		return nil
	}
	tables, err := e.Tables(nil)
	if err != nil {
		return err
	}
	for _, t := range tables {
		found, err := lister.ListColumns(ctx, t)
		if err != nil {
			st.OK, st.Error = false, err.Error()
			return err
		}
		if missing := source.MissingColumns(t, found); len(missing) > 0 {
			if st.MissingColumns == nil {
				st.MissingColumns = make(map[string][]string)
			}
			st.MissingColumns[t.SourceName] = missing
		}
	}
	if len(st.MissingColumns) > 0 {
		st.OK = false
		st.Error = fmt.Sprintf("%d source tables lack expected columns", len(st.MissingColumns))
		return errors.New(st.Error)
	}
	return nil
}

// Provision creates the destination schema and tables without copying data.
func (e *Engine) Provision(ctx context.Context, names []string) ([]schema.Table, error) {
	tables, err := e.Tables(names)
	if err != nil {
		return nil, err
	}
	op, err := e.OpenTarget(ctx)
	if err != nil {
		return nil, err
	}
	defer op.Close()

	for _, t := range tables {
		if err := op.EnsureTable(ctx, t); err != nil {
			return nil, fmt.Errorf("provisioning %s: %w", t, err)
		}
		e.Logger.Info("destination table ready", "table", t.String())
	}
	return tables, nil
}

// MigrationOptions returns the options configured for migrate runs.
func (e *Engine) MigrationOptions() migration.Options {
	m := e.Config.Migration
	return migration.Options{
		BatchSize:     m.BatchSize,
		Truncate:      m.Truncate,
		Transactional: m.TransactionalBatches,
	}
}

// Migrate copies the tables in order while holding the destination lock.
// Both pools are closed before it returns, on success and on failure.
func (e *Engine) Migrate(ctx context.Context, names []string, opts migration.Options, callback migration.ProgressCallback) (*migration.Summary, error) {
	tables, err := e.Tables(names)
	if err != nil {
		return nil, err
	}

	lockPath := lock.PathFor(e.lockDir, e.Config.Target.Host, e.Config.Target.Database)
	if err := lock.Acquire(lockPath); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(lockPath); err != nil {
			e.Logger.Warn("releasing lock", "path", lockPath, "err", err)
		}
	}()

	r, op, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer e.closeAll(r, op)

	orch := migration.NewOrchestrator(r, op, opts, e.Logger)
	return orch.Run(ctx, tables, callback)
}

// Validate compares source and destination for each table. Per-table
// failures are recorded in the result; only a connection failure is
// returned as an error.
func (e *Engine) Validate(ctx context.Context, names []string, callback func(table, checkType string, passed bool)) (*validation.Result, error) {
	tables, err := e.Tables(names)
	if err != nil {
		return nil, err
	}
	r, op, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer e.closeAll(r, op)

	v := &validation.Validator{Source: r, Target: op, Logger: e.Logger, Callback: callback}
	return v.ValidateAll(ctx, tables), nil
}

// Extract dumps one source table to a JSON file.
func (e *Engine) Extract(ctx context.Context, name, path string, callback migration.ProgressCallback) (int64, error) {
	tables, err := e.Tables([]string{name})
	if err != nil {
		return 0, err
	}
	r, err := e.OpenSource(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	return extract.NewDumper(r, e.Config.Migration.BatchSize, e.Logger).DumpFile(ctx, tables[0], path, callback)
}
