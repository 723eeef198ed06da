package migration

import "fmt"

// Stage names the step of a table migration that failed.
type Stage string

const (
	StageProvision Stage = "provision"
	StageTruncate  Stage = "truncate"
	StageCount     Stage = "count"
	StageFetch     Stage = "fetch"
	StageWrite     Stage = "write"
)

// TableError reports a fatal failure while migrating one table.
type TableError struct {
	Table  string
	Stage  Stage
	Offset int // window offset; -1 when the failure is not tied to a window
	Err    error
}

func (e *TableError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("migrating %s: %s: %v", e.Table, e.Stage, e.Err)
	}
	return fmt.Sprintf("migrating %s: %s at offset %d: %v", e.Table, e.Stage, e.Offset, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }

// RowError reports the record that stopped a batch.
type RowError struct {
	Table string
	Index int // position of the record inside its batch
	Key   any // id_0 of the record, nil when the key itself is null
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("writing %s row %d (id_0=%v): %v", e.Table, e.Index, e.Key, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
