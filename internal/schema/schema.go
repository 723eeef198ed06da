package schema

import "fmt"

// Type is the destination type class of a column.
type Type string

const (
	TypeInt     Type = "int"
	TypeBigInt  Type = "bigint"
	TypeDecimal Type = "decimal"
	TypeText    Type = "text"
	TypeDate    Type = "date"
)

// Column describes one destination column.
type Column struct {
	Name string `yaml:"name"`
	Type Type   `yaml:"type"`

	// Precision and Scale apply to TypeDecimal.
	Precision int `yaml:"precision,omitempty"`
	Scale     int `yaml:"scale,omitempty"`

	// Length bounds TypeText; zero means unbounded.
	Length int `yaml:"length,omitempty"`

	// Geometry marks a source column holding a spatial value that is read
	// in its textual form.
	Geometry bool `yaml:"geometry,omitempty"`
}

// Table identifies one migrated table on both sides.
type Table struct {
	SourceSchema string   `yaml:"source_schema"`
	SourceName   string   `yaml:"source_name"`
	TargetSchema string   `yaml:"target_schema"`
	TargetName   string   `yaml:"target_name"`
	Columns      []Column `yaml:"columns"`
	KeyColumn    string   `yaml:"key_column"`
}

// String returns the destination-qualified name, used in logs.
func (t Table) String() string {
	return t.TargetSchema + "." + t.TargetName
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks that the table definition is usable.
func (t Table) Validate() error {
	if t.SourceName == "" || t.TargetName == "" {
		return fmt.Errorf("table names are required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.TargetName)
	}
	if t.KeyColumn != "" {
		if _, ok := t.Column(t.KeyColumn); !ok {
			return fmt.Errorf("key column %q not defined on %s", t.KeyColumn, t.TargetName)
		}
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %q on %s", c.Name, t.TargetName)
		}
		seen[c.Name] = true
		if c.Type == TypeDecimal && (c.Precision <= 0 || c.Scale < 0 || c.Scale > c.Precision) {
			return fmt.Errorf("column %q: invalid decimal(%d,%d)", c.Name, c.Precision, c.Scale)
		}
	}
	return nil
}
