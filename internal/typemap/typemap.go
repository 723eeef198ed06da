package typemap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tributai/tributai-migrate/internal/schema"
)

// TypeMap holds the mapping from column type classes to SQL Server types,
// plus per-column overrides.
type TypeMap struct {
	Mappings  map[schema.Type]string `yaml:"mappings"`
	Overrides map[string]string      `yaml:"overrides,omitempty"`
}

// DefaultSQLServer returns the default SQL Server mapping.
func DefaultSQLServer() *TypeMap {
	return &TypeMap{
		Mappings: map[schema.Type]string{
			schema.TypeInt:     "INT",
			schema.TypeBigInt:  "BIGINT",
			schema.TypeDecimal: "DECIMAL",
			schema.TypeText:    "VARCHAR",
			schema.TypeDate:    "DATE",
		},
		Overrides: make(map[string]string),
	}
}

// WithOverrides returns the default mapping with the given column overrides
// applied.
func WithOverrides(overrides map[string]string) *TypeMap {
	tm := DefaultSQLServer()
	for col, t := range overrides {
		tm.Override(col, t)
	}
	return tm
}

// Resolve returns the full SQL Server column type, e.g. DECIMAL(18,2) or
// VARCHAR(MAX).
func (tm *TypeMap) Resolve(c schema.Column) string {
	if t, ok := tm.Overrides[c.Name]; ok {
		return t
	}
	base, ok := tm.Mappings[c.Type]
	if !ok {
		base = "NVARCHAR"
	}
	switch c.Type {
	case schema.TypeDecimal:
		return fmt.Sprintf("%s(%d,%d)", base, c.Precision, c.Scale)
	case schema.TypeText:
		if c.Length <= 0 {
			return base + "(MAX)"
		}
		return fmt.Sprintf("%s(%d)", base, c.Length)
	case "":
		return "NVARCHAR(MAX)"
	default:
		return base
	}
}

// Override forces the SQL Server type of a single column.
func (tm *TypeMap) Override(column, sqlType string) {
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]string)
	}
	tm.Overrides[column] = strings.ToUpper(strings.TrimSpace(sqlType))
}

// IsOverridden reports whether the column has an explicit type.
func (tm *TypeMap) IsOverridden(column string) bool {
	_, ok := tm.Overrides[column]
	return ok
}

// SortedOverrides returns overridden column names sorted alphabetically.
func (tm *TypeMap) SortedOverrides() []string {
	names := make([]string, 0, len(tm.Overrides))
	for k := range tm.Overrides {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
