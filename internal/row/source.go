package row

import "encoding/json"

// Source is one record fetched from a source table: column names in the
// order the source returned them, each with its value.
type Source struct {
	columns []string
	values  map[string]Value
}

// NewSource creates an empty row with room for n columns.
func NewSource(n int) *Source {
	return &Source{
		columns: make([]string, 0, n),
		values:  make(map[string]Value, n),
	}
}

// FromMap builds a row from a map. Column order follows the given names;
// names missing from m are simply not present in the row.
func FromMap(names []string, m map[string]Value) *Source {
	s := NewSource(len(names))
	for _, n := range names {
		if v, ok := m[n]; ok {
			s.Set(n, v)
		}
	}
	return s
}

// Set stores a column value, appending the column if it is new.
func (s *Source) Set(column string, v Value) {
	if _, ok := s.values[column]; !ok {
		s.columns = append(s.columns, column)
	}
	s.values[column] = v
}

// Get returns the value of a column. Absent columns yield Null.
func (s *Source) Get(column string) Value {
	if s == nil {
		return Null()
	}
	return s.values[column]
}

// Has reports whether the column is present in the row at all.
func (s *Source) Has(column string) bool {
	if s == nil {
		return false
	}
	_, ok := s.values[column]
	return ok
}

// Columns returns the column names in source order.
func (s *Source) Columns() []string {
	if s == nil {
		return nil
	}
	return s.columns
}

// Len returns the number of columns present.
func (s *Source) Len() int {
	if s == nil {
		return 0
	}
	return len(s.columns)
}

// Native converts the row into a map of plain Go values, used when rows are
// dumped to JSON.
func (s *Source) Native() map[string]any {
	out := make(map[string]any, s.Len())
	for _, c := range s.Columns() {
		out[c] = s.values[c].Native()
	}
	return out
}

// MarshalJSON encodes the row as an object of its native values.
func (s *Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Native())
}
