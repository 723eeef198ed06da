package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToYAML returns the table definition as YAML.
func (t Table) ToYAML() ([]byte, error) {
	return yaml.Marshal(t)
}

// Summary returns a human-readable one-line description per table.
func Summary(tables []Table) string {
	var b strings.Builder
	for _, t := range tables {
		var decimals, texts, dates int
		for _, c := range t.Columns {
			switch c.Type {
			case TypeDecimal:
				decimals++
			case TypeText:
				texts++
			case TypeDate:
				dates++
			}
		}
		fmt.Fprintf(&b, "%s.%s -> %s.%s: %d columns (%d decimal, %d text, %d date), key %s\n",
			t.SourceSchema, t.SourceName, t.TargetSchema, t.TargetName,
			len(t.Columns), decimals, texts, dates, keyOrNone(t.KeyColumn))
	}
	return b.String()
}

func keyOrNone(k string) string {
	if k == "" {
		return "(none)"
	}
	return k
}
