// Package row holds the loosely typed values read from the source tables.
package row

import (
	"fmt"
	"strconv"

	"github.com/golang-sql/civil"
)

// Kind identifies which variant a Value carries.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindDecimal
	KindText
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single column value of a source row. The zero Value is Null.
//
// Decimals keep the exact textual form the source produced so that no
// precision is lost before the destination engine applies its own scale.
type Value struct {
	kind Kind
	i    int64
	s    string
	d    civil.Date
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Integer wraps an integral number.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Decimal wraps the exact decimal representation of a number, e.g. "1234.50".
func Decimal(s string) Value { return Value{kind: KindDecimal, s: s} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Date wraps a calendar date.
func Date(d civil.Date) Value { return Value{kind: KindDate, d: d} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int returns the integer payload; ok is false for any other kind.
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInteger
}

// DecimalString returns the decimal payload; ok is false for any other kind.
func (v Value) DecimalString() (string, bool) {
	return v.s, v.kind == KindDecimal
}

// Str returns the text payload; ok is false for any other kind.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindText
}

// CivilDate returns the date payload; ok is false for any other kind.
func (v Value) CivilDate() (civil.Date, bool) {
	return v.d, v.kind == KindDate
}

// String renders the value in its natural text form. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal, KindText:
		return v.s
	case KindDate:
		return v.d.String()
	default:
		return ""
	}
}

// Native returns the value as a plain Go value suitable for JSON encoding:
// nil, int64, string or civil.Date.
func (v Value) Native() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindDecimal, KindText:
		return v.s
	case KindDate:
		return v.d
	default:
		return nil
	}
}
