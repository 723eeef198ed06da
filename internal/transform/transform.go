package transform

import (
	"database/sql"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"github.com/tributai/tributai-migrate/internal/row"
)

// MapRow converts one source row into a destination record. It never fails:
// missing columns and values that cannot be coerced become NULL.
func MapRow(src *row.Source) *Record {
	return &Record{
		ID0:       toInt32(src.Get("id_0")),
		Geom:      toText(src.Get("geom")),
		ID:        toInt64(src.Get("id")),
		FID:       toDecimal(src.Get("fid")),
		FID2:      toDecimal(src.Get("fid_2")),
		AvaluoTer: toDecimal(src.Get("avaluo_ter")),
		AvaluoCom: toDecimal(src.Get("avaluo_com")),
		TerrenoCo: toText(src.Get("terreno_co")),
		Dimension: toInt64(src.Get("dimension")),
		Etiqueta:  toText(src.Get("etiqueta")),
		RelacionS: toInt64(src.Get("relacion_s")),
		EspacioDe: toText(src.Get("espacio_de")),
		LocalID:   toText(src.Get("local_id")),
		CreatedUs: toText(src.Get("created_us")),
		CreatedDa: toDate(src.Get("created_da")),
		LastEdite: toText(src.Get("last_edite")),
		LastEdi1:  toDate(src.Get("last_edi_1")),
		GlobalID:  toText(src.Get("globalid")),
		ShapeLeng: toDecimal(src.Get("shape_leng")),
		ShapeArea: toDecimal(src.Get("shape_area")),
		AreaM2:    toDecimal(src.Get("area_m2")),
	}
}

// MapRows maps a whole window.
func MapRows(rows []*row.Source) []*Record {
	out := make([]*Record, len(rows))
	for i, r := range rows {
		out[i] = MapRow(r)
	}
	return out
}

func toInt64(v row.Value) sql.NullInt64 {
	switch v.Kind() {
	case row.KindInteger:
		i, _ := v.Int()
		return sql.NullInt64{Int64: i, Valid: true}
	case row.KindDecimal:
		s, _ := v.DecimalString()
		return integralOf(s)
	case row.KindText:
		s, _ := v.Str()
		return integralOf(strings.TrimSpace(s))
	default:
		return sql.NullInt64{}
	}
}

func toInt32(v row.Value) sql.NullInt32 {
	i := toInt64(v)
	if !i.Valid || i.Int64 < math.MinInt32 || i.Int64 > math.MaxInt32 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(i.Int64), Valid: true}
}

// integralOf accepts "42" and "42.000" but not "42.5" or "N/A".
func integralOf(s string) sql.NullInt64 {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sql.NullInt64{Int64: i, Valid: true}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: r.Num().Int64(), Valid: true}
}

func toDecimal(v row.Value) NullDecimal {
	switch v.Kind() {
	case row.KindInteger:
		return NullDecimal{Decimal: v.String(), Valid: true}
	case row.KindDecimal, row.KindText:
		s := strings.TrimSpace(v.String())
		if !isDecimal(s) {
			return NullDecimal{}
		}
		return NullDecimal{Decimal: s, Valid: true}
	default:
		return NullDecimal{}
	}
}

// isDecimal reports whether s is a plain finite decimal number. Exponents,
// NaN and Infinity are rejected because the destination cannot store them
// in a DECIMAL column.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	digits, dot := 0, false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

func toText(v row.Value) sql.NullString {
	if v.IsNull() {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, time.RFC3339Nano, time.DateTime}

func toDate(v row.Value) NullDate {
	switch v.Kind() {
	case row.KindDate:
		d, _ := v.CivilDate()
		if !d.IsValid() {
			return NullDate{}
		}
		return NullDate{Date: d, Valid: true}
	case row.KindText:
		s, _ := v.Str()
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return NullDate{Date: civil.DateOf(t), Valid: true}
			}
		}
		return NullDate{}
	default:
		return NullDate{}
	}
}
