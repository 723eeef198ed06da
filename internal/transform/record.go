package transform

import (
	"database/sql"

	"github.com/golang-sql/civil"
)

// NullDecimal is a fixed-precision decimal kept in its exact textual form.
type NullDecimal struct {
	Decimal string
	Valid   bool
}

// NullDate is a nullable calendar date.
type NullDate struct {
	Date  civil.Date
	Valid bool
}

// Record is one row of an area difference table, typed for the destination.
// A Record is built by MapRow and is not modified afterwards.
type Record struct {
	ID0       sql.NullInt32
	Geom      sql.NullString
	ID        sql.NullInt64
	FID       NullDecimal
	FID2      NullDecimal
	AvaluoTer NullDecimal
	AvaluoCom NullDecimal
	TerrenoCo sql.NullString
	Dimension sql.NullInt64
	Etiqueta  sql.NullString
	RelacionS sql.NullInt64
	EspacioDe sql.NullString
	LocalID   sql.NullString
	CreatedUs sql.NullString
	CreatedDa NullDate
	LastEdite sql.NullString
	LastEdi1  NullDate
	GlobalID  sql.NullString
	ShapeLeng NullDecimal
	ShapeArea NullDecimal
	AreaM2    NullDecimal
}

// Field is a named destination value.
type Field struct {
	Name  string
	Value any // nil, int32, int64, string (text or decimal) or civil.Date
}

// Fields returns the 21 values in column order. NULLs are reported as nil.
func (r *Record) Fields() []Field {
	return []Field{
		{"id_0", int32Value(r.ID0)},
		{"geom", stringValue(r.Geom)},
		{"id", int64Value(r.ID)},
		{"fid", decimalValue(r.FID)},
		{"fid_2", decimalValue(r.FID2)},
		{"avaluo_ter", decimalValue(r.AvaluoTer)},
		{"avaluo_com", decimalValue(r.AvaluoCom)},
		{"terreno_co", stringValue(r.TerrenoCo)},
		{"dimension", int64Value(r.Dimension)},
		{"etiqueta", stringValue(r.Etiqueta)},
		{"relacion_s", int64Value(r.RelacionS)},
		{"espacio_de", stringValue(r.EspacioDe)},
		{"local_id", stringValue(r.LocalID)},
		{"created_us", stringValue(r.CreatedUs)},
		{"created_da", dateValue(r.CreatedDa)},
		{"last_edite", stringValue(r.LastEdite)},
		{"last_edi_1", dateValue(r.LastEdi1)},
		{"globalid", stringValue(r.GlobalID)},
		{"shape_leng", decimalValue(r.ShapeLeng)},
		{"shape_area", decimalValue(r.ShapeArea)},
		{"area_m2", decimalValue(r.AreaM2)},
	}
}

// NamedArgs returns the values as named query arguments, in column order.
func (r *Record) NamedArgs() []any {
	fields := r.Fields()
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = sql.Named(f.Name, f.Value)
	}
	return args
}

// Key returns the id_0 value used to identify the record in logs.
func (r *Record) Key() any {
	return int32Value(r.ID0)
}

func int32Value(v sql.NullInt32) any {
	if !v.Valid {
		return nil
	}
	return v.Int32
}

func int64Value(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func stringValue(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func decimalValue(v NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal
}

func dateValue(v NullDate) any {
	if !v.Valid {
		return nil
	}
	return v.Date
}
