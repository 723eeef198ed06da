package schema

import "fmt"

const (
	DefaultSourceSchema = "public"
	DefaultTargetSchema = "TRIBUTAI"
	DefaultKeyColumn    = "id_0"

	RuralAreaTable = "diferencia_rural_area"
	UrbanAreaTable = "diferencia_urbana_area"
)

func decimal(name string, precision, scale int) Column {
	return Column{Name: name, Type: TypeDecimal, Precision: precision, Scale: scale}
}

func varchar(name string, length int) Column {
	return Column{Name: name, Type: TypeText, Length: length}
}

// DifferenceAreaColumns returns the 21-column layout shared by the rural and
// urban area difference tables.
func DifferenceAreaColumns() []Column {
	return []Column{
		{Name: "id_0", Type: TypeInt},
		{Name: "geom", Type: TypeText, Geometry: true},
		{Name: "id", Type: TypeBigInt},
		decimal("fid", 18, 0),
		decimal("fid_2", 18, 0),
		decimal("avaluo_ter", 18, 2),
		decimal("avaluo_com", 18, 2),
		varchar("terreno_co", 255),
		{Name: "dimension", Type: TypeBigInt},
		varchar("etiqueta", 255),
		{Name: "relacion_s", Type: TypeBigInt},
		varchar("espacio_de", 255),
		varchar("local_id", 255),
		varchar("created_us", 255),
		{Name: "created_da", Type: TypeDate},
		varchar("last_edite", 255),
		{Name: "last_edi_1", Type: TypeDate},
		varchar("globalid", 38),
		decimal("shape_leng", 38, 8),
		decimal("shape_area", 38, 8),
		decimal("area_m2", 38, 8),
	}
}

// DifferenceArea builds the definition of one area difference table.
func DifferenceArea(name, sourceSchema, targetSchema string) Table {
	if sourceSchema == "" {
		sourceSchema = DefaultSourceSchema
	}
	if targetSchema == "" {
		targetSchema = DefaultTargetSchema
	}
	return Table{
		SourceSchema: sourceSchema,
		SourceName:   name,
		TargetSchema: targetSchema,
		TargetName:   name,
		Columns:      DifferenceAreaColumns(),
		KeyColumn:    DefaultKeyColumn,
	}
}

// DefaultTableNames lists the migrated tables in migration order: rural first.
func DefaultTableNames() []string {
	return []string{RuralAreaTable, UrbanAreaTable}
}

// Resolve turns table names into specs. Only the known area difference tables
// are accepted.
func Resolve(names []string, sourceSchema, targetSchema string) ([]Table, error) {
	if len(names) == 0 {
		names = DefaultTableNames()
	}
	tables := make([]Table, 0, len(names))
	for _, n := range names {
		switch n {
		case RuralAreaTable, UrbanAreaTable:
			tables = append(tables, DifferenceArea(n, sourceSchema, targetSchema))
		default:
			return nil, fmt.Errorf("unknown table %q (expected %s or %s)", n, RuralAreaTable, UrbanAreaTable)
		}
	}
	return tables, nil
}
