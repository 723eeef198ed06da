package target

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-sql/civil"

	"github.com/tributai/tributai-migrate/internal/row"
	"github.com/tributai/tributai-migrate/internal/schema"
)

// toValue converts a value scanned from SQL Server into a row.Value. The
// driver returns DECIMAL columns as []byte, so the column type decides how
// textual payloads are interpreted.
func toValue(v any, c schema.Column) row.Value {
	switch x := v.(type) {
	case nil:
		return row.Null()
	case int64:
		return row.Integer(x)
	case int32:
		return row.Integer(int64(x))
	case int16:
		return row.Integer(int64(x))
	case uint8:
		return row.Integer(int64(x))
	case float64:
		return row.Decimal(strconv.FormatFloat(x, 'f', -1, 64))
	case []byte:
		return textOrDecimal(string(x), c)
	case string:
		return textOrDecimal(x, c)
	case time.Time:
		return row.Date(civil.DateOf(x))
	case bool:
		return row.Text(strconv.FormatBool(x))
	default:
		return row.Text(fmt.Sprint(x))
	}
}

func textOrDecimal(s string, c schema.Column) row.Value {
	if c.Type == schema.TypeDecimal {
		return row.Decimal(s)
	}
	return row.Text(s)
}
