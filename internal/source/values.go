package source

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tributai/tributai-migrate/internal/row"
)

// toValue converts a value decoded by pgx into a row.Value.
func toValue(v any) row.Value {
	switch x := v.(type) {
	case nil:
		return row.Null()
	case int16:
		return row.Integer(int64(x))
	case int32:
		return row.Integer(int64(x))
	case int64:
		return row.Integer(x)
	case int:
		return row.Integer(int64(x))
	case float32:
		return row.Decimal(strconv.FormatFloat(float64(x), 'f', -1, 32))
	case float64:
		return row.Decimal(strconv.FormatFloat(x, 'f', -1, 64))
	case pgtype.Numeric:
		return numericValue(x)
	case *big.Int:
		return row.Decimal(x.String())
	case string:
		return row.Text(x)
	case []byte:
		return row.Text(hex.EncodeToString(x))
	case time.Time:
		return row.Date(civil.DateOf(x))
	case pgtype.Date:
		if !x.Valid || x.InfinityModifier != pgtype.Finite {
			return row.Null()
		}
		return row.Date(civil.DateOf(x.Time))
	case bool:
		return row.Text(strconv.FormatBool(x))
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil || dv == nil {
			return row.Null()
		}
		return toValue(dv)
	default:
		return row.Text(fmt.Sprint(x))
	}
}

func numericValue(n pgtype.Numeric) row.Value {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return row.Null()
	}
	dv, err := n.Value()
	if err != nil {
		return row.Null()
	}
	s, ok := dv.(string)
	if !ok {
		return row.Null()
	}
	return row.Decimal(s)
}
