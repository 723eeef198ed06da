package validation

import (
	"context"
	"fmt"

	"github.com/tributai/tributai-migrate/internal/schema"
)

// profile records NULL counts and value ranges of the destination table.
func (v *Validator) profile(ctx context.Context, t schema.Table, rep *Report) error {
	nulls, err := v.Target.NullCounts(ctx, t, NullCheckColumns)
	if err != nil {
		return fmt.Errorf("null summary for %s: %w", t, err)
	}
	rep.NullCounts = nulls

	for _, col := range RangeColumns {
		r, err := v.Target.Range(ctx, t, col)
		if err != nil {
			return fmt.Errorf("range of %s.%s: %w", t, col, err)
		}
		rep.Ranges = append(rep.Ranges, r)
	}
	return nil
}
