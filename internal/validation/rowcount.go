package validation

import (
	"context"
	"fmt"

	"github.com/tributai/tributai-migrate/internal/schema"
)

// RowCountCheck holds the result of a row count comparison.
type RowCountCheck struct {
	SourceCount int64  `json:"source_count"`
	TargetCount int64  `json:"target_count"`
	Delta       int64  `json:"delta"` // target - source
	Match       bool   `json:"match"`
	Message     string `json:"message,omitempty"`
}

func (v *Validator) validateRowCount(ctx context.Context, t schema.Table) (*RowCountCheck, error) {
	sourceCount, err := v.Source.CountRows(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("counting source rows for %s: %w", t.SourceName, err)
	}

	targetCount, err := v.Target.CountRows(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("counting destination rows for %s: %w", t, err)
	}

	check := &RowCountCheck{
		SourceCount: sourceCount,
		TargetCount: targetCount,
		Delta:       targetCount - sourceCount,
		Match:       sourceCount == targetCount,
	}

	if !check.Match {
		check.Message = fmt.Sprintf("count mismatch: source=%d, destination=%d (delta=%+d)",
			sourceCount, targetCount, check.Delta)
	}

	return check, nil
}
