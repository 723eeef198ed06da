package validation

import (
	"context"
	"fmt"
	"slices"

	"github.com/tributai/tributai-migrate/internal/schema"
)

// findTargetOnly loads the full key sets of both sides and records the keys
// present only in the destination, with their rows, and the source keys the
// destination is missing.
func (v *Validator) findTargetOnly(ctx context.Context, t schema.Table, rep *Report) error {
	srcKeys, err := v.Source.Keys(ctx, t)
	if err != nil {
		return fmt.Errorf("reading source keys for %s: %w", t.SourceName, err)
	}
	tgtKeys, err := v.Target.Keys(ctx, t)
	if err != nil {
		return fmt.Errorf("reading destination keys for %s: %w", t, err)
	}

	extra, missing := diffKeys(srcKeys, tgtKeys)
	rep.Missing = missing

	for _, k := range extra {
		rows, err := v.Target.RowsByKey(ctx, t, k)
		if err != nil {
			return fmt.Errorf("reading destination rows for %s %s=%d: %w", t, t.KeyColumn, k, err)
		}
		rep.TargetOnly = append(rep.TargetOnly, KeyedRows{Key: k, Rows: rows})
	}
	return nil
}

// diffKeys returns the sorted, distinct keys found only in tgt and only in src.
func diffKeys(src, tgt []int64) (onlyTarget, onlySource []int64) {
	inSrc := make(map[int64]struct{}, len(src))
	for _, k := range src {
		inSrc[k] = struct{}{}
	}
	inTgt := make(map[int64]struct{}, len(tgt))
	for _, k := range tgt {
		inTgt[k] = struct{}{}
	}

	for k := range inTgt {
		if _, ok := inSrc[k]; !ok {
			onlyTarget = append(onlyTarget, k)
		}
	}
	for k := range inSrc {
		if _, ok := inTgt[k]; !ok {
			onlySource = append(onlySource, k)
		}
	}
	slices.Sort(onlyTarget)
	slices.Sort(onlySource)
	return onlyTarget, onlySource
}

func (v *Validator) findDuplicates(ctx context.Context, t schema.Table, rep *Report) error {
	dups, err := v.Target.DuplicateKeys(ctx, t)
	if err != nil {
		return fmt.Errorf("finding duplicates in %s: %w", t, err)
	}
	for _, d := range dups {
		rows, err := v.Target.RowsByKey(ctx, t, d.Key)
		if err != nil {
			return fmt.Errorf("reading duplicate rows for %s %s=%d: %w", t, t.KeyColumn, d.Key, err)
		}
		rep.Duplicates = append(rep.Duplicates, DuplicateGroup{Key: d.Key, Repetitions: d.Repetitions, Rows: rows})
	}
	return nil
}
