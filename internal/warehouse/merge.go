//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// MergeResult reports what one merge applied.
type MergeResult struct {
	Inserted int64
	Updated  int64
}

// Merge applies the staged batch for one entity kind against the
// permanent table as an idempotent upsert keyed by the natural primary
// key. Re-applying the same batch is a no-op: a row whose key exists
// with unchanged content counts as neither inserted nor updated.
func (e *Engine) Merge(ctx context.Context, kind Kind) (MergeResult, error) {
	spec, ok := tableSpecs[kind]
	if !ok {
		return MergeResult{}, fmt.Errorf("merge: unknown entity kind %q", kind)
	}

	switch spec.mode {
	case modeInsertOnly:
		return e.mergeInsertOnly(ctx, spec)
	default:
		return e.mergeUpsert(ctx, spec)
	}
}

// MergeAll merges the given kinds in order, returning per-kind counts.
// Callers pass DimKinds before FactKinds so that every fact merge sees
// its referenced dimensions already committed in the transaction.
func (e *Engine) MergeAll(ctx context.Context, kinds []Kind) (map[Kind]MergeResult, error) {
	results := make(map[Kind]MergeResult, len(kinds))
	for _, kind := range kinds {
		res, err := e.Merge(ctx, kind)
		if err != nil {
			return results, err
		}
		results[kind] = res
	}
	return results, nil
}

func (e *Engine) mergeInsertOnly(ctx context.Context, spec tableSpec) (MergeResult, error) {
	cols := strings.Join(spec.columns, ", ")
	sql := fmt.Sprintf(
		`INSERT INTO %s (%s) SELECT %s FROM %s.%s ON CONFLICT (%s) DO NOTHING`,
		spec.qualified(), cols, cols, SchemaName, spec.stagingName(), spec.key,
	)
	tag, err := e.db.Exec(ctx, sql)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge %s: %w", spec.table, err)
	}
	return MergeResult{Inserted: tag.RowsAffected()}, nil
}

func (e *Engine) mergeUpsert(ctx context.Context, spec tableSpec) (MergeResult, error) {
	cols := strings.Join(spec.columns, ", ")

	assigns := make([]string, 0, len(spec.columns))
	tTuple := make([]string, 0, len(spec.columns))
	eTuple := make([]string, 0, len(spec.columns))
	for _, col := range spec.columns {
		if col == spec.key {
			continue
		}
		assign := "EXCLUDED." + col
		if spec.assignOverrides != nil {
			if override, ok := spec.assignOverrides[col]; ok {
				assign = override
			}
		}
		assigns = append(assigns, col+" = "+assign)
		tTuple = append(tTuple, "t."+col)
		eTuple = append(eTuple, "EXCLUDED."+col)
	}

	// xmax = 0 only for freshly inserted tuples; the DISTINCT FROM
	// guard keeps unchanged rows from being rewritten (and counted).
	sql := fmt.Sprintf(
		`INSERT INTO %s AS t (%s)
		 SELECT %s FROM %s.%s
		 ON CONFLICT (%s) DO UPDATE SET %s
		 WHERE (%s) IS DISTINCT FROM (%s)
		 RETURNING (xmax = 0) AS inserted`,
		spec.qualified(), cols, cols, SchemaName, spec.stagingName(),
		spec.key, strings.Join(assigns, ", "),
		strings.Join(tTuple, ", "), strings.Join(eTuple, ", "),
	)

	rows, err := e.db.Query(ctx, sql)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge %s: %w", spec.table, err)
	}
	defer rows.Close()

	var res MergeResult
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return MergeResult{}, fmt.Errorf("merge %s: %w", spec.table, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	if err := rows.Err(); err != nil {
		return MergeResult{}, fmt.Errorf("merge %s: %w", spec.table, err)
	}
	return res, nil
}
