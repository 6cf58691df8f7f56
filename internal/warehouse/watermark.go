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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DefaultWatermarkLookback is how far behind "now" a brand-new source's
// watermark starts.
const DefaultWatermarkLookback = 30 * time.Minute

// WatermarkStore persists, per refresh source, the timestamp boundary of
// the last successfully applied batch.
type WatermarkStore struct {
	db DBTX
}

// NewWatermarkStore creates a watermark store over a pool or transaction.
func NewWatermarkStore(db DBTX) *WatermarkStore {
	return &WatermarkStore{db: db}
}

// Get returns the watermark for a source, reporting whether one exists.
func (s *WatermarkStore) Get(ctx context.Context, source string) (time.Time, bool, error) {
	var ts time.Time
	err := s.db.QueryRow(ctx,
		`SELECT last_processed_ts FROM globalcart.etl_watermarks WHERE source_name = $1`,
		source,
	).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get watermark %s: %w", source, err)
	}
	return ts.UTC(), true, nil
}

// GetOrInit returns the watermark for a source, initializing and
// persisting the default immediately for a new source so that concurrent
// or retried runs converge on the same boundary.
func (s *WatermarkStore) GetOrInit(ctx context.Context, source string, def time.Time) (time.Time, error) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO globalcart.etl_watermarks (source_name, last_processed_ts)
		 VALUES ($1, $2)
		 ON CONFLICT (source_name) DO NOTHING`,
		source, def.UTC(),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("init watermark %s: %w", source, err)
	}

	// Re-read rather than trusting def: a concurrent initializer may
	// have won the insert.
	ts, ok, err := s.Get(ctx, source)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("init watermark %s: row vanished after insert", source)
	}
	return ts, nil
}

// Set advances the watermark for a source. Orchestrators call this
// inside the run transaction so the advance commits together with the
// merges; a crash before commit leaves the watermark unchanged.
func (s *WatermarkStore) Set(ctx context.Context, source string, ts time.Time) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO globalcart.etl_watermarks (source_name, last_processed_ts)
		 VALUES ($1, $2)
		 ON CONFLICT (source_name) DO UPDATE SET last_processed_ts = EXCLUDED.last_processed_ts`,
		source, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("set watermark %s: %w", source, err)
	}
	return nil
}

// All returns every source's watermark, for status reporting.
func (s *WatermarkStore) All(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_name, last_processed_ts FROM globalcart.etl_watermarks ORDER BY source_name`)
	if err != nil {
		return nil, fmt.Errorf("list watermarks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var source string
		var ts time.Time
		if err := rows.Scan(&source, &ts); err != nil {
			return nil, fmt.Errorf("list watermarks: %w", err)
		}
		out[source] = ts.UTC()
	}
	return out, rows.Err()
}
