//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/globalcart/globalcart-warehouse/internal/config"
	"github.com/globalcart/globalcart-warehouse/internal/datagen"
	"github.com/globalcart/globalcart-warehouse/internal/generate"
	"github.com/globalcart/globalcart-warehouse/internal/logging"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

// Seeder performs the initial bulk load of the warehouse.
type Seeder struct {
	pool *pgxpool.Pool
	cfg  config.SeedConfig
}

// NewSeeder creates a bulk seeder.
func NewSeeder(pool *pgxpool.Pool, cfg config.SeedConfig) *Seeder {
	return &Seeder{pool: pool, cfg: cfg}
}

// Run creates the schema and loads a full synthetic dataset at the
// configured scale. The load goes through the same staging and merge
// engine as refresh runs, so re-seeding over an existing warehouse is
// idempotent unless DropExisting is set.
func (s *Seeder) Run(ctx context.Context, source string, now time.Time) (*Report, error) {
	now = now.UTC().Truncate(time.Second)

	scale, err := generate.ScaleByName(s.cfg.Scale)
	if err != nil {
		return nil, err
	}

	if s.cfg.DropExisting {
		if err := warehouse.DropSchema(ctx, s.pool); err != nil {
			return nil, err
		}
	}
	if err := warehouse.CreateSchema(ctx, s.pool); err != nil {
		return nil, err
	}

	logging.Info().
		Str("scale", s.cfg.Scale).
		Uint64("seed", s.cfg.RandomSeed).
		Int("orders", scale.Orders).
		Int("customers", scale.Customers).
		Msg("Generating dataset")

	f := datagen.NewFakerWithSeed(s.cfg.RandomSeed)
	dims, err := generate.Dimensions(f, scale, now)
	if err != nil {
		return nil, err
	}
	facts, err := generate.GenerateFacts(f, dims, scale, now)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	engine := warehouse.NewEngine(tx)
	if err := engine.TruncateStaging(ctx); err != nil {
		return nil, err
	}

	if err := engine.StageGeos(ctx, dims.Geos); err != nil {
		return nil, err
	}
	if err := engine.StageFCs(ctx, dims.FCs); err != nil {
		return nil, err
	}
	if err := engine.StageCustomers(ctx, dims.Customers); err != nil {
		return nil, err
	}
	if err := engine.StageProducts(ctx, dims.Products); err != nil {
		return nil, err
	}
	if err := engine.StageDates(ctx, dims.Dates); err != nil {
		return nil, err
	}
	if err := engine.StageOrders(ctx, facts.Orders); err != nil {
		return nil, err
	}
	if err := engine.StageItems(ctx, facts.Items); err != nil {
		return nil, err
	}
	if err := engine.StagePayments(ctx, facts.Payments); err != nil {
		return nil, err
	}
	if err := engine.StageEvents(ctx, facts.Events); err != nil {
		return nil, err
	}
	if err := engine.StageShipments(ctx, facts.Shipments); err != nil {
		return nil, err
	}
	if err := engine.StageReturns(ctx, facts.Returns); err != nil {
		return nil, err
	}

	merges, err := engine.MergeAll(ctx, append(append([]warehouse.Kind{}, warehouse.DimKinds...), warehouse.FactKinds...))
	if err != nil {
		return nil, err
	}

	// Seeding establishes the refresh boundary at load time.
	wm := warehouse.NewWatermarkStore(tx)
	if err := wm.Set(ctx, source, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit seed transaction: %w", err)
	}

	for _, kind := range append(append([]warehouse.Kind{}, warehouse.DimKinds...), warehouse.FactKinds...) {
		res := merges[kind]
		logging.Info().
			Str("entity", string(kind)).
			Int64("inserted", res.Inserted).
			Int64("updated", res.Updated).
			Msg("Loaded")
	}

	return &Report{
		Source:    source,
		Since:     now,
		Watermark: now,
		Merges:    merges,
	}, nil
}
