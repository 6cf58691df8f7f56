//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package refresh drives incremental warehouse refresh runs: it reads
// the watermark, generates dimension and fact deltas, merges them
// through staging and advances the watermark, all inside a single
// transaction.
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

// Phase names the stages of a refresh run for error reporting.
type Phase string

const (
	PhaseReadWatermark     Phase = "read_watermark"
	PhaseGenerateDimDelta  Phase = "generate_dim_delta"
	PhaseMergeDim          Phase = "merge_dim"
	PhaseGenerateFactDelta Phase = "generate_fact_delta"
	PhaseMergeFact         Phase = "merge_fact"
	PhaseAdvanceWatermark  Phase = "advance_watermark"
)

// PhaseError tags an error with the refresh phase that produced it.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("refresh phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

func phaseErr(phase Phase, err error) error {
	return &PhaseError{Phase: phase, Err: err}
}

// Report summarizes a successful refresh run.
type Report struct {
	Source    string
	Since     time.Time
	Watermark time.Time
	Merges    map[warehouse.Kind]warehouse.MergeResult
}

// Orchestrator runs incremental refreshes against one warehouse.
type Orchestrator struct {
	pool *pgxpool.Pool
	cfg  config.RefreshConfig
}

// NewOrchestrator creates a refresh orchestrator.
func NewOrchestrator(pool *pgxpool.Pool, cfg config.RefreshConfig) *Orchestrator {
	return &Orchestrator{pool: pool, cfg: cfg}
}

// Run executes one refresh: dimension deltas merge first, fact deltas
// second, and the watermark advances to now in the same transaction as
// the merges. Any failure before commit leaves the warehouse untouched.
func (o *Orchestrator) Run(ctx context.Context, now time.Time) (*Report, error) {
	now = now.UTC().Truncate(time.Second)

	// The default watermark persists immediately in its own statement,
	// so a first run that later fails still converges on one boundary.
	wm := warehouse.NewWatermarkStore(o.pool)
	since, err := wm.GetOrInit(ctx, o.cfg.Source, now.Add(-warehouse.DefaultWatermarkLookback))
	if err != nil {
		return nil, phaseErr(PhaseReadWatermark, err)
	}
	logging.Info().
		Str("source", o.cfg.Source).
		Time("since", since).
		Time("now", now).
		Msg("Starting incremental refresh")

	f := datagen.NewFakerWithSeed(o.cfg.RandomSeed)

	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin refresh transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	engine := warehouse.NewEngine(tx)
	if err := engine.TruncateStaging(ctx); err != nil {
		return nil, err
	}

	merges := make(map[warehouse.Kind]warehouse.MergeResult)

	// Dimension deltas: new customers and product price drift.
	maxCustomerID, err := readMaxCustomerID(ctx, tx)
	if err != nil {
		return nil, phaseErr(PhaseGenerateDimDelta, err)
	}
	geoIDs, err := readGeoIDs(ctx, tx)
	if err != nil {
		return nil, phaseErr(PhaseGenerateDimDelta, err)
	}
	customers, err := generate.NewCustomers(f, maxCustomerID+1, o.cfg.NewCustomers, geoIDs, since, now)
	if err != nil {
		return nil, phaseErr(PhaseGenerateDimDelta, err)
	}
	productCandidates, err := readProductCandidates(ctx, tx)
	if err != nil {
		return nil, phaseErr(PhaseGenerateDimDelta, err)
	}
	drifted := generate.DriftProducts(f, productCandidates, o.cfg.UpdateProducts, generate.PriceDrift{
		Mean:   o.cfg.PriceDrift.Mean,
		StdDev: o.cfg.PriceDrift.StdDev,
		Min:    o.cfg.PriceDrift.Min,
		Max:    o.cfg.PriceDrift.Max,
	}, now)

	customers = warehouse.DedupeLatest(customers,
		func(c warehouse.Customer) int64 { return c.CustomerID },
		func(c warehouse.Customer) time.Time { return c.UpdatedAt })
	drifted = warehouse.DedupeLatest(drifted,
		func(p warehouse.Product) int64 { return p.ProductID },
		func(p warehouse.Product) time.Time { return p.UpdatedAt })

	if err := engine.StageCustomers(ctx, customers); err != nil {
		return nil, phaseErr(PhaseMergeDim, err)
	}
	if err := engine.StageProducts(ctx, drifted); err != nil {
		return nil, phaseErr(PhaseMergeDim, err)
	}
	dimMerges, err := engine.MergeAll(ctx, []warehouse.Kind{warehouse.KindCustomer, warehouse.KindProduct})
	if err != nil {
		return nil, phaseErr(PhaseMergeDim, err)
	}
	for kind, res := range dimMerges {
		merges[kind] = res
	}

	// Fact deltas, generated against the dimensions merged above.
	refs, err := readRefs(ctx, tx)
	if err != nil {
		return nil, phaseErr(PhaseGenerateFactDelta, err)
	}
	ids, err := readNextIDs(ctx, tx)
	if err != nil {
		return nil, phaseErr(PhaseGenerateFactDelta, err)
	}

	facts, ids, err := generate.NewOrderFacts(f, refs, ids, o.cfg.NewOrders, o.cfg.MaxItemsPerOrder, since, now)
	if err != nil {
		return nil, phaseErr(PhaseGenerateFactDelta, err)
	}

	delivered, err := readDeliveredOrders(ctx, tx)
	if err != nil {
		return nil, phaseErr(PhaseGenerateFactDelta, err)
	}
	completed := generate.CompleteOrders(f, delivered, o.cfg.UpdateOrders, now)

	onTime, err := readOnTimeShipments(ctx, tx)
	if err != nil {
		return nil, phaseErr(PhaseGenerateFactDelta, err)
	}
	delayed := generate.DelayShipments(f, onTime, o.cfg.UpdateShipments, now)
	delayedOrders := make(map[int64]bool, len(delayed))
	for _, s := range delayed {
		delayedOrders[s.OrderID] = true
	}

	returnCandidates, err := readReturnCandidates(ctx, tx)
	if err != nil {
		return nil, phaseErr(PhaseGenerateFactDelta, err)
	}
	lateDelta, _ := generate.LateReturns(f, returnCandidates, o.cfg.LateReturns, ids.Return, delayedOrders, now)

	returnedOrders, err := readOrdersByID(ctx, tx, lateDelta.OrderIDs)
	if err != nil {
		return nil, phaseErr(PhaseGenerateFactDelta, err)
	}
	returned := generate.MarkReturned(returnedOrders, now)

	// One staged row per key: when an order is touched by several
	// deltas in the same run, the last write wins. RETURNED is appended
	// last so it always survives the dedupe.
	orders := warehouse.DedupeLatest(
		append(append(facts.Orders, completed...), returned...),
		func(r warehouse.Order) int64 { return r.OrderID },
		func(r warehouse.Order) time.Time { return r.UpdatedAt })
	payments := warehouse.DedupeLatest(
		append(facts.Payments, lateDelta.Payments...),
		func(p warehouse.Payment) int64 { return p.PaymentID },
		func(p warehouse.Payment) time.Time { return p.UpdatedAt })
	shipments := warehouse.DedupeLatest(
		append(facts.Shipments, delayed...),
		func(s warehouse.Shipment) int64 { return s.ShipmentID },
		func(s warehouse.Shipment) time.Time { return s.UpdatedAt })

	if err := engine.StageOrders(ctx, orders); err != nil {
		return nil, phaseErr(PhaseMergeFact, err)
	}
	if err := engine.StageItems(ctx, facts.Items); err != nil {
		return nil, phaseErr(PhaseMergeFact, err)
	}
	if err := engine.StagePayments(ctx, payments); err != nil {
		return nil, phaseErr(PhaseMergeFact, err)
	}
	if err := engine.StageEvents(ctx, facts.Events); err != nil {
		return nil, phaseErr(PhaseMergeFact, err)
	}
	if err := engine.StageShipments(ctx, shipments); err != nil {
		return nil, phaseErr(PhaseMergeFact, err)
	}
	if err := engine.StageReturns(ctx, lateDelta.Returns); err != nil {
		return nil, phaseErr(PhaseMergeFact, err)
	}

	factMerges, err := engine.MergeAll(ctx, warehouse.FactKinds)
	if err != nil {
		return nil, phaseErr(PhaseMergeFact, err)
	}
	for kind, res := range factMerges {
		merges[kind] = res
	}

	// The watermark only advances with the merges it covers.
	txWM := warehouse.NewWatermarkStore(tx)
	if err := txWM.Set(ctx, o.cfg.Source, now); err != nil {
		return nil, phaseErr(PhaseAdvanceWatermark, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit refresh transaction: %w", err)
	}

	for _, kind := range append(append([]warehouse.Kind{}, warehouse.DimKinds...), warehouse.FactKinds...) {
		res, ok := merges[kind]
		if !ok {
			continue
		}
		logging.Info().
			Str("entity", string(kind)).
			Int64("inserted", res.Inserted).
			Int64("updated", res.Updated).
			Msg("Merged")
	}
	logging.Info().
		Str("source", o.cfg.Source).
		Time("watermark", now).
		Msg("Refresh complete")

	return &Report{
		Source:    o.cfg.Source,
		Since:     since,
		Watermark: now,
		Merges:    merges,
	}, nil
}
