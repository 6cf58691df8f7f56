//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests for the refresh orchestrator.
// Run with: go test -tags=integration ./internal/refresh/...
// Requires PostgreSQL to be available.
// Set GLOBALCART_TEST_CONN environment variable to override connection string.

package refresh_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/globalcart/globalcart-warehouse/internal/config"
	"github.com/globalcart/globalcart-warehouse/internal/datagen"
	"github.com/globalcart/globalcart-warehouse/internal/generate"
	"github.com/globalcart/globalcart-warehouse/internal/refresh"
	"github.com/globalcart/globalcart-warehouse/internal/testutil"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

// baseScale keeps the seeded warehouse small enough for fast test runs
// while still producing delivered orders, shipments and return
// candidates for the refresh to work against.
var baseScale = generate.ScaleConfig{
	Geos:             6,
	FulfillmentCtrs:  3,
	Customers:        150,
	Products:         80,
	Orders:           400,
	MaxItemsPerOrder: 3,
}

var refreshCfg = config.RefreshConfig{
	Source:           "orders_api",
	RandomSeed:       7,
	NewOrders:        40,
	UpdateOrders:     10,
	UpdateShipments:  5,
	LateReturns:      8,
	NewCustomers:     12,
	UpdateProducts:   6,
	MaxItemsPerOrder: 3,
	PriceDrift: config.PriceDriftConfig{
		Mean:   0.01,
		StdDev: 0.02,
		Min:    -0.03,
		Max:    0.06,
	},
}

// seedBase loads a small deterministic dataset into a fresh warehouse.
func seedBase(t *testing.T, pool *pgxpool.Pool, now time.Time) {
	t.Helper()
	ctx := context.Background()

	if err := warehouse.CreateSchema(ctx, pool); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}

	f := datagen.NewFakerWithSeed(42)
	dims, err := generate.Dimensions(f, baseScale, now)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	facts, err := generate.GenerateFacts(f, dims, baseScale, now)
	if err != nil {
		t.Fatalf("GenerateFacts failed: %v", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback(ctx)

	e := warehouse.NewEngine(tx)
	if err := e.TruncateStaging(ctx); err != nil {
		t.Fatalf("TruncateStaging failed: %v", err)
	}
	if err := e.StageGeos(ctx, dims.Geos); err != nil {
		t.Fatalf("StageGeos failed: %v", err)
	}
	if err := e.StageFCs(ctx, dims.FCs); err != nil {
		t.Fatalf("StageFCs failed: %v", err)
	}
	if err := e.StageCustomers(ctx, dims.Customers); err != nil {
		t.Fatalf("StageCustomers failed: %v", err)
	}
	if err := e.StageProducts(ctx, dims.Products); err != nil {
		t.Fatalf("StageProducts failed: %v", err)
	}
	if err := e.StageDates(ctx, dims.Dates); err != nil {
		t.Fatalf("StageDates failed: %v", err)
	}
	if err := e.StageOrders(ctx, facts.Orders); err != nil {
		t.Fatalf("StageOrders failed: %v", err)
	}
	if err := e.StageItems(ctx, facts.Items); err != nil {
		t.Fatalf("StageItems failed: %v", err)
	}
	if err := e.StagePayments(ctx, facts.Payments); err != nil {
		t.Fatalf("StagePayments failed: %v", err)
	}
	if err := e.StageEvents(ctx, facts.Events); err != nil {
		t.Fatalf("StageEvents failed: %v", err)
	}
	if err := e.StageShipments(ctx, facts.Shipments); err != nil {
		t.Fatalf("StageShipments failed: %v", err)
	}
	if err := e.StageReturns(ctx, facts.Returns); err != nil {
		t.Fatalf("StageReturns failed: %v", err)
	}

	kinds := append(append([]warehouse.Kind{}, warehouse.DimKinds...), warehouse.FactKinds...)
	if _, err := e.MergeAll(ctx, kinds); err != nil {
		t.Fatalf("MergeAll failed: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int64 {
	t.Helper()
	var n int64
	if err := pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM globalcart."+table).Scan(&n); err != nil {
		t.Fatalf("Count %s failed: %v", table, err)
	}
	return n
}

func TestRefreshIntegration(t *testing.T) {
	baseConnStr := testutil.SkipIfNoPostgres(t)

	testConnStr := testutil.CreateTestDB(t, baseConnStr, "refresh")
	dbName := testutil.GetDBNameFromConnStr(testConnStr)

	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	t.Cleanup(cleanup.Cleanup)

	pool := testutil.ConnectTestDB(t, testConnStr)
	cleanup.SetPool(pool)

	ctx := context.Background()
	seedTime := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	seedBase(t, pool, seedTime)

	ordersBefore := countRows(t, pool, "fact_orders")
	customersBefore := countRows(t, pool, "dim_customer")
	eventsBefore := countRows(t, pool, "fact_funnel_events")

	o := refresh.NewOrchestrator(pool, refreshCfg)
	runTime := seedTime.Add(30 * time.Minute)

	report, err := o.Run(ctx, runTime)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Source != refreshCfg.Source {
		t.Errorf("report source = %q, want %q", report.Source, refreshCfg.Source)
	}
	if !report.Watermark.Equal(runTime) {
		t.Errorf("report watermark = %v, want %v", report.Watermark, runTime)
	}
	wantSince := runTime.Add(-warehouse.DefaultWatermarkLookback)
	if !report.Since.Equal(wantSince) {
		t.Errorf("report since = %v, want default lookback %v", report.Since, wantSince)
	}

	if res := report.Merges[warehouse.KindOrder]; res.Inserted != int64(refreshCfg.NewOrders) {
		t.Errorf("order merge inserted %d, want %d", res.Inserted, refreshCfg.NewOrders)
	}
	if res := report.Merges[warehouse.KindOrder]; res.Updated == 0 {
		t.Error("order merge updated no rows despite completion and return deltas")
	}
	if res := report.Merges[warehouse.KindCustomer]; res.Inserted != int64(refreshCfg.NewCustomers) {
		t.Errorf("customer merge inserted %d, want %d", res.Inserted, refreshCfg.NewCustomers)
	}
	if res := report.Merges[warehouse.KindProduct]; res.Updated == 0 {
		t.Error("product merge applied no price drift")
	}
	if res := report.Merges[warehouse.KindReturn]; res.Inserted == 0 {
		t.Error("return merge inserted no late returns")
	}

	if got := countRows(t, pool, "fact_orders"); got != ordersBefore+int64(refreshCfg.NewOrders) {
		t.Errorf("fact_orders has %d rows, want %d", got, ordersBefore+int64(refreshCfg.NewOrders))
	}
	if got := countRows(t, pool, "dim_customer"); got != customersBefore+int64(refreshCfg.NewCustomers) {
		t.Errorf("dim_customer has %d rows, want %d", got, customersBefore+int64(refreshCfg.NewCustomers))
	}
	if got := countRows(t, pool, "fact_funnel_events"); got <= eventsBefore {
		t.Error("refresh generated no funnel events")
	}

	// Orders returned this run must carry the RETURNED status.
	var unreturned int64
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM globalcart.fact_returns r
		JOIN globalcart.fact_orders o ON o.order_id = r.order_id
		WHERE r.updated_at >= $1 AND o.order_status <> 'RETURNED'`, runTime).Scan(&unreturned)
	if err != nil {
		t.Fatalf("Returned-order check failed: %v", err)
	}
	if unreturned != 0 {
		t.Errorf("%d orders with fresh returns are not RETURNED", unreturned)
	}

	// The watermark is the committed run boundary.
	store := warehouse.NewWatermarkStore(pool)
	wm, ok, err := store.Get(ctx, refreshCfg.Source)
	if err != nil {
		t.Fatalf("Get watermark failed: %v", err)
	}
	if !ok || !wm.Equal(runTime) {
		t.Errorf("stored watermark = %v, want %v", wm, runTime)
	}
}

func TestRefreshRunsBackToBack(t *testing.T) {
	baseConnStr := testutil.SkipIfNoPostgres(t)

	testConnStr := testutil.CreateTestDB(t, baseConnStr, "refresh_twice")
	dbName := testutil.GetDBNameFromConnStr(testConnStr)

	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	t.Cleanup(cleanup.Cleanup)

	pool := testutil.ConnectTestDB(t, testConnStr)
	cleanup.SetPool(pool)

	ctx := context.Background()
	seedTime := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	seedBase(t, pool, seedTime)

	o := refresh.NewOrchestrator(pool, refreshCfg)

	first, err := o.Run(ctx, seedTime.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := o.Run(ctx, seedTime.Add(60*time.Minute))
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	// The second run reads its window from the first run's watermark.
	if !second.Since.Equal(first.Watermark) {
		t.Errorf("second run since = %v, want first watermark %v", second.Since, first.Watermark)
	}

	// Id sequences continue across runs, so both runs insert their full
	// order batch without key collisions.
	for i, report := range []*refresh.Report{first, second} {
		if res := report.Merges[warehouse.KindOrder]; res.Inserted != int64(refreshCfg.NewOrders) {
			t.Errorf("run %d inserted %d orders, want %d", i+1, res.Inserted, refreshCfg.NewOrders)
		}
	}
}
