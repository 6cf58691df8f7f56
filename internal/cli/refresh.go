//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/globalcart/globalcart-warehouse/internal/db"
	"github.com/globalcart/globalcart-warehouse/internal/refresh"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

var (
	refreshSource          string
	refreshRandomSeed      uint64
	refreshNewOrders       int
	refreshUpdateOrders    int
	refreshUpdateShipments int
	refreshLateReturns     int
	refreshNewCustomers    int
	refreshUpdateProducts  int
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one incremental refresh against a seeded warehouse",
	Long: `Run one incremental refresh: generate new orders since the stored
watermark, advance order lifecycles, delay a few shipments, file late
returns, add customers, drift product prices, and merge everything
idempotently. The watermark advances in the same transaction as the
merges, so an interrupted run changes nothing.

Example:
  globalcart-warehouse refresh
  globalcart-warehouse refresh --new-orders 5000 --late-returns 300`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshSource, "source", "",
		"watermark source name")
	refreshCmd.Flags().Uint64Var(&refreshRandomSeed, "random-seed", 0,
		"random seed for deterministic delta generation")
	refreshCmd.Flags().IntVar(&refreshNewOrders, "new-orders", 0,
		"number of new orders to generate")
	refreshCmd.Flags().IntVar(&refreshUpdateOrders, "update-orders", 0,
		"number of DELIVERED orders to advance to COMPLETED")
	refreshCmd.Flags().IntVar(&refreshUpdateShipments, "update-shipments", 0,
		"number of on-time shipments to delay past their promise")
	refreshCmd.Flags().IntVar(&refreshLateReturns, "late-returns", 0,
		"number of late returns to file")
	refreshCmd.Flags().IntVar(&refreshNewCustomers, "new-customers", 0,
		"number of new customers to add")
	refreshCmd.Flags().IntVar(&refreshUpdateProducts, "update-products", 0,
		"number of products to apply price drift to")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if refreshSource != "" {
		cfg.Refresh.Source = refreshSource
	}
	if refreshRandomSeed > 0 {
		cfg.Refresh.RandomSeed = refreshRandomSeed
	}
	if refreshNewOrders > 0 {
		cfg.Refresh.NewOrders = refreshNewOrders
	}
	if refreshUpdateOrders > 0 {
		cfg.Refresh.UpdateOrders = refreshUpdateOrders
	}
	if refreshUpdateShipments > 0 {
		cfg.Refresh.UpdateShipments = refreshUpdateShipments
	}
	if refreshLateReturns > 0 {
		cfg.Refresh.LateReturns = refreshLateReturns
	}
	if refreshNewCustomers > 0 {
		cfg.Refresh.NewCustomers = refreshNewCustomers
	}
	if refreshUpdateProducts > 0 {
		cfg.Refresh.UpdateProducts = refreshUpdateProducts
	}

	if err := cfg.ValidateRefresh(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	orch := refresh.NewOrchestrator(pool, cfg.Refresh)
	report, err := orch.Run(ctx, time.Now())
	if err != nil {
		return err
	}

	printReport(cmd, report)
	return nil
}

// printReport prints per-entity merge counts in a stable order.
func printReport(cmd *cobra.Command, report *refresh.Report) {
	cmd.Printf("source:    %s\n", report.Source)
	cmd.Printf("watermark: %s\n", report.Watermark.Format(time.RFC3339))
	cmd.Println()
	cmd.Printf("%-22s %10s %10s\n", "entity", "inserted", "updated")
	for _, kind := range append(append([]warehouse.Kind{}, warehouse.DimKinds...), warehouse.FactKinds...) {
		res, ok := report.Merges[kind]
		if !ok {
			continue
		}
		cmd.Printf("%-22s %10d %10d\n", kind, res.Inserted, res.Updated)
	}
}
