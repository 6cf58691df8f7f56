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
)

var (
	seedScale        string
	seedRandomSeed   uint64
	seedDropExisting bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the warehouse schema and load a full synthetic dataset",
	Long: `Create the globalcart schema and bulk-load a complete synthetic
dataset at the chosen scale: dimensions, a year of orders with line
items, payments, shipments and returns, and the funnel event stream
behind them.

The load runs through the same staging and merge engine as incremental
refreshes, so re-seeding an existing warehouse with the same seed is a
no-op unless --drop-existing is given.

Example:
  globalcart-warehouse seed --scale small --random-seed 42
  globalcart-warehouse seed --scale medium --drop-existing`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedScale, "scale", "",
		"dataset scale (small, medium, large)")
	seedCmd.Flags().Uint64Var(&seedRandomSeed, "random-seed", 0,
		"random seed for deterministic generation")
	seedCmd.Flags().BoolVar(&seedDropExisting, "drop-existing", false,
		"drop the warehouse schema before seeding")
}

func runSeed(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if seedScale != "" {
		cfg.Seed.Scale = seedScale
	}
	if seedRandomSeed > 0 {
		cfg.Seed.RandomSeed = seedRandomSeed
	}
	if seedDropExisting {
		cfg.Seed.DropExisting = true
	}

	if err := cfg.ValidateSeed(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	seeder := refresh.NewSeeder(pool, cfg.Seed)
	report, err := seeder.Run(ctx, cfg.Refresh.Source, time.Now())
	if err != nil {
		return err
	}

	printReport(cmd, report)
	return nil
}
