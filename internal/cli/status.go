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
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/globalcart/globalcart-warehouse/internal/db"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watermarks and row counts for a seeded warehouse",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	wm := warehouse.NewWatermarkStore(pool)
	marks, err := wm.All(ctx)
	if err != nil {
		return err
	}

	if len(marks) == 0 {
		cmd.Println("No watermarks found; run 'globalcart-warehouse seed' first.")
	} else {
		cmd.Printf("%-28s %s\n", "source", "last_processed_ts")
		for _, source := range sortedKeys(marks) {
			cmd.Printf("%-28s %s\n", source, marks[source].Format(time.RFC3339))
		}
		cmd.Println()
	}

	counts, err := warehouse.TableCounts(ctx, pool)
	if err != nil {
		return err
	}
	cmd.Printf("%-22s %12s\n", "table", "rows")
	for _, kind := range append(append([]warehouse.Kind{}, warehouse.DimKinds...), warehouse.FactKinds...) {
		cmd.Printf("%-22s %12d\n", kind, counts[kind])
	}
	return nil
}

func sortedKeys(m map[string]time.Time) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
