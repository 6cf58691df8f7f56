//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for
// globalcart-warehouse.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/globalcart/globalcart-warehouse/internal/config"
	"github.com/globalcart/globalcart-warehouse/internal/logging"
	"github.com/globalcart/globalcart-warehouse/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	logLevel   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "globalcart-warehouse",
		Short: "Synthetic e-commerce warehouse with incremental refresh",
		Long: `globalcart-warehouse seeds a PostgreSQL star schema with synthetic
e-commerce data and keeps it moving with watermark-driven incremental
refresh runs: new orders, order lifecycle updates, late deliveries,
late returns, and dimension drift.

All generation is deterministic for a given random seed, and every
refresh applies its deltas through staging tables and idempotent
merges inside a single transaction.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./globalcart-warehouse.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
