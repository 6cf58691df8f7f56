//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for globalcart-warehouse.
// Configuration is loaded from config files and CLI flags (no environment
// variables). CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for globalcart-warehouse.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Seed holds configuration for the seed subcommand.
	Seed SeedConfig `mapstructure:"seed"`

	// Refresh holds configuration for the refresh subcommand.
	Refresh RefreshConfig `mapstructure:"refresh"`
}

// SeedConfig holds configuration for the initial bulk load.
type SeedConfig struct {
	// Scale is the named dataset scale (small, medium, large).
	Scale string `mapstructure:"scale"`

	// RandomSeed drives the deterministic generators.
	RandomSeed uint64 `mapstructure:"random_seed"`

	// DropExisting drops the warehouse schema before seeding.
	DropExisting bool `mapstructure:"drop_existing"`
}

// RefreshConfig holds configuration for one incremental refresh run.
type RefreshConfig struct {
	// Source is the watermark source name for this refresh stream.
	Source string `mapstructure:"source"`

	// RandomSeed drives the deterministic delta generators.
	RandomSeed uint64 `mapstructure:"random_seed"`

	// NewOrders is the number of new orders to generate per run.
	NewOrders int `mapstructure:"new_orders"`

	// UpdateOrders is how many DELIVERED orders advance to COMPLETED.
	UpdateOrders int `mapstructure:"update_orders"`

	// UpdateShipments is how many on-time shipments get a late delivery.
	UpdateShipments int `mapstructure:"update_shipments"`

	// LateReturns is how many late returns to generate against
	// delivered orders.
	LateReturns int `mapstructure:"late_returns"`

	// NewCustomers is the number of new customers per run.
	NewCustomers int `mapstructure:"new_customers"`

	// UpdateProducts is how many products receive price drift.
	UpdateProducts int `mapstructure:"update_products"`

	// MaxItemsPerOrder bounds line items on delta orders.
	MaxItemsPerOrder int `mapstructure:"max_items_per_order"`

	// PriceDrift bounds the product price drift applied per run.
	PriceDrift PriceDriftConfig `mapstructure:"price_drift"`
}

// PriceDriftConfig bounds the per-run list price drift. The drift is a
// normal draw clamped to [Min, Max]. The bounds are tunables, not a
// contract of the warehouse.
type PriceDriftConfig struct {
	Mean   float64 `mapstructure:"mean"`
	StdDev float64 `mapstructure:"std_dev"`
	Min    float64 `mapstructure:"min"`
	Max    float64 `mapstructure:"max"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Seed: SeedConfig{
			Scale:      "small",
			RandomSeed: 42,
		},
		Refresh: RefreshConfig{
			Source:           "globalcart_incremental",
			RandomSeed:       7,
			NewOrders:        1500,
			UpdateOrders:     250,
			UpdateShipments:  200,
			LateReturns:      120,
			NewCustomers:     200,
			UpdateProducts:   40,
			MaxItemsPerOrder: 4,
			PriceDrift: PriceDriftConfig{
				Mean:   0.01,
				StdDev: 0.02,
				Min:    -0.03,
				Max:    0.06,
			},
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./globalcart-warehouse.yaml
// 3. ~/.config/globalcart-warehouse/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("globalcart-warehouse")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "globalcart-warehouse"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateSeed checks configuration required for the seed command.
func (c *Config) ValidateSeed() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Seed.Scale == "" {
		return fmt.Errorf("scale name is required for seed")
	}
	return nil
}

// ValidateRefresh checks configuration required for the refresh command.
// Delta counts must be positive: a refresh with nothing to apply is a
// configuration mistake, not a valid run.
func (c *Config) ValidateRefresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Refresh.Source == "" {
		return fmt.Errorf("watermark source name is required for refresh")
	}
	counts := map[string]int{
		"new_orders":          c.Refresh.NewOrders,
		"update_orders":       c.Refresh.UpdateOrders,
		"update_shipments":    c.Refresh.UpdateShipments,
		"late_returns":        c.Refresh.LateReturns,
		"new_customers":       c.Refresh.NewCustomers,
		"update_products":     c.Refresh.UpdateProducts,
		"max_items_per_order": c.Refresh.MaxItemsPerOrder,
	}
	for name, n := range counts {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}
	if c.Refresh.PriceDrift.Max < c.Refresh.PriceDrift.Min {
		return fmt.Errorf("price_drift.max must be >= price_drift.min")
	}
	return nil
}
