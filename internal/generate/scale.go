//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package generate produces the synthetic GlobalCart dataset: dimension
// tables, a multi-stage purchase funnel per session, and the derived
// order facts. All functions are pure CPU work over an explicit seeded
// random source; the same seed, scale and reference time reproduce the
// dataset exactly.
package generate

import (
	"fmt"
	"sort"
	"strings"
)

// ScaleConfig sets entity counts for a full dataset build.
type ScaleConfig struct {
	Geos             int
	FulfillmentCtrs  int
	Customers        int
	Products         int
	Orders           int
	MaxItemsPerOrder int
}

// Scales maps named scales to their entity counts.
var Scales = map[string]ScaleConfig{
	"small":  {Geos: 20, FulfillmentCtrs: 12, Customers: 25000, Products: 2000, Orders: 60000, MaxItemsPerOrder: 5},
	"medium": {Geos: 35, FulfillmentCtrs: 20, Customers: 90000, Products: 6000, Orders: 220000, MaxItemsPerOrder: 6},
	"large":  {Geos: 60, FulfillmentCtrs: 35, Customers: 250000, Products: 15000, Orders: 700000, MaxItemsPerOrder: 7},
}

// ScaleByName resolves a named scale, listing the valid names on error.
func ScaleByName(name string) (ScaleConfig, error) {
	scale, ok := Scales[name]
	if !ok {
		names := make([]string, 0, len(Scales))
		for n := range Scales {
			names = append(names, n)
		}
		sort.Strings(names)
		return ScaleConfig{}, fmt.Errorf("unknown scale %q, choose from: %s", name, strings.Join(names, ", "))
	}
	return scale, nil
}

// Validate rejects scales that cannot produce a coherent dataset.
func (s ScaleConfig) Validate() error {
	if s.Geos < 1 || s.FulfillmentCtrs < 1 || s.Customers < 1 || s.Products < 1 {
		return fmt.Errorf("scale requires at least one of each dimension entity")
	}
	if s.Orders < 0 {
		return fmt.Errorf("scale order count must be non-negative")
	}
	if s.MaxItemsPerOrder < 1 {
		return fmt.Errorf("scale max items per order must be at least 1")
	}
	return nil
}

const (
	// customerLookbackDays is the window over which customer creation
	// timestamps and bulk order timestamps are spread.
	customerLookbackDays = 365

	// dateDimLookbackDays is the coverage of the date dimension.
	dateDimLookbackDays = 430
)
