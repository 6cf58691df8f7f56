//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package generate

import (
	"fmt"
	"time"

	"github.com/globalcart/globalcart-warehouse/internal/datagen"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

// Dims holds one full set of generated dimension tables.
type Dims struct {
	Geos      []warehouse.Geo
	FCs       []warehouse.FulfillmentCenter
	Customers []warehouse.Customer
	Products  []warehouse.Product
	Dates     []warehouse.DateDim
}

type countryInfo struct {
	country  string
	region   string
	currency string
}

var countries = []countryInfo{
	{"United States", "North America", "USD"},
	{"Canada", "North America", "CAD"},
	{"United Kingdom", "Europe", "GBP"},
	{"Germany", "Europe", "EUR"},
	{"France", "Europe", "EUR"},
	{"India", "APAC", "INR"},
	{"Singapore", "APAC", "SGD"},
	{"Australia", "APAC", "AUD"},
	{"Japan", "APAC", "JPY"},
	{"Brazil", "LATAM", "BRL"},
}

var timezoneByRegion = map[string]string{
	"North America": "America/New_York",
	"Europe":        "Europe/London",
	"APAC":          "Asia/Kolkata",
	"LATAM":         "America/Sao_Paulo",
}

// AcquisitionChannels is the fixed customer acquisition channel pool.
var AcquisitionChannels = []string{"ORGANIC", "PAID_SEARCH", "AFFILIATES", "EMAIL", "SOCIAL"}

// Dimensions produces deterministic, fully-formed dimension tables for
// the given scale. Identifiers are dense and start at 1. The reference
// time now anchors all generated timestamps; callers pass a fixed value
// to reproduce a dataset exactly.
func Dimensions(f *datagen.Faker, scale ScaleConfig, now time.Time) (*Dims, error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	now = now.UTC().Truncate(time.Second)
	windowStart := now.AddDate(0, 0, -customerLookbackDays)

	d := &Dims{
		Geos:      make([]warehouse.Geo, 0, scale.Geos),
		FCs:       make([]warehouse.FulfillmentCenter, 0, scale.FulfillmentCtrs),
		Customers: make([]warehouse.Customer, 0, scale.Customers),
		Products:  make([]warehouse.Product, 0, scale.Products),
	}

	for geoID := int64(1); geoID <= int64(scale.Geos); geoID++ {
		c := datagen.Choose(f, countries)
		d.Geos = append(d.Geos, warehouse.Geo{
			GeoID:     geoID,
			Country:   c.country,
			Region:    c.region,
			City:      f.City(),
			Currency:  c.currency,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for fcID := int64(1); fcID <= int64(scale.FulfillmentCtrs); fcID++ {
		geo := datagen.Choose(f, d.Geos)
		tz, ok := timezoneByRegion[geo.Region]
		if !ok {
			tz = "UTC"
		}
		d.FCs = append(d.FCs, warehouse.FulfillmentCenter{
			FCID:      fcID,
			Name:      fmt.Sprintf("FC-%s-%d", f.LettersUpper(4), fcID),
			GeoID:     geo.GeoID,
			Timezone:  tz,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for customerID := int64(1); customerID <= int64(scale.Customers); customerID++ {
		createdTS := f.TimeIn(windowStart, now)
		d.Customers = append(d.Customers, warehouse.Customer{
			CustomerID:         customerID,
			CreatedTS:          createdTS,
			GeoID:              datagen.Choose(f, d.Geos).GeoID,
			AcquisitionChannel: datagen.Choose(f, AcquisitionChannels),
			CreatedAt:          createdTS,
			UpdatedAt:          createdTS,
		})
	}

	for productID := int64(1); productID <= int64(scale.Products); productID++ {
		d.Products = append(d.Products, newProduct(f, productID, now))
	}

	d.Dates = dateDimension(now.AddDate(0, 0, -dateDimLookbackDays), now)

	return d, nil
}

// newProduct draws one product from the fixed taxonomy. The markup band
// keeps cost below list price, so gross margin is positive and bounded.
func newProduct(f *datagen.Faker, productID int64, now time.Time) warehouse.Product {
	spec := datagen.Choose(f, catalog)
	brand := datagen.Choose(f, spec.brands)

	listPrice := datagen.Round2(f.Float64(spec.priceMin, spec.priceMax))
	markup := f.Float64(1.18, 1.75)
	unitCost := datagen.Round2(listPrice / markup)

	name := productName(f, spec, brand)
	if len(name) > 200 {
		name = name[:200]
	}

	return warehouse.Product{
		ProductID:  productID,
		SKU:        fmt.Sprintf("SKU-%07d", productID),
		Name:       name,
		CategoryL1: spec.l1,
		CategoryL2: spec.l2,
		Brand:      brand,
		UnitCost:   unitCost,
		ListPrice:  listPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// dateDimension builds one dim_date row per calendar day in [start, end].
func dateDimension(start, end time.Time) []warehouse.DateDim {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var rows []warehouse.DateDim
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		_, week := d.ISOWeek()
		dow := int(d.Weekday())
		if dow == 0 {
			dow = 7 // ISO day-of-week: Monday=1 .. Sunday=7
		}
		rows = append(rows, warehouse.DateDim{
			DateID:     int64(d.Year()*10000 + int(d.Month())*100 + d.Day()),
			DateValue:  d,
			Year:       d.Year(),
			Quarter:    (int(d.Month())-1)/3 + 1,
			Month:      int(d.Month()),
			MonthName:  d.Month().String(),
			WeekOfYear: week,
			DayOfMonth: d.Day(),
			DayOfWeek:  dow,
			DayName:    d.Weekday().String(),
			IsWeekend:  dow >= 6,
		})
	}
	return rows
}
