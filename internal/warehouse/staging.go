//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind identifies one warehouse entity kind.
type Kind string

const (
	KindGeo      Kind = "dim_geo"
	KindFC       Kind = "dim_fc"
	KindCustomer Kind = "dim_customer"
	KindProduct  Kind = "dim_product"
	KindDate     Kind = "dim_date"
	KindOrder    Kind = "fact_orders"
	KindItem     Kind = "fact_order_items"
	KindPayment  Kind = "fact_payments"
	KindEvent    Kind = "fact_funnel_events"
	KindShipment Kind = "fact_shipments"
	KindReturn   Kind = "fact_returns"
)

// DimKinds lists dimension kinds in merge order.
var DimKinds = []Kind{KindGeo, KindFC, KindCustomer, KindProduct, KindDate}

// FactKinds lists fact kinds in merge order. Orders merge before the
// facts that reference them.
var FactKinds = []Kind{KindOrder, KindItem, KindPayment, KindEvent, KindShipment, KindReturn}

// mergeMode selects the upsert strategy for a kind.
type mergeMode int

const (
	// modeUpsert updates an existing row when the staged content
	// differs; unchanged rows are no-ops.
	modeUpsert mergeMode = iota
	// modeInsertOnly never updates: conflicting keys are skipped.
	// Used for immutable and append-only kinds.
	modeInsertOnly
)

// tableSpec describes the physical table behind a Kind.
type tableSpec struct {
	table   string
	key     string
	columns []string
	mode    mergeMode
	// assignOverrides replaces the default "col = EXCLUDED.col"
	// assignment for specific columns during upsert.
	assignOverrides map[string]string
}

var tableSpecs = map[Kind]tableSpec{
	KindGeo: {
		table:   "dim_geo",
		key:     "geo_id",
		columns: []string{"geo_id", "country", "region", "city", "currency", "created_at", "updated_at"},
		mode:    modeInsertOnly,
	},
	KindFC: {
		table:   "dim_fc",
		key:     "fc_id",
		columns: []string{"fc_id", "fc_name", "geo_id", "timezone", "created_at", "updated_at"},
		mode:    modeInsertOnly,
	},
	KindCustomer: {
		table: "dim_customer",
		key:   "customer_id",
		columns: []string{"customer_id", "customer_created_ts", "geo_id", "acquisition_channel",
			"created_at", "updated_at"},
		mode: modeUpsert,
	},
	KindProduct: {
		table: "dim_product",
		key:   "product_id",
		columns: []string{"product_id", "sku", "product_name", "category_l1", "category_l2",
			"brand", "unit_cost", "list_price", "created_at", "updated_at"},
		mode: modeUpsert,
	},
	KindDate: {
		table: "dim_date",
		key:   "date_id",
		columns: []string{"date_id", "date_value", "year", "quarter", "month", "month_name",
			"week_of_year", "day_of_month", "day_of_week", "day_name", "is_weekend"},
		mode: modeInsertOnly,
	},
	KindOrder: {
		table: "fact_orders",
		key:   "order_id",
		columns: []string{"order_id", "customer_id", "geo_id", "order_ts", "order_status",
			"channel", "currency", "gross_amount", "discount_amount", "tax_amount",
			"net_amount", "created_at", "updated_at"},
		mode: modeUpsert,
	},
	KindItem: {
		table: "fact_order_items",
		key:   "order_item_id",
		columns: []string{"order_item_id", "order_id", "product_id", "qty", "unit_list_price",
			"unit_sell_price", "unit_cost", "line_discount", "line_tax", "line_net_revenue",
			"created_at", "updated_at"},
		mode: modeInsertOnly,
	},
	KindPayment: {
		table: "fact_payments",
		key:   "payment_id",
		columns: []string{"payment_id", "order_id", "payment_method", "payment_status",
			"payment_provider", "amount", "gateway_fee_amount", "authorized_ts",
			"captured_ts", "failure_reason", "refund_amount", "chargeback_flag",
			"created_at", "updated_at"},
		mode: modeUpsert,
	},
	KindEvent: {
		table: "fact_funnel_events",
		key:   "event_id",
		columns: []string{"event_id", "event_ts", "session_id", "customer_id", "product_id",
			"order_id", "stage", "channel", "device", "failure_reason"},
		mode: modeInsertOnly,
	},
	KindShipment: {
		table: "fact_shipments",
		key:   "shipment_id",
		columns: []string{"shipment_id", "order_id", "fc_id", "carrier", "shipped_ts",
			"promised_delivery_dt", "delivered_dt", "shipping_cost", "sla_breached_flag",
			"created_at", "updated_at"},
		mode: modeUpsert,
		// The breach flag is monotonic: once true it never reverts,
		// whatever a staged row claims.
		assignOverrides: map[string]string{
			"sla_breached_flag": "t.sla_breached_flag OR EXCLUDED.sla_breached_flag",
		},
	},
	KindReturn: {
		table: "fact_returns",
		key:   "return_id",
		columns: []string{"return_id", "order_id", "order_item_id", "product_id", "return_ts",
			"return_reason", "refund_amount", "return_status", "restocked_flag",
			"created_at", "updated_at"},
		mode: modeUpsert,
	},
}

func (s tableSpec) qualified() string {
	return SchemaName + "." + s.table
}

func (s tableSpec) stagingName() string {
	return "stg_" + s.table
}

// DBTX is the transactional surface the staging and merge engine needs.
// Both pgx.Tx and *pgxpool.Pool satisfy it; runs pass a transaction so
// that staging, merging and the watermark advance commit as one unit.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Engine stages candidate rows and merges them into the permanent
// tables within a single transaction scope.
type Engine struct {
	db DBTX
}

// NewEngine creates a staging and merge engine bound to a transaction.
func NewEngine(db DBTX) *Engine {
	return &Engine{db: db}
}

// TruncateStaging clears all staging tables for a fresh run.
func (e *Engine) TruncateStaging(ctx context.Context) error {
	names := make([]string, 0, len(tableSpecs))
	for _, spec := range tableSpecs {
		names = append(names, SchemaName+"."+spec.stagingName())
	}
	_, err := e.db.Exec(ctx, "TRUNCATE TABLE "+strings.Join(names, ", "))
	if err != nil {
		return fmt.Errorf("truncate staging: %w", err)
	}
	return nil
}

func stageRows[R interface{ values() []any }](ctx context.Context, e *Engine, kind Kind, rows []R) error {
	if len(rows) == 0 {
		return nil
	}
	spec := tableSpecs[kind]
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return rows[i].values(), nil
	})
	n, err := e.db.CopyFrom(ctx, pgx.Identifier{SchemaName, spec.stagingName()}, spec.columns, src)
	if err != nil {
		return fmt.Errorf("stage %s: %w", kind, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("stage %s: copied %d of %d rows", kind, n, len(rows))
	}
	return nil
}

// StageGeos loads geo dimension candidates into staging.
func (e *Engine) StageGeos(ctx context.Context, rows []Geo) error {
	return stageRows(ctx, e, KindGeo, rows)
}

// StageFCs loads fulfillment center candidates into staging.
func (e *Engine) StageFCs(ctx context.Context, rows []FulfillmentCenter) error {
	return stageRows(ctx, e, KindFC, rows)
}

// StageCustomers loads customer dimension candidates into staging.
func (e *Engine) StageCustomers(ctx context.Context, rows []Customer) error {
	return stageRows(ctx, e, KindCustomer, rows)
}

// StageProducts loads product dimension candidates into staging.
func (e *Engine) StageProducts(ctx context.Context, rows []Product) error {
	return stageRows(ctx, e, KindProduct, rows)
}

// StageDates loads date dimension candidates into staging.
func (e *Engine) StageDates(ctx context.Context, rows []DateDim) error {
	return stageRows(ctx, e, KindDate, rows)
}

// StageOrders loads order fact candidates into staging.
func (e *Engine) StageOrders(ctx context.Context, rows []Order) error {
	return stageRows(ctx, e, KindOrder, rows)
}

// StageItems loads order item candidates into staging.
func (e *Engine) StageItems(ctx context.Context, rows []OrderItem) error {
	return stageRows(ctx, e, KindItem, rows)
}

// StagePayments loads payment candidates into staging.
func (e *Engine) StagePayments(ctx context.Context, rows []Payment) error {
	return stageRows(ctx, e, KindPayment, rows)
}

// StageEvents loads funnel event candidates into staging.
func (e *Engine) StageEvents(ctx context.Context, rows []FunnelEvent) error {
	return stageRows(ctx, e, KindEvent, rows)
}

// StageShipments loads shipment candidates into staging.
func (e *Engine) StageShipments(ctx context.Context, rows []Shipment) error {
	return stageRows(ctx, e, KindShipment, rows)
}

// StageReturns loads return candidates into staging.
func (e *Engine) StageReturns(ctx context.Context, rows []Return) error {
	return stageRows(ctx, e, KindReturn, rows)
}

// DedupeLatest keeps one row per key, preferring the most recently
// updated version, so a single run never attempts two conflicting
// writes to the same row. Input order is preserved for surviving rows.
func DedupeLatest[R any](rows []R, key func(R) int64, updatedAt func(R) time.Time) []R {
	if len(rows) < 2 {
		return rows
	}
	byKey := make(map[int64]int, len(rows))
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if i, ok := byKey[k]; ok {
			if !updatedAt(r).Before(updatedAt(out[i])) {
				out[i] = r
			}
			continue
		}
		byKey[k] = len(out)
		out = append(out, r)
	}
	return out
}
