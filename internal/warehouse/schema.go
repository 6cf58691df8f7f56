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

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaName is the Postgres schema holding all warehouse objects.
const SchemaName = "globalcart"

// Schema SQL for the GlobalCart star schema: dimensions, facts, per-run
// staging mirrors and the watermark table. Staging tables are UNLOGGED;
// they hold candidate rows only for the duration of one refresh run.
const createSchemaSQL = `
CREATE SCHEMA IF NOT EXISTS globalcart;

-- Dimensions
CREATE TABLE IF NOT EXISTS globalcart.dim_geo (
    geo_id      BIGINT PRIMARY KEY,
    country     VARCHAR(80) NOT NULL,
    region      VARCHAR(40) NOT NULL,
    city        VARCHAR(120) NOT NULL,
    currency    CHAR(3) NOT NULL,
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS globalcart.dim_fc (
    fc_id       BIGINT PRIMARY KEY,
    fc_name     VARCHAR(40) NOT NULL,
    geo_id      BIGINT NOT NULL REFERENCES globalcart.dim_geo(geo_id),
    timezone    VARCHAR(60) NOT NULL,
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS globalcart.dim_customer (
    customer_id          BIGINT PRIMARY KEY,
    customer_created_ts  TIMESTAMP NOT NULL,
    geo_id               BIGINT NOT NULL REFERENCES globalcart.dim_geo(geo_id),
    acquisition_channel  VARCHAR(20) NOT NULL,
    created_at           TIMESTAMP NOT NULL,
    updated_at           TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS globalcart.dim_product (
    product_id    BIGINT PRIMARY KEY,
    sku           VARCHAR(20) NOT NULL UNIQUE,
    product_name  VARCHAR(200) NOT NULL,
    category_l1   VARCHAR(30) NOT NULL,
    category_l2   VARCHAR(30) NOT NULL,
    brand         VARCHAR(60) NOT NULL,
    unit_cost     NUMERIC(12,2) NOT NULL,
    list_price    NUMERIC(12,2) NOT NULL,
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS globalcart.dim_date (
    date_id       BIGINT PRIMARY KEY,
    date_value    DATE NOT NULL,
    year          INTEGER NOT NULL,
    quarter       INTEGER NOT NULL,
    month         INTEGER NOT NULL,
    month_name    VARCHAR(12) NOT NULL,
    week_of_year  INTEGER NOT NULL,
    day_of_month  INTEGER NOT NULL,
    day_of_week   INTEGER NOT NULL,
    day_name      VARCHAR(12) NOT NULL,
    is_weekend    BOOLEAN NOT NULL
);

-- Facts
CREATE TABLE IF NOT EXISTS globalcart.fact_orders (
    order_id         BIGINT PRIMARY KEY,
    customer_id      BIGINT NOT NULL REFERENCES globalcart.dim_customer(customer_id),
    geo_id           BIGINT NOT NULL REFERENCES globalcart.dim_geo(geo_id),
    order_ts         TIMESTAMP NOT NULL,
    order_status     VARCHAR(12) NOT NULL,
    channel          VARCHAR(8) NOT NULL,
    currency         CHAR(3) NOT NULL,
    gross_amount     NUMERIC(14,2) NOT NULL,
    discount_amount  NUMERIC(14,2) NOT NULL,
    tax_amount       NUMERIC(14,2) NOT NULL,
    net_amount       NUMERIC(14,2) NOT NULL,
    created_at       TIMESTAMP NOT NULL,
    updated_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS globalcart.fact_order_items (
    order_item_id     BIGINT PRIMARY KEY,
    order_id          BIGINT NOT NULL REFERENCES globalcart.fact_orders(order_id),
    product_id        BIGINT NOT NULL REFERENCES globalcart.dim_product(product_id),
    qty               INTEGER NOT NULL,
    unit_list_price   NUMERIC(12,2) NOT NULL,
    unit_sell_price   NUMERIC(12,2) NOT NULL,
    unit_cost         NUMERIC(12,2) NOT NULL,
    line_discount     NUMERIC(12,2) NOT NULL,
    line_tax          NUMERIC(12,2) NOT NULL,
    line_net_revenue  NUMERIC(12,2) NOT NULL,
    created_at        TIMESTAMP NOT NULL,
    updated_at        TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS globalcart.fact_payments (
    payment_id          BIGINT PRIMARY KEY,
    order_id            BIGINT NOT NULL UNIQUE REFERENCES globalcart.fact_orders(order_id),
    payment_method      VARCHAR(10) NOT NULL,
    payment_status      VARCHAR(10) NOT NULL,
    payment_provider    VARCHAR(20) NOT NULL,
    amount              NUMERIC(14,2) NOT NULL,
    gateway_fee_amount  NUMERIC(12,2) NOT NULL,
    authorized_ts       TIMESTAMP NOT NULL,
    captured_ts         TIMESTAMP,
    failure_reason      VARCHAR(30),
    refund_amount       NUMERIC(14,2) NOT NULL,
    chargeback_flag     BOOLEAN NOT NULL,
    created_at          TIMESTAMP NOT NULL,
    updated_at          TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS globalcart.fact_funnel_events (
    event_id        BIGINT PRIMARY KEY,
    event_ts        TIMESTAMP NOT NULL,
    session_id      VARCHAR(60) NOT NULL,
    customer_id     BIGINT,
    product_id      BIGINT,
    order_id        BIGINT,
    stage           VARCHAR(20) NOT NULL,
    channel         VARCHAR(8) NOT NULL,
    device          VARCHAR(10) NOT NULL,
    failure_reason  VARCHAR(30)
);

CREATE TABLE IF NOT EXISTS globalcart.fact_shipments (
    shipment_id           BIGINT PRIMARY KEY,
    order_id              BIGINT NOT NULL UNIQUE REFERENCES globalcart.fact_orders(order_id),
    fc_id                 BIGINT NOT NULL REFERENCES globalcart.dim_fc(fc_id),
    carrier               VARCHAR(20) NOT NULL,
    shipped_ts            TIMESTAMP NOT NULL,
    promised_delivery_dt  DATE NOT NULL,
    delivered_dt          DATE NOT NULL,
    shipping_cost         NUMERIC(10,2) NOT NULL,
    sla_breached_flag     BOOLEAN NOT NULL,
    created_at            TIMESTAMP NOT NULL,
    updated_at            TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS globalcart.fact_returns (
    return_id       BIGINT PRIMARY KEY,
    order_id        BIGINT NOT NULL REFERENCES globalcart.fact_orders(order_id),
    order_item_id   BIGINT NOT NULL UNIQUE REFERENCES globalcart.fact_order_items(order_item_id),
    product_id      BIGINT NOT NULL REFERENCES globalcart.dim_product(product_id),
    return_ts       TIMESTAMP NOT NULL,
    return_reason   VARCHAR(20) NOT NULL,
    refund_amount   NUMERIC(12,2) NOT NULL,
    return_status   VARCHAR(12) NOT NULL,
    restocked_flag  BOOLEAN NOT NULL,
    created_at      TIMESTAMP NOT NULL,
    updated_at      TIMESTAMP NOT NULL
);

-- Watermarks: one row per refresh source, advanced only after a run's
-- merge phase fully commits.
CREATE TABLE IF NOT EXISTS globalcart.etl_watermarks (
    source_name        TEXT PRIMARY KEY,
    last_processed_ts  TIMESTAMP NOT NULL
);

-- Staging mirrors (transient, truncated at the start of every run)
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_dim_customer
    (LIKE globalcart.dim_customer INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_dim_product
    (LIKE globalcart.dim_product INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_dim_geo
    (LIKE globalcart.dim_geo INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_dim_fc
    (LIKE globalcart.dim_fc INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_dim_date
    (LIKE globalcart.dim_date INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_fact_orders
    (LIKE globalcart.fact_orders INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_fact_order_items
    (LIKE globalcart.fact_order_items INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_fact_payments
    (LIKE globalcart.fact_payments INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_fact_funnel_events
    (LIKE globalcart.fact_funnel_events INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_fact_shipments
    (LIKE globalcart.fact_shipments INCLUDING DEFAULTS);
CREATE UNLOGGED TABLE IF NOT EXISTS globalcart.stg_fact_returns
    (LIKE globalcart.fact_returns INCLUDING DEFAULTS);

-- Indexes for refresh candidate selection
CREATE INDEX IF NOT EXISTS idx_fact_orders_status ON globalcart.fact_orders(order_status);
CREATE INDEX IF NOT EXISTS idx_fact_orders_ts ON globalcart.fact_orders(order_ts);
CREATE INDEX IF NOT EXISTS idx_fact_order_items_order ON globalcart.fact_order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_fact_shipments_breach ON globalcart.fact_shipments(sla_breached_flag);
CREATE INDEX IF NOT EXISTS idx_fact_funnel_events_session ON globalcart.fact_funnel_events(session_id, event_ts);
`

// Drop schema SQL
const dropSchemaSQL = `
DROP SCHEMA IF EXISTS globalcart CASCADE;
`

// CreateSchema creates the warehouse schema and all tables.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createSchemaSQL)
	return err
}

// DropSchema drops the warehouse schema.
func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, dropSchemaSQL)
	return err
}

// TableCounts returns the row count of every permanent table.
func TableCounts(ctx context.Context, db DBTX) (map[Kind]int64, error) {
	counts := make(map[Kind]int64, len(tableSpecs))
	for kind, spec := range tableSpecs {
		var n int64
		if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM "+spec.qualified()).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", spec.table, err)
		}
		counts[kind] = n
	}
	return counts, nil
}
