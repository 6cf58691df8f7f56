//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package refresh

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/globalcart/globalcart-warehouse/internal/generate"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

// Candidate reads are capped and keyed by primary key so a run samples
// from a stable, deterministic window instead of ORDER BY RANDOM().
const (
	orderCandidateCap    = 500
	shipmentCandidateCap = 500
	productCandidateCap  = 500
	returnCandidateCap   = 2000
)

// readRefs loads the dimension references the delta generators need.
func readRefs(ctx context.Context, db warehouse.DBTX) (*generate.Refs, error) {
	refs := &generate.Refs{CurrencyByGeo: make(map[int64]string)}

	rows, err := db.Query(ctx,
		`SELECT customer_id, geo_id FROM globalcart.dim_customer ORDER BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}
	for rows.Next() {
		var c generate.CustomerRef
		if err := rows.Scan(&c.CustomerID, &c.GeoID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("read customers: %w", err)
		}
		refs.Customers = append(refs.Customers, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}

	rows, err = db.Query(ctx,
		`SELECT product_id, list_price, unit_cost, category_l1
		 FROM globalcart.dim_product ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	for rows.Next() {
		var p generate.ProductRef
		if err := rows.Scan(&p.ProductID, &p.ListPrice, &p.UnitCost, &p.CategoryL1); err != nil {
			rows.Close()
			return nil, fmt.Errorf("read products: %w", err)
		}
		refs.Products = append(refs.Products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}

	rows, err = db.Query(ctx, `SELECT fc_id FROM globalcart.dim_fc ORDER BY fc_id`)
	if err != nil {
		return nil, fmt.Errorf("read fulfillment centers: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("read fulfillment centers: %w", err)
		}
		refs.FCIDs = append(refs.FCIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read fulfillment centers: %w", err)
	}

	rows, err = db.Query(ctx, `SELECT geo_id, currency FROM globalcart.dim_geo ORDER BY geo_id`)
	if err != nil {
		return nil, fmt.Errorf("read geos: %w", err)
	}
	for rows.Next() {
		var id int64
		var currency string
		if err := rows.Scan(&id, &currency); err != nil {
			rows.Close()
			return nil, fmt.Errorf("read geos: %w", err)
		}
		refs.CurrencyByGeo[id] = currency
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read geos: %w", err)
	}

	return refs, nil
}

// readNextIDs reads the next free identifier for every fact sequence.
func readNextIDs(ctx context.Context, db warehouse.DBTX) (generate.NextIDs, error) {
	var ids generate.NextIDs
	err := db.QueryRow(ctx, `SELECT
		COALESCE((SELECT MAX(order_id) FROM globalcart.fact_orders), 0) + 1,
		COALESCE((SELECT MAX(order_item_id) FROM globalcart.fact_order_items), 0) + 1,
		COALESCE((SELECT MAX(payment_id) FROM globalcart.fact_payments), 0) + 1,
		COALESCE((SELECT MAX(event_id) FROM globalcart.fact_funnel_events), 0) + 1,
		COALESCE((SELECT MAX(shipment_id) FROM globalcart.fact_shipments), 0) + 1,
		COALESCE((SELECT MAX(return_id) FROM globalcart.fact_returns), 0) + 1`,
	).Scan(&ids.Order, &ids.OrderItem, &ids.Payment, &ids.Event, &ids.Shipment, &ids.Return)
	if err != nil {
		return ids, fmt.Errorf("read id sequences: %w", err)
	}
	return ids, nil
}

const orderColumns = `order_id, customer_id, geo_id, order_ts, order_status, channel, currency,
	gross_amount, discount_amount, tax_amount, net_amount, created_at, updated_at`

func scanOrders(rows pgx.Rows) ([]warehouse.Order, error) {
	defer rows.Close()
	var out []warehouse.Order
	for rows.Next() {
		var o warehouse.Order
		err := rows.Scan(&o.OrderID, &o.CustomerID, &o.GeoID, &o.OrderTS, &o.Status,
			&o.Channel, &o.Currency, &o.GrossAmount, &o.DiscountAmount, &o.TaxAmount,
			&o.NetAmount, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// readDeliveredOrders returns a window of DELIVERED orders eligible to
// advance to COMPLETED.
func readDeliveredOrders(ctx context.Context, db warehouse.DBTX) ([]warehouse.Order, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM globalcart.fact_orders
		 WHERE order_status = 'DELIVERED'
		 ORDER BY order_id LIMIT %d`, orderColumns, orderCandidateCap))
	if err != nil {
		return nil, fmt.Errorf("read delivered orders: %w", err)
	}
	out, err := scanOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("read delivered orders: %w", err)
	}
	return out, nil
}

// readOrdersByID returns the given orders in id order.
func readOrdersByID(ctx context.Context, db warehouse.DBTX, ids []int64) ([]warehouse.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM globalcart.fact_orders
		 WHERE order_id = ANY($1)
		 ORDER BY order_id`, orderColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("read orders by id: %w", err)
	}
	out, err := scanOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("read orders by id: %w", err)
	}
	return out, nil
}

// readOnTimeShipments returns a window of shipments whose SLA has not
// been breached, eligible for a delayed-delivery update.
func readOnTimeShipments(ctx context.Context, db warehouse.DBTX) ([]warehouse.Shipment, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(
		`SELECT shipment_id, order_id, fc_id, carrier, shipped_ts, promised_delivery_dt,
		        delivered_dt, shipping_cost, sla_breached_flag, created_at, updated_at
		 FROM globalcart.fact_shipments
		 WHERE delivered_dt IS NOT NULL AND sla_breached_flag = FALSE
		 ORDER BY shipment_id LIMIT %d`, shipmentCandidateCap))
	if err != nil {
		return nil, fmt.Errorf("read on-time shipments: %w", err)
	}
	defer rows.Close()

	var out []warehouse.Shipment
	for rows.Next() {
		var s warehouse.Shipment
		err := rows.Scan(&s.ShipmentID, &s.OrderID, &s.FCID, &s.Carrier, &s.ShippedTS,
			&s.PromisedDate, &s.DeliveredDate, &s.ShippingCost, &s.SLABreached,
			&s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("read on-time shipments: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read on-time shipments: %w", err)
	}
	return out, nil
}

// readReturnCandidates returns order items of COMPLETED orders that do
// not yet have a return, joined with their owning payment. Only
// COMPLETED orders advance to RETURNED, so DELIVERED orders are not
// candidates until a refresh completes them.
func readReturnCandidates(ctx context.Context, db warehouse.DBTX) ([]generate.ReturnCandidate, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(
		`SELECT i.order_item_id, i.order_id, i.product_id, i.line_net_revenue, o.order_ts,
		        p.payment_id, p.payment_method, p.payment_status, p.payment_provider,
		        p.amount, p.gateway_fee_amount, p.authorized_ts, p.captured_ts,
		        p.failure_reason, p.refund_amount, p.chargeback_flag, p.created_at, p.updated_at
		 FROM globalcart.fact_order_items i
		 JOIN globalcart.fact_orders o ON o.order_id = i.order_id
		 JOIN globalcart.fact_payments p ON p.order_id = o.order_id
		 LEFT JOIN globalcart.fact_returns r ON r.order_item_id = i.order_item_id
		 WHERE o.order_status = 'COMPLETED'
		   AND r.return_id IS NULL
		 ORDER BY i.order_item_id LIMIT %d`, returnCandidateCap))
	if err != nil {
		return nil, fmt.Errorf("read return candidates: %w", err)
	}
	defer rows.Close()

	var out []generate.ReturnCandidate
	for rows.Next() {
		var c generate.ReturnCandidate
		err := rows.Scan(&c.OrderItemID, &c.OrderID, &c.ProductID, &c.LineNet, &c.OrderTS,
			&c.Payment.PaymentID, &c.Payment.Method, &c.Payment.Status, &c.Payment.Provider,
			&c.Payment.Amount, &c.Payment.GatewayFee, &c.Payment.AuthorizedTS,
			&c.Payment.CapturedTS, &c.Payment.FailureReason, &c.Payment.RefundAmount,
			&c.Payment.ChargebackFlag, &c.Payment.CreatedAt, &c.Payment.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("read return candidates: %w", err)
		}
		c.Payment.OrderID = c.OrderID
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read return candidates: %w", err)
	}
	return out, nil
}

// readProductCandidates returns a window of products eligible for price
// drift.
func readProductCandidates(ctx context.Context, db warehouse.DBTX) ([]warehouse.Product, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(
		`SELECT product_id, sku, product_name, category_l1, category_l2, brand,
		        unit_cost, list_price, created_at, updated_at
		 FROM globalcart.dim_product
		 ORDER BY product_id LIMIT %d`, productCandidateCap))
	if err != nil {
		return nil, fmt.Errorf("read product candidates: %w", err)
	}
	defer rows.Close()

	var out []warehouse.Product
	for rows.Next() {
		var p warehouse.Product
		err := rows.Scan(&p.ProductID, &p.SKU, &p.Name, &p.CategoryL1, &p.CategoryL2,
			&p.Brand, &p.UnitCost, &p.ListPrice, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("read product candidates: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read product candidates: %w", err)
	}
	return out, nil
}

// readMaxCustomerID returns the highest customer id, 0 when empty.
func readMaxCustomerID(ctx context.Context, db warehouse.DBTX) (int64, error) {
	var id int64
	err := db.QueryRow(ctx,
		`SELECT COALESCE(MAX(customer_id), 0) FROM globalcart.dim_customer`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read max customer id: %w", err)
	}
	return id, nil
}

// readGeoIDs returns every geo id.
func readGeoIDs(ctx context.Context, db warehouse.DBTX) ([]int64, error) {
	rows, err := db.Query(ctx, `SELECT geo_id FROM globalcart.dim_geo ORDER BY geo_id`)
	if err != nil {
		return nil, fmt.Errorf("read geo ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("read geo ids: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read geo ids: %w", err)
	}
	return out, nil
}
