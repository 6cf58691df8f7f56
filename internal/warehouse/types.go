//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse owns the star schema: typed rows, DDL, staging loads,
// idempotent merges and the refresh watermark.
package warehouse

import "time"

// OrderStatus enumerates fact_orders.order_status. Transitions are
// forward-only: refresh deltas may advance DELIVERED to COMPLETED and
// COMPLETED to RETURNED.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderReturned  OrderStatus = "RETURNED"
)

// PaymentStatus enumerates fact_payments.payment_status.
type PaymentStatus string

const (
	PaymentCaptured PaymentStatus = "CAPTURED"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentDeclined PaymentStatus = "DECLINED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// FunnelStage enumerates the canonical purchase funnel stages in causal
// order. PAYMENT_FAILED and ORDER_PLACED are mutually exclusive terminal
// stages for a session tied to an order.
type FunnelStage string

const (
	StageViewProduct      FunnelStage = "VIEW_PRODUCT"
	StageAddToCart        FunnelStage = "ADD_TO_CART"
	StageViewCart         FunnelStage = "VIEW_CART"
	StageCheckoutStarted  FunnelStage = "CHECKOUT_STARTED"
	StagePaymentAttempted FunnelStage = "PAYMENT_ATTEMPTED"
	StagePaymentFailed    FunnelStage = "PAYMENT_FAILED"
	StageOrderPlaced      FunnelStage = "ORDER_PLACED"
)

// StageRank returns the position of a stage in the canonical funnel
// order. PAYMENT_FAILED and ORDER_PLACED share the terminal rank.
func StageRank(s FunnelStage) int {
	switch s {
	case StageViewProduct:
		return 0
	case StageAddToCart:
		return 1
	case StageViewCart:
		return 2
	case StageCheckoutStarted:
		return 3
	case StagePaymentAttempted:
		return 4
	case StagePaymentFailed, StageOrderPlaced:
		return 5
	}
	return -1
}

// Geo is a dim_geo row. Immutable once created.
type Geo struct {
	GeoID     int64
	Country   string
	Region    string
	City      string
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FulfillmentCenter is a dim_fc row. Immutable once created.
type FulfillmentCenter struct {
	FCID      int64
	Name      string
	GeoID     int64
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Customer is a dim_customer row.
type Customer struct {
	CustomerID         int64
	CreatedTS          time.Time
	GeoID              int64
	AcquisitionChannel string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Product is a dim_product row. Identity (sku) is stable; price fields
// drift over time through refresh deltas.
type Product struct {
	ProductID  int64
	SKU        string
	Name       string
	CategoryL1 string
	CategoryL2 string
	Brand      string
	UnitCost   float64
	ListPrice  float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DateDim is a dim_date row.
type DateDim struct {
	DateID     int64
	DateValue  time.Time
	Year       int
	Quarter    int
	Month      int
	MonthName  string
	WeekOfYear int
	DayOfMonth int
	DayOfWeek  int
	DayName    string
	IsWeekend  bool
}

// Order is a fact_orders row.
type Order struct {
	OrderID        int64
	CustomerID     int64
	GeoID          int64
	OrderTS        time.Time
	Status         OrderStatus
	Channel        string
	Currency       string
	GrossAmount    float64
	DiscountAmount float64
	TaxAmount      float64
	NetAmount      float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem is a fact_order_items row. Immutable after creation; deltas
// never edit line items in place.
type OrderItem struct {
	OrderItemID    int64
	OrderID        int64
	ProductID      int64
	Qty            int
	UnitListPrice  float64
	UnitSellPrice  float64
	UnitCost       float64
	LineDiscount   float64
	LineTax        float64
	LineNetRevenue float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Payment is a fact_payments row, 1:1 with its order.
type Payment struct {
	PaymentID      int64
	OrderID        int64
	Method         string
	Status         PaymentStatus
	Provider       string
	Amount         float64
	GatewayFee     float64
	AuthorizedTS   time.Time
	CapturedTS     *time.Time
	FailureReason  *string
	RefundAmount   float64
	ChargebackFlag bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Shipment is a fact_shipments row, present only for orders in a
// terminal successful state. SLABreached is a pure function of
// (PromisedDate, DeliveredDate) and never transitions true to false.
type Shipment struct {
	ShipmentID   int64
	OrderID      int64
	FCID         int64
	Carrier      string
	ShippedTS    time.Time
	PromisedDate time.Time
	DeliveredDate time.Time
	ShippingCost float64
	SLABreached  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Return is a fact_returns row. At most one return exists per order
// item; candidate selection excludes items already returned.
type Return struct {
	ReturnID     int64
	OrderID      int64
	OrderItemID  int64
	ProductID    int64
	ReturnTS     time.Time
	Reason       string
	RefundAmount float64
	Status       string
	Restocked    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FunnelEvent is a fact_funnel_events row. Append-only; ordered by
// timestamp within a session. Customer, product and order references are
// optional (anonymous browsing has no customer).
type FunnelEvent struct {
	EventID       int64
	EventTS       time.Time
	SessionID     string
	CustomerID    *int64
	ProductID     *int64
	OrderID       *int64
	Stage         FunnelStage
	Channel       string
	Device        string
	FailureReason *string
}

func (r Geo) values() []any {
	return []any{r.GeoID, r.Country, r.Region, r.City, r.Currency, r.CreatedAt, r.UpdatedAt}
}

func (r FulfillmentCenter) values() []any {
	return []any{r.FCID, r.Name, r.GeoID, r.Timezone, r.CreatedAt, r.UpdatedAt}
}

func (r Customer) values() []any {
	return []any{r.CustomerID, r.CreatedTS, r.GeoID, r.AcquisitionChannel, r.CreatedAt, r.UpdatedAt}
}

func (r Product) values() []any {
	return []any{r.ProductID, r.SKU, r.Name, r.CategoryL1, r.CategoryL2, r.Brand,
		r.UnitCost, r.ListPrice, r.CreatedAt, r.UpdatedAt}
}

func (r DateDim) values() []any {
	return []any{r.DateID, r.DateValue, r.Year, r.Quarter, r.Month, r.MonthName,
		r.WeekOfYear, r.DayOfMonth, r.DayOfWeek, r.DayName, r.IsWeekend}
}

func (r Order) values() []any {
	return []any{r.OrderID, r.CustomerID, r.GeoID, r.OrderTS, string(r.Status), r.Channel,
		r.Currency, r.GrossAmount, r.DiscountAmount, r.TaxAmount, r.NetAmount,
		r.CreatedAt, r.UpdatedAt}
}

func (r OrderItem) values() []any {
	return []any{r.OrderItemID, r.OrderID, r.ProductID, r.Qty, r.UnitListPrice,
		r.UnitSellPrice, r.UnitCost, r.LineDiscount, r.LineTax, r.LineNetRevenue,
		r.CreatedAt, r.UpdatedAt}
}

func (r Payment) values() []any {
	return []any{r.PaymentID, r.OrderID, r.Method, string(r.Status), r.Provider, r.Amount,
		r.GatewayFee, r.AuthorizedTS, r.CapturedTS, r.FailureReason, r.RefundAmount,
		r.ChargebackFlag, r.CreatedAt, r.UpdatedAt}
}

func (r Shipment) values() []any {
	return []any{r.ShipmentID, r.OrderID, r.FCID, r.Carrier, r.ShippedTS, r.PromisedDate,
		r.DeliveredDate, r.ShippingCost, r.SLABreached, r.CreatedAt, r.UpdatedAt}
}

func (r Return) values() []any {
	return []any{r.ReturnID, r.OrderID, r.OrderItemID, r.ProductID, r.ReturnTS, r.Reason,
		r.RefundAmount, r.Status, r.Restocked, r.CreatedAt, r.UpdatedAt}
}

func (r FunnelEvent) values() []any {
	return []any{r.EventID, r.EventTS, r.SessionID, r.CustomerID, r.ProductID, r.OrderID,
		string(r.Stage), r.Channel, r.Device, r.FailureReason}
}
