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
	"time"

	"github.com/globalcart/globalcart-warehouse/internal/datagen"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

// Fixed value pools for order facts.
var (
	PaymentMethods = []string{"CARD", "UPI", "WALLET", "COD"}
	Providers      = []string{"VISA", "MASTERCARD", "PAYPAL", "STRIPE", "RAZORPAY"}
	Carriers       = []string{"DHL", "FEDEX", "UPS", "LOCAL_XPRESS"}
	ReturnReasons  = []string{"DAMAGED", "NOT_AS_DESCRIBED", "SIZE_ISSUE", "LATE_DELIVERY", "QUALITY_ISSUE", "CHANGED_MIND"}

	paymentFailureReasons = []string{"INSUFFICIENT_FUNDS", "NETWORK_ERROR", "FRAUD_FLAG", "BANK_DECLINE"}
	paymentFailureKinds   = []warehouse.PaymentStatus{warehouse.PaymentFailed, warehouse.PaymentDeclined}
	paymentFailureWeights = []int{55, 45}

	orderStatusPool = []warehouse.OrderStatus{
		warehouse.OrderCreated, warehouse.OrderCancelled,
		warehouse.OrderDelivered, warehouse.OrderCompleted,
	}
	bulkStatusWeights  = []int{5, 8, 52, 35}
	deltaStatusWeights = []int{10, 8, 50, 32}

	// Delta runs drop the 3-day tail so fresh shipments skew on time.
	bulkDeliveryDelays  = []int{0, 0, 0, 1, 1, 2, 3}
	deltaDeliveryDelays = []int{0, 0, 0, 1, 1, 2}
)

const (
	taxRate           = 0.07
	discountCap       = 0.55
	codRTOProb        = 0.03
	returnBaseProb    = 0.028
	returnBreachBoost = 0.035
	chargebackProb    = 0.004
	restockProb       = 0.65
)

// CustomerRef is the slice of dim_customer the order generator needs.
type CustomerRef struct {
	CustomerID int64
	GeoID      int64
}

// ProductRef is the slice of dim_product the order generator needs.
type ProductRef struct {
	ProductID  int64
	ListPrice  float64
	UnitCost   float64
	CategoryL1 string
}

// Refs holds the dimension references every fact batch is derived from.
// Bulk seeding builds them from freshly generated dimensions; refresh
// runs read them back from the warehouse.
type Refs struct {
	Customers     []CustomerRef
	Products      []ProductRef
	FCIDs         []int64
	CurrencyByGeo map[int64]string
}

// RefsFromDims projects generated dimensions down to order references.
func RefsFromDims(d *Dims) *Refs {
	r := &Refs{
		Customers:     make([]CustomerRef, 0, len(d.Customers)),
		Products:      make([]ProductRef, 0, len(d.Products)),
		FCIDs:         make([]int64, 0, len(d.FCs)),
		CurrencyByGeo: make(map[int64]string, len(d.Geos)),
	}
	for _, c := range d.Customers {
		r.Customers = append(r.Customers, CustomerRef{CustomerID: c.CustomerID, GeoID: c.GeoID})
	}
	for _, p := range d.Products {
		r.Products = append(r.Products, ProductRef{
			ProductID: p.ProductID, ListPrice: p.ListPrice,
			UnitCost: p.UnitCost, CategoryL1: p.CategoryL1,
		})
	}
	for _, fc := range d.FCs {
		r.FCIDs = append(r.FCIDs, fc.FCID)
	}
	for _, g := range d.Geos {
		r.CurrencyByGeo[g.GeoID] = g.Currency
	}
	return r
}

func (r *Refs) validate() error {
	switch {
	case len(r.Customers) == 0:
		return warehouse.MissingReference("customer")
	case len(r.Products) == 0:
		return warehouse.MissingReference("product")
	case len(r.FCIDs) == 0:
		return warehouse.MissingReference("fulfillment center")
	case len(r.CurrencyByGeo) == 0:
		return warehouse.MissingReference("geo")
	}
	return nil
}

// Facts bundles one generated batch of fact rows.
type Facts struct {
	Orders    []warehouse.Order
	Items     []warehouse.OrderItem
	Payments  []warehouse.Payment
	Shipments []warehouse.Shipment
	Returns   []warehouse.Return
	Events    []warehouse.FunnelEvent
}

// seasonalBoost scales order aggregates for the holiday peak and the
// smaller mid-year sale window.
func seasonalBoost(month time.Month) float64 {
	switch month {
	case time.November, time.December:
		return 1.25
	case time.June, time.July:
		return 1.08
	}
	return 1.0
}

// lineDiscount draws the bulk per-line discount fraction. Holiday months
// and high-promotion categories push the discount up, capped hard.
func lineDiscount(f *datagen.Faker, month time.Month, categoryL1 string) float64 {
	d := f.Float64(0.02, 0.18)
	if month == time.November || month == time.December {
		d += f.Float64(0.05, 0.18)
	}
	if discountBoostCategories[categoryL1] {
		d += f.Float64(0.02, 0.08)
	}
	if d > discountCap {
		d = discountCap
	}
	return d
}

// GenerateFacts produces the full bulk fact load for freshly generated
// dimensions: orders with line items and payments, shipments for orders
// that reached a delivered state, returns with their payment refunds,
// and the complete funnel event stream.
func GenerateFacts(f *datagen.Faker, dims *Dims, scale ScaleConfig, now time.Time) (*Facts, error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	refs := RefsFromDims(dims)
	if err := refs.validate(); err != nil {
		return nil, err
	}

	now = now.UTC().Truncate(time.Second)
	windowStart := now.AddDate(0, 0, -customerLookbackDays)

	facts := &Facts{}
	em := newFunnelEmitter(f, 1)
	nextItemID := int64(1)
	nextPaymentID := int64(1)
	nextShipmentID := int64(1)

	for orderID := int64(1); orderID <= int64(scale.Orders); orderID++ {
		cust := datagen.Choose(f, refs.Customers)
		currency, ok := refs.CurrencyByGeo[cust.GeoID]
		if !ok {
			currency = "USD"
		}

		orderTS := f.TimeIn(windowStart, now)
		boost := seasonalBoost(orderTS.Month())

		status := datagen.ChooseWeighted(f, orderStatusPool, bulkStatusWeights)
		channel := datagen.Choose(f, Channels)
		device := deviceFor(f, channel)
		sid := sessionID(f, "", orderID)

		numItems := f.Int(1, scale.MaxItemsPerOrder)
		var gross, discount, tax, net float64
		lineProducts := make([]int64, 0, numItems)

		for i := 0; i < numItems; i++ {
			p := datagen.Choose(f, refs.Products)
			lineProducts = append(lineProducts, p.ProductID)
			qty := f.Int(1, 3)

			d := lineDiscount(f, orderTS.Month(), p.CategoryL1)
			unitSell := datagen.Round2(p.ListPrice * (1.0 - d))
			lineGross := datagen.Round2(p.ListPrice * float64(qty))
			lineDisc := datagen.Round2((p.ListPrice - unitSell) * float64(qty))
			lineTax := datagen.Round2(taxRate * unitSell * float64(qty))
			lineNet := datagen.Round2(unitSell*float64(qty) + lineTax)

			gross += lineGross
			discount += lineDisc
			tax += lineTax
			net += lineNet

			facts.Items = append(facts.Items, warehouse.OrderItem{
				OrderItemID:    nextItemID,
				OrderID:        orderID,
				ProductID:      p.ProductID,
				Qty:            qty,
				UnitListPrice:  datagen.Round2(p.ListPrice),
				UnitSellPrice:  unitSell,
				UnitCost:       datagen.Round2(p.UnitCost),
				LineDiscount:   lineDisc,
				LineTax:        lineTax,
				LineNetRevenue: lineNet,
				CreatedAt:      orderTS,
				UpdatedAt:      orderTS,
			})
			nextItemID++
		}

		gross = datagen.Round2(gross * boost)
		discount = datagen.Round2(discount * boost)
		tax = datagen.Round2(tax * boost)
		net = datagen.Round2(net * boost)

		method := datagen.Choose(f, PaymentMethods)
		provider := datagen.Choose(f, Providers)

		payStatus := warehouse.PaymentCaptured
		var failureReason *string
		if status == warehouse.OrderCancelled {
			payStatus = datagen.ChooseWeighted(f, paymentFailureKinds, paymentFailureWeights)
			r := datagen.Choose(f, paymentFailureReasons)
			failureReason = &r
		} else if method == "COD" && f.Chance(codRTOProb) {
			payStatus = warehouse.PaymentDeclined
			r := "COD_RTO"
			failureReason = &r
			status = warehouse.OrderCancelled
		}
		failed := payStatus == warehouse.PaymentFailed || payStatus == warehouse.PaymentDeclined

		extraViews := make([]int64, 0, 2)
		for i := f.Int(0, 2); i > 0; i-- {
			extraViews = append(extraViews, datagen.Choose(f, refs.Products).ProductID)
		}
		em.OrderSession(orderSession{
			SessionID:     sid,
			CustomerID:    cust.CustomerID,
			OrderID:       orderID,
			OrderTS:       orderTS,
			ProductIDs:    lineProducts,
			ExtraViews:    extraViews,
			Channel:       channel,
			Device:        device,
			Failed:        failed,
			FailureReason: failureReason,
		})

		var gatewayFee float64
		if method != "COD" && !failed {
			rate := f.Float64(0.015, 0.025)
			if method == "UPI" {
				rate = f.Float64(0.010, 0.016)
			}
			gatewayFee = datagen.Round2(net*rate + f.Float64(0, 6))
		}

		facts.Orders = append(facts.Orders, warehouse.Order{
			OrderID:        orderID,
			CustomerID:     cust.CustomerID,
			GeoID:          cust.GeoID,
			OrderTS:        orderTS,
			Status:         status,
			Channel:        channel,
			Currency:       currency,
			GrossAmount:    gross,
			DiscountAmount: discount,
			TaxAmount:      tax,
			NetAmount:      net,
			CreatedAt:      orderTS,
			UpdatedAt:      orderTS.Add(f.Duration(0, 120*time.Minute)),
		})

		authorizedTS := orderTS.Add(f.Duration(0, 10*time.Minute))
		var capturedTS *time.Time
		if !failed {
			ts := authorizedTS.Add(f.Duration(5*time.Minute, 30*time.Minute))
			capturedTS = &ts
		}
		facts.Payments = append(facts.Payments, warehouse.Payment{
			PaymentID:     nextPaymentID,
			OrderID:       orderID,
			Method:        method,
			Status:        payStatus,
			Provider:      provider,
			Amount:        net,
			GatewayFee:    gatewayFee,
			AuthorizedTS:  authorizedTS,
			CapturedTS:    capturedTS,
			FailureReason: failureReason,
			CreatedAt:     orderTS,
			UpdatedAt:     orderTS,
		})
		nextPaymentID++

		if status == warehouse.OrderDelivered || status == warehouse.OrderCompleted {
			facts.Shipments = append(facts.Shipments,
				newShipment(f, nextShipmentID, orderID, orderTS, orderTS, refs.FCIDs, bulkDeliveryDelays))
			nextShipmentID++
		}
	}

	generateReturns(f, facts, refs)

	customerIDs := make([]int64, 0, len(refs.Customers))
	for _, c := range refs.Customers {
		customerIDs = append(customerIDs, c.CustomerID)
	}
	productIDs := make([]int64, 0, len(refs.Products))
	for _, p := range refs.Products {
		productIDs = append(productIDs, p.ProductID)
	}
	em.ExtraSessions(customerIDs, productIDs, scale.Orders, windowStart, now)

	facts.Events = em.events
	return facts, nil
}

// newShipment builds a shipment for an order that reached a delivered
// state. The breach flag is a pure function of the two dates.
func newShipment(f *datagen.Faker, shipmentID, orderID int64, orderTS, updatedAt time.Time, fcIDs []int64, delays []int) warehouse.Shipment {
	promisedDays := f.Int(2, 6)
	delay := datagen.Choose(f, delays)
	promised := dateOnly(orderTS.AddDate(0, 0, promisedDays))
	delivered := dateOnly(orderTS.AddDate(0, 0, promisedDays+delay))

	return warehouse.Shipment{
		ShipmentID:    shipmentID,
		OrderID:       orderID,
		FCID:          datagen.Choose(f, fcIDs),
		Carrier:       datagen.Choose(f, Carriers),
		ShippedTS:     orderTS.Add(f.Duration(4*time.Hour, 48*time.Hour)),
		PromisedDate:  promised,
		DeliveredDate: delivered,
		ShippingCost:  datagen.Round2(f.LogNormal(2.1, 0.35)),
		SLABreached:   delivered.After(promised),
		CreatedAt:     orderTS,
		UpdatedAt:     updatedAt,
	}
}

// generateReturns rolls a return for each shipped order, picks one of
// its line items and flips the owning captured payment to REFUNDED with
// the refund totals aggregated per order.
func generateReturns(f *datagen.Faker, facts *Facts, refs *Refs) {
	categoryByProduct := make(map[int64]string, len(refs.Products))
	for _, p := range refs.Products {
		categoryByProduct[p.ProductID] = p.CategoryL1
	}

	breachByOrder := make(map[int64]bool, len(facts.Shipments))
	for _, s := range facts.Shipments {
		breachByOrder[s.OrderID] = s.SLABreached
	}

	itemsByOrder := make(map[int64][]warehouse.OrderItem)
	for _, it := range facts.Items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}

	orderTSByID := make(map[int64]time.Time, len(facts.Orders))
	for _, o := range facts.Orders {
		orderTSByID[o.OrderID] = o.OrderTS
	}

	nextReturnID := int64(1)
	refundsByOrder := make(map[int64]float64)

	// Iterate shipments so only shipped orders are return-eligible and
	// the iteration order stays deterministic.
	for _, s := range facts.Shipments {
		p := returnBaseProb
		if s.SLABreached {
			p += returnBreachBoost
		}
		if !f.Chance(p) {
			continue
		}
		items := itemsByOrder[s.OrderID]
		if len(items) == 0 {
			continue
		}
		it := datagen.Choose(f, items)
		orderTS := orderTSByID[s.OrderID]

		reason := datagen.Choose(f, ReturnReasons)
		if categoryByProduct[it.ProductID] == "APPAREL" && f.Chance(0.45) {
			reason = "SIZE_ISSUE"
		}
		if breachByOrder[s.OrderID] && f.Chance(0.40) {
			reason = "LATE_DELIVERY"
		}

		refund := datagen.Round2(it.LineNetRevenue * f.Float64(0.85, 1.0))
		facts.Returns = append(facts.Returns, warehouse.Return{
			ReturnID:     nextReturnID,
			OrderID:      s.OrderID,
			OrderItemID:  it.OrderItemID,
			ProductID:    it.ProductID,
			ReturnTS:     orderTS.AddDate(0, 0, f.Int(3, 25)),
			Reason:       reason,
			RefundAmount: refund,
			Status:       "REFUNDED",
			Restocked:    f.Chance(restockProb),
			CreatedAt:    orderTS,
			UpdatedAt:    orderTS,
		})
		nextReturnID++
		refundsByOrder[s.OrderID] += refund
	}

	for i := range facts.Payments {
		p := &facts.Payments[i]
		refund, ok := refundsByOrder[p.OrderID]
		if !ok || p.Status != warehouse.PaymentCaptured {
			continue
		}
		p.Status = warehouse.PaymentRefunded
		p.RefundAmount = datagen.Round2(refund)
		if f.Chance(chargebackProb) {
			p.ChargebackFlag = true
		}
	}
}

// dateOnly truncates a timestamp to midnight UTC for DATE columns.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
