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

// NextIDs carries the next free identifier per fact sequence. Refresh
// runs derive it from MAX(id) reads before generating a delta.
type NextIDs struct {
	Order     int64
	OrderItem int64
	Payment   int64
	Event     int64
	Shipment  int64
	Return    int64
}

// NewOrderFacts generates a batch of orders placed in (since, now],
// continuing every id sequence from ids. Compared to the bulk load the
// delta keeps the math simpler: a flat discount band, no seasonal boost
// and no same-batch returns.
func NewOrderFacts(f *datagen.Faker, refs *Refs, ids NextIDs, count, maxItemsPerOrder int, since, now time.Time) (*Facts, NextIDs, error) {
	if err := refs.validate(); err != nil {
		return nil, ids, err
	}
	now = now.UTC().Truncate(time.Second)
	since = since.UTC().Truncate(time.Second)

	facts := &Facts{}
	em := newFunnelEmitter(f, ids.Event)

	for n := 0; n < count; n++ {
		orderID := ids.Order
		ids.Order++

		cust := datagen.Choose(f, refs.Customers)
		currency, ok := refs.CurrencyByGeo[cust.GeoID]
		if !ok {
			currency = "USD"
		}

		orderTS := f.TimeIn(since, now)
		status := datagen.ChooseWeighted(f, orderStatusPool, deltaStatusWeights)
		channel := datagen.Choose(f, Channels)
		device := deviceFor(f, channel)
		sid := sessionID(f, "inc_", orderID)

		numItems := f.Int(1, maxItemsPerOrder)
		chosen := datagen.Sample(f, refs.Products, numItems)

		var gross, discount, tax, net float64
		lineProducts := make([]int64, 0, len(chosen))
		for _, p := range chosen {
			lineProducts = append(lineProducts, p.ProductID)
			qty := f.Int(1, 3)

			d := f.Float64(0.02, 0.35)
			if d > discountCap {
				d = discountCap
			}
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
				OrderItemID:    ids.OrderItem,
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
				UpdatedAt:      now,
			})
			ids.OrderItem++
		}

		method := datagen.Choose(f, PaymentMethods)
		provider := datagen.Choose(f, Providers)

		payStatus := warehouse.PaymentCaptured
		var failureReason *string
		if status == warehouse.OrderCancelled {
			payStatus = datagen.ChooseWeighted(f, paymentFailureKinds, paymentFailureWeights)
			r := datagen.Choose(f, paymentFailureReasons)
			failureReason = &r
		}
		failed := payStatus != warehouse.PaymentCaptured

		extraViews := make([]int64, 0, 1)
		if f.Chance(0.45) {
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
			GrossAmount:    datagen.Round2(gross),
			DiscountAmount: datagen.Round2(discount),
			TaxAmount:      datagen.Round2(tax),
			NetAmount:      datagen.Round2(net),
			CreatedAt:      orderTS,
			UpdatedAt:      now,
		})

		authorizedTS := orderTS.Add(f.Duration(0, 10*time.Minute))
		var capturedTS *time.Time
		if !failed {
			ts := authorizedTS.Add(f.Duration(5*time.Minute, 30*time.Minute))
			capturedTS = &ts
		}
		facts.Payments = append(facts.Payments, warehouse.Payment{
			PaymentID:     ids.Payment,
			OrderID:       orderID,
			Method:        method,
			Status:        payStatus,
			Provider:      provider,
			Amount:        datagen.Round2(net),
			GatewayFee:    gatewayFee,
			AuthorizedTS:  authorizedTS,
			CapturedTS:    capturedTS,
			FailureReason: failureReason,
			CreatedAt:     orderTS,
			UpdatedAt:     now,
		})
		ids.Payment++

		if status == warehouse.OrderDelivered || status == warehouse.OrderCompleted {
			facts.Shipments = append(facts.Shipments,
				newShipment(f, ids.Shipment, orderID, orderTS, now, refs.FCIDs, deltaDeliveryDelays))
			ids.Shipment++
		}
	}

	facts.Events = em.events
	ids.Event = em.nextID
	return facts, ids, nil
}

// CompleteOrders advances up to n DELIVERED candidates to COMPLETED.
func CompleteOrders(f *datagen.Faker, candidates []warehouse.Order, n int, now time.Time) []warehouse.Order {
	picked := datagen.Sample(f, candidates, n)
	out := make([]warehouse.Order, 0, len(picked))
	for _, o := range picked {
		o.Status = warehouse.OrderCompleted
		o.UpdatedAt = now
		out = append(out, o)
	}
	return out
}

// DelayShipments pushes the delivered date of up to n on-time shipment
// candidates past the promise. The breach flag only ever turns on.
func DelayShipments(f *datagen.Faker, candidates []warehouse.Shipment, n int, now time.Time) []warehouse.Shipment {
	picked := datagen.Sample(f, candidates, n)
	out := make([]warehouse.Shipment, 0, len(picked))
	for _, s := range picked {
		s.DeliveredDate = s.DeliveredDate.AddDate(0, 0, datagen.Choose(f, []int{1, 2, 3}))
		s.SLABreached = true
		s.UpdatedAt = now
		out = append(out, s)
	}
	return out
}

// ReturnCandidate is one returnable order item joined with its order
// timestamp and owning payment. Candidate reads exclude items that
// already have a return.
type ReturnCandidate struct {
	OrderItemID int64
	OrderID     int64
	ProductID   int64
	LineNet     float64
	OrderTS     time.Time
	Payment     warehouse.Payment
}

// LateReturnDelta is the output of a late-return pass: the new returns,
// the payments flipped to REFUNDED, and the ids of orders that must be
// marked RETURNED.
type LateReturnDelta struct {
	Returns  []warehouse.Return
	Payments []warehouse.Payment
	OrderIDs []int64
}

// LateReturns generates up to n returns against delivered order items,
// with refunds aggregated onto the owning payments. delayedOrders marks
// orders whose shipment was delayed this run, forcing a LATE_DELIVERY
// reason.
func LateReturns(f *datagen.Faker, candidates []ReturnCandidate, n int, nextReturnID int64, delayedOrders map[int64]bool, now time.Time) (LateReturnDelta, int64) {
	now = now.UTC().Truncate(time.Second)
	picked := datagen.Sample(f, candidates, n)

	var delta LateReturnDelta
	refundByPayment := make(map[int64]float64)
	paymentByID := make(map[int64]warehouse.Payment)
	paymentOrder := make([]int64, 0, len(picked))
	seenItem := make(map[int64]bool)
	seenOrder := make(map[int64]bool)

	for _, c := range picked {
		if seenItem[c.OrderItemID] {
			continue
		}
		seenItem[c.OrderItemID] = true

		refund := datagen.Round2(max(0, c.LineNet) * f.Float64(0.85, 1.0))

		reason := datagen.Choose(f, ReturnReasons)
		if delayedOrders[c.OrderID] {
			reason = "LATE_DELIVERY"
		}

		delta.Returns = append(delta.Returns, warehouse.Return{
			ReturnID:     nextReturnID,
			OrderID:      c.OrderID,
			OrderItemID:  c.OrderItemID,
			ProductID:    c.ProductID,
			ReturnTS:     now.AddDate(0, 0, -f.Int(0, 5)),
			Reason:       reason,
			RefundAmount: refund,
			Status:       "REFUNDED",
			Restocked:    f.Chance(restockProb),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		nextReturnID++

		if _, ok := paymentByID[c.Payment.PaymentID]; !ok {
			paymentOrder = append(paymentOrder, c.Payment.PaymentID)
			paymentByID[c.Payment.PaymentID] = c.Payment
		}
		refundByPayment[c.Payment.PaymentID] += refund

		if !seenOrder[c.OrderID] {
			seenOrder[c.OrderID] = true
			delta.OrderIDs = append(delta.OrderIDs, c.OrderID)
		}
	}

	// New refunds add to whatever the payment already carries, so
	// returns filed in different runs against the same order keep
	// accumulating.
	for _, id := range paymentOrder {
		p := paymentByID[id]
		p.Status = warehouse.PaymentRefunded
		p.RefundAmount = datagen.Round2(p.RefundAmount + refundByPayment[id])
		p.UpdatedAt = now
		delta.Payments = append(delta.Payments, p)
	}

	return delta, nextReturnID
}

// MarkReturned flips COMPLETED orders to RETURNED. Orders in any other
// status are dropped: COMPLETED to RETURNED is the only transition a
// return may drive.
func MarkReturned(orders []warehouse.Order, now time.Time) []warehouse.Order {
	out := make([]warehouse.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != warehouse.OrderCompleted {
			continue
		}
		o.Status = warehouse.OrderReturned
		o.UpdatedAt = now
		out = append(out, o)
	}
	return out
}

// NewCustomers generates n customers acquired in (since, now], with ids
// continuing from firstID.
func NewCustomers(f *datagen.Faker, firstID int64, n int, geoIDs []int64, since, now time.Time) ([]warehouse.Customer, error) {
	if len(geoIDs) == 0 {
		return nil, warehouse.MissingReference("geo")
	}
	now = now.UTC().Truncate(time.Second)
	out := make([]warehouse.Customer, 0, n)
	for i := 0; i < n; i++ {
		createdTS := f.TimeIn(since, now)
		out = append(out, warehouse.Customer{
			CustomerID:         firstID + int64(i),
			CreatedTS:          createdTS,
			GeoID:              datagen.Choose(f, geoIDs),
			AcquisitionChannel: datagen.Choose(f, AcquisitionChannels),
			CreatedAt:          createdTS,
			UpdatedAt:          now,
		})
	}
	return out, nil
}

// PriceDrift parameterizes the per-refresh product price walk.
type PriceDrift struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// DriftProducts applies a clamped normal price drift to up to n product
// candidates. Identity fields and unit cost stay fixed.
func DriftProducts(f *datagen.Faker, candidates []warehouse.Product, n int, drift PriceDrift, now time.Time) []warehouse.Product {
	picked := datagen.Sample(f, candidates, n)
	out := make([]warehouse.Product, 0, len(picked))
	for _, p := range picked {
		step := f.Normal(drift.Mean, drift.StdDev)
		if step < drift.Min {
			step = drift.Min
		}
		if step > drift.Max {
			step = drift.Max
		}
		p.ListPrice = datagen.Round2(p.ListPrice * (1.0 + step))
		p.UpdatedAt = now
		out = append(out, p)
	}
	return out
}
