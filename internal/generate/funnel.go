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

// Channels is the fixed order/session channel pool.
var Channels = []string{"WEB", "APP"}

const (
	anonymousSessionProb = 0.38
	browseSessionRatio   = 0.18
	abandonSessionRatio  = 0.22
	maxBrowseSessions    = 120000
	maxAbandonSessions   = 150000
)

// deviceFor picks a device consistent with the channel. APP traffic is
// always mobile.
func deviceFor(f *datagen.Faker, channel string) string {
	if channel == "APP" || f.Chance(0.65) {
		return "MOBILE"
	}
	return "DESKTOP"
}

func sessionID(f *datagen.Faker, prefix string, n int64) string {
	return fmt.Sprintf("sess_%s%d_%09d", prefix, n, f.Int64(0, 999999999))
}

// extraSessionCounts sizes the browse-only and abandonment session
// volumes relative to the order count.
func extraSessionCounts(orders int) (browse, abandon int) {
	browse = int(float64(orders) * browseSessionRatio)
	if browse > maxBrowseSessions {
		browse = maxBrowseSessions
	}
	abandon = int(float64(orders) * abandonSessionRatio)
	if abandon > maxAbandonSessions {
		abandon = maxAbandonSessions
	}
	return browse, abandon
}

// funnelEmitter accumulates funnel events with dense, monotonically
// increasing event ids. Within a session every emitted timestamp is
// strictly after the previous one.
type funnelEmitter struct {
	f      *datagen.Faker
	nextID int64
	events []warehouse.FunnelEvent
}

func newFunnelEmitter(f *datagen.Faker, firstEventID int64) *funnelEmitter {
	return &funnelEmitter{f: f, nextID: firstEventID}
}

func (e *funnelEmitter) emit(ev warehouse.FunnelEvent) {
	ev.EventID = e.nextID
	e.nextID++
	e.events = append(e.events, ev)
}

// orderSession describes the funnel session that produced one order.
type orderSession struct {
	SessionID     string
	CustomerID    int64
	OrderID       int64
	OrderTS       time.Time
	ProductIDs    []int64 // line products, in line order
	ExtraViews    []int64 // browsed but not purchased
	Channel       string
	Device        string
	Failed        bool
	FailureReason *string
}

// OrderSession emits the full funnel for an order-backed session. The
// stage sequence is always the complete canonical prefix: product views,
// at least one add-to-cart, cart view, checkout, payment attempt, then
// ORDER_PLACED or PAYMENT_FAILED depending on the payment outcome.
func (e *funnelEmitter) OrderSession(s orderSession) {
	custID := s.CustomerID
	base := warehouse.FunnelEvent{
		SessionID:  s.SessionID,
		CustomerID: &custID,
		Channel:    s.Channel,
		Device:     s.Device,
	}

	t := s.OrderTS.Add(-e.f.Duration(4*time.Minute, 90*time.Minute))

	viewed := dedupeIDs(append(append([]int64{}, s.ProductIDs...), s.ExtraViews...))
	for _, pid := range viewed {
		views := e.f.Int(1, 3)
		for i := 0; i < views; i++ {
			t = t.Add(e.f.Duration(5*time.Second, 35*time.Second))
			ev := base
			ev.EventTS = t
			pid := pid
			ev.ProductID = &pid
			ev.Stage = warehouse.StageViewProduct
			e.emit(ev)
		}
	}

	// The first line product always lands in the cart so the session
	// stage sequence stays a prefix of the canonical funnel.
	for i, pid := range dedupeIDs(s.ProductIDs) {
		if i > 0 && !e.f.Chance(0.92) {
			continue
		}
		t = t.Add(e.f.Duration(8*time.Second, 55*time.Second))
		ev := base
		ev.EventTS = t
		pid := pid
		ev.ProductID = &pid
		ev.Stage = warehouse.StageAddToCart
		e.emit(ev)
	}

	t = t.Add(e.f.Duration(10*time.Second, 60*time.Second))
	ev := base
	ev.EventTS = t
	ev.Stage = warehouse.StageViewCart
	e.emit(ev)

	t = t.Add(e.f.Duration(12*time.Second, 80*time.Second))
	ev = base
	ev.EventTS = t
	ev.Stage = warehouse.StageCheckoutStarted
	e.emit(ev)

	orderID := s.OrderID
	t = t.Add(e.f.Duration(10*time.Second, 75*time.Second))
	ev = base
	ev.EventTS = t
	ev.OrderID = &orderID
	ev.Stage = warehouse.StagePaymentAttempted
	e.emit(ev)

	t = t.Add(e.f.Duration(5*time.Second, 45*time.Second))
	ev = base
	ev.EventTS = t
	ev.OrderID = &orderID
	if s.Failed {
		ev.Stage = warehouse.StagePaymentFailed
		ev.FailureReason = s.FailureReason
	} else {
		ev.Stage = warehouse.StageOrderPlaced
	}
	e.emit(ev)
}

// BrowseSession emits a view-only session that never advances past
// VIEW_PRODUCT.
func (e *funnelEmitter) BrowseSession(sid string, customerID *int64, productIDs []int64, start time.Time, channel, device string) {
	base := warehouse.FunnelEvent{
		SessionID:  sid,
		CustomerID: customerID,
		Channel:    channel,
		Device:     device,
	}
	t := start
	for _, pid := range productIDs {
		views := e.f.Int(1, 3)
		for i := 0; i < views; i++ {
			t = t.Add(e.f.Duration(6*time.Second, 40*time.Second))
			ev := base
			ev.EventTS = t
			pid := pid
			ev.ProductID = &pid
			ev.Stage = warehouse.StageViewProduct
			e.emit(ev)
		}
	}
}

// AbandonSession emits a session that adds to cart and stalls before any
// payment stage. Checkout can only start after the cart was viewed.
func (e *funnelEmitter) AbandonSession(sid string, customerID *int64, productIDs []int64, start time.Time, channel, device string) {
	base := warehouse.FunnelEvent{
		SessionID:  sid,
		CustomerID: customerID,
		Channel:    channel,
		Device:     device,
	}
	t := start
	for _, pid := range productIDs {
		views := e.f.Int(1, 3)
		for i := 0; i < views; i++ {
			t = t.Add(e.f.Duration(6*time.Second, 40*time.Second))
			ev := base
			ev.EventTS = t
			pid := pid
			ev.ProductID = &pid
			ev.Stage = warehouse.StageViewProduct
			e.emit(ev)
		}
	}

	distinct := dedupeIDs(productIDs)
	carted := e.f.Int(1, min(4, len(distinct)))
	for _, pid := range distinct[:carted] {
		t = t.Add(e.f.Duration(10*time.Second, 70*time.Second))
		ev := base
		ev.EventTS = t
		pid := pid
		ev.ProductID = &pid
		ev.Stage = warehouse.StageAddToCart
		e.emit(ev)
	}

	if e.f.Chance(0.65) {
		t = t.Add(e.f.Duration(10*time.Second, 75*time.Second))
		ev := base
		ev.EventTS = t
		ev.Stage = warehouse.StageViewCart
		e.emit(ev)

		if e.f.Chance(0.35) {
			t = t.Add(e.f.Duration(12*time.Second, 90*time.Second))
			ev = base
			ev.EventTS = t
			ev.Stage = warehouse.StageCheckoutStarted
			e.emit(ev)
		}
	}
}

// ExtraSessions emits the browse-only and abandonment sessions that
// accompany a batch of orders within [windowStart, windowEnd).
func (e *funnelEmitter) ExtraSessions(customerIDs, productIDs []int64, orders int, windowStart, windowEnd time.Time) {
	browse, abandon := extraSessionCounts(orders)
	for i := 0; i < browse+abandon; i++ {
		isAbandon := i >= browse

		start := e.f.TimeIn(windowStart, windowEnd)
		channel := datagen.Choose(e.f, Channels)
		device := deviceFor(e.f, channel)
		sid := sessionID(e.f, "x_", int64(i))

		var customerID *int64
		if !e.f.Chance(anonymousSessionProb) && len(customerIDs) > 0 {
			id := datagen.Choose(e.f, customerIDs)
			customerID = &id
		}

		maxProducts := 4
		if isAbandon {
			maxProducts = 6
		}
		n := e.f.Int(1, maxProducts)
		sessProducts := make([]int64, 0, n)
		for j := 0; j < n; j++ {
			sessProducts = append(sessProducts, datagen.Choose(e.f, productIDs))
		}

		if isAbandon {
			e.AbandonSession(sid, customerID, sessProducts, start, channel, device)
		} else {
			e.BrowseSession(sid, customerID, sessProducts, start, channel, device)
		}
	}
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
