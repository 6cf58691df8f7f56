package generate

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/globalcart/globalcart-warehouse/internal/datagen"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

var testSince = testNow.Add(-90 * time.Minute)

func testRefs(t *testing.T) *Refs {
	t.Helper()
	d := mustDims(t, 42)
	return RefsFromDims(d)
}

func startIDs() NextIDs {
	return NextIDs{Order: 1001, OrderItem: 5001, Payment: 1001, Event: 90001, Shipment: 501, Return: 51}
}

func TestNewOrderFactsContinuesIDs(t *testing.T) {
	f := datagen.NewFakerWithSeed(11)
	refs := testRefs(t)
	ids := startIDs()

	facts, next, err := NewOrderFacts(f, refs, ids, 50, 4, testSince, testNow)
	if err != nil {
		t.Fatalf("NewOrderFacts failed: %v", err)
	}

	if len(facts.Orders) != 50 {
		t.Fatalf("got %d orders, want 50", len(facts.Orders))
	}
	for i, o := range facts.Orders {
		if o.OrderID != ids.Order+int64(i) {
			t.Fatalf("order %d has id %d, want %d", i, o.OrderID, ids.Order+int64(i))
		}
	}
	if next.Order != ids.Order+50 {
		t.Errorf("next order id %d, want %d", next.Order, ids.Order+50)
	}
	if next.OrderItem != ids.OrderItem+int64(len(facts.Items)) {
		t.Errorf("next item id %d after %d items from %d", next.OrderItem, len(facts.Items), ids.OrderItem)
	}
	if next.Payment != ids.Payment+int64(len(facts.Payments)) {
		t.Errorf("next payment id %d after %d payments", next.Payment, len(facts.Payments))
	}
	if next.Shipment != ids.Shipment+int64(len(facts.Shipments)) {
		t.Errorf("next shipment id %d after %d shipments", next.Shipment, len(facts.Shipments))
	}
	if next.Event != ids.Event+int64(len(facts.Events)) {
		t.Errorf("next event id %d after %d events", next.Event, len(facts.Events))
	}
	if next.Return != ids.Return {
		t.Errorf("return id advanced to %d with no returns generated", next.Return)
	}
	if len(facts.Returns) != 0 {
		t.Errorf("new-order batch generated %d returns", len(facts.Returns))
	}
}

func TestNewOrderFactsWindowAndSessions(t *testing.T) {
	f := datagen.NewFakerWithSeed(11)
	refs := testRefs(t)

	facts, _, err := NewOrderFacts(f, refs, startIDs(), 80, 4, testSince, testNow)
	if err != nil {
		t.Fatalf("NewOrderFacts failed: %v", err)
	}

	for _, o := range facts.Orders {
		if o.OrderTS.Before(testSince) || o.OrderTS.After(testNow) {
			t.Errorf("order %d placed at %v, outside refresh window", o.OrderID, o.OrderTS)
		}
		if !o.UpdatedAt.Equal(testNow) {
			t.Errorf("order %d updated at %v, want refresh time", o.OrderID, o.UpdatedAt)
		}
	}
	for _, ev := range facts.Events {
		if !strings.HasPrefix(ev.SessionID, "sess_inc_") {
			t.Fatalf("delta funnel event has session id %q", ev.SessionID)
		}
	}
	for _, p := range facts.Payments {
		if p.CapturedTS != nil && !p.CapturedTS.After(p.AuthorizedTS) {
			t.Errorf("payment %d captured before authorization", p.PaymentID)
		}
	}
}

func TestNewOrderFactsRejectsEmptyRefs(t *testing.T) {
	f := datagen.NewFakerWithSeed(11)
	_, _, err := NewOrderFacts(f, &Refs{}, startIDs(), 10, 4, testSince, testNow)
	if !errors.Is(err, warehouse.ErrMissingReference) {
		t.Errorf("expected ErrMissingReference, got %v", err)
	}
}

func TestCompleteOrders(t *testing.T) {
	f := datagen.NewFakerWithSeed(3)
	candidates := []warehouse.Order{
		{OrderID: 1, Status: warehouse.OrderDelivered},
		{OrderID: 2, Status: warehouse.OrderDelivered},
		{OrderID: 3, Status: warehouse.OrderDelivered},
	}

	got := CompleteOrders(f, candidates, 2, testNow)
	if len(got) != 2 {
		t.Fatalf("got %d completed orders, want 2", len(got))
	}
	for _, o := range got {
		if o.Status != warehouse.OrderCompleted {
			t.Errorf("order %d has status %s", o.OrderID, o.Status)
		}
		if !o.UpdatedAt.Equal(testNow) {
			t.Errorf("order %d updated at %v", o.OrderID, o.UpdatedAt)
		}
	}

	// Asking for more than available returns everything once.
	got = CompleteOrders(f, candidates, 10, testNow)
	if len(got) != len(candidates) {
		t.Errorf("got %d completed orders, want %d", len(got), len(candidates))
	}
}

func TestDelayShipments(t *testing.T) {
	f := datagen.NewFakerWithSeed(3)
	promised := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	candidates := []warehouse.Shipment{
		{ShipmentID: 1, OrderID: 10, PromisedDate: promised, DeliveredDate: promised},
		{ShipmentID: 2, OrderID: 20, PromisedDate: promised, DeliveredDate: promised.AddDate(0, 0, -1)},
	}

	got := DelayShipments(f, candidates, 2, testNow)
	if len(got) != 2 {
		t.Fatalf("got %d delayed shipments, want 2", len(got))
	}
	byID := make(map[int64]warehouse.Shipment)
	for _, s := range got {
		byID[s.ShipmentID] = s
	}
	for _, orig := range candidates {
		s := byID[orig.ShipmentID]
		if !s.SLABreached {
			t.Errorf("shipment %d not flagged as breached", s.ShipmentID)
		}
		if !s.DeliveredDate.After(orig.DeliveredDate) {
			t.Errorf("shipment %d delivered date did not move forward", s.ShipmentID)
		}
	}
}

func TestLateReturns(t *testing.T) {
	f := datagen.NewFakerWithSeed(17)
	pay := func(id, orderID int64) warehouse.Payment {
		return warehouse.Payment{PaymentID: id, OrderID: orderID, Status: warehouse.PaymentCaptured, Amount: 200}
	}
	candidates := []ReturnCandidate{
		{OrderItemID: 1, OrderID: 10, ProductID: 7, LineNet: 80, OrderTS: testSince, Payment: pay(100, 10)},
		{OrderItemID: 2, OrderID: 10, ProductID: 8, LineNet: 120, OrderTS: testSince, Payment: pay(100, 10)},
		{OrderItemID: 3, OrderID: 20, ProductID: 9, LineNet: 50, OrderTS: testSince, Payment: pay(200, 20)},
	}
	delayed := map[int64]bool{20: true}

	delta, nextID := LateReturns(f, candidates, 3, 500, delayed, testNow)

	if len(delta.Returns) != 3 {
		t.Fatalf("got %d returns, want 3", len(delta.Returns))
	}
	if nextID != 503 {
		t.Errorf("next return id %d, want 503", nextID)
	}

	seen := make(map[int64]bool)
	refundByPayment := make(map[int64]float64)
	for _, r := range delta.Returns {
		if seen[r.OrderItemID] {
			t.Fatalf("item %d returned twice", r.OrderItemID)
		}
		seen[r.OrderItemID] = true
		if r.Status != "REFUNDED" {
			t.Errorf("return %d has status %q", r.ReturnID, r.Status)
		}
		if r.OrderID == 20 && r.Reason != "LATE_DELIVERY" {
			t.Errorf("return on delayed order 20 has reason %q", r.Reason)
		}
		if r.RefundAmount <= 0 {
			t.Errorf("return %d refunds %f", r.ReturnID, r.RefundAmount)
		}
	}
	for _, c := range candidates {
		for _, r := range delta.Returns {
			if r.OrderItemID == c.OrderItemID {
				if r.RefundAmount > c.LineNet+0.01 {
					t.Errorf("item %d refund %f exceeds line net %f", c.OrderItemID, r.RefundAmount, c.LineNet)
				}
				refundByPayment[c.Payment.PaymentID] += r.RefundAmount
			}
		}
	}

	if len(delta.Payments) != 2 {
		t.Fatalf("got %d refunded payments, want 2", len(delta.Payments))
	}
	for _, p := range delta.Payments {
		if p.Status != warehouse.PaymentRefunded {
			t.Errorf("payment %d has status %s", p.PaymentID, p.Status)
		}
		want := datagen.Round2(refundByPayment[p.PaymentID])
		if math.Abs(p.RefundAmount-want) > 0.001 {
			t.Errorf("payment %d refund %f, want %f", p.PaymentID, p.RefundAmount, want)
		}
		if !p.UpdatedAt.Equal(testNow.UTC().Truncate(time.Second)) {
			t.Errorf("payment %d updated at %v", p.PaymentID, p.UpdatedAt)
		}
	}

	if len(delta.OrderIDs) != 2 {
		t.Errorf("got order ids %v, want one entry per returned order", delta.OrderIDs)
	}
}

func TestLateReturnsAddToExistingRefund(t *testing.T) {
	f := datagen.NewFakerWithSeed(17)
	// A payment already refunded for another item of the same order in
	// an earlier run.
	p := warehouse.Payment{
		PaymentID: 9, OrderID: 1,
		Status: warehouse.PaymentRefunded, Amount: 300, RefundAmount: 42.50,
	}
	candidates := []ReturnCandidate{
		{OrderItemID: 7, OrderID: 1, ProductID: 3, LineNet: 100, Payment: p},
	}

	delta, _ := LateReturns(f, candidates, 1, 1, nil, testNow)
	if len(delta.Returns) != 1 || len(delta.Payments) != 1 {
		t.Fatalf("got %d returns and %d payments, want 1 and 1", len(delta.Returns), len(delta.Payments))
	}

	want := datagen.Round2(42.50 + delta.Returns[0].RefundAmount)
	got := delta.Payments[0]
	if math.Abs(got.RefundAmount-want) > 0.001 {
		t.Errorf("payment refund %f, want prior refund plus new return %f", got.RefundAmount, want)
	}
	if got.Status != warehouse.PaymentRefunded {
		t.Errorf("payment status %s, want REFUNDED", got.Status)
	}
}

func TestLateReturnsDropsDuplicateItems(t *testing.T) {
	f := datagen.NewFakerWithSeed(17)
	p := warehouse.Payment{PaymentID: 1, OrderID: 1, Status: warehouse.PaymentCaptured}
	candidates := []ReturnCandidate{
		{OrderItemID: 5, OrderID: 1, ProductID: 1, LineNet: 40, Payment: p},
		{OrderItemID: 5, OrderID: 1, ProductID: 1, LineNet: 40, Payment: p},
	}
	delta, _ := LateReturns(f, candidates, 2, 1, nil, testNow)
	if len(delta.Returns) != 1 {
		t.Errorf("got %d returns for a duplicated candidate, want 1", len(delta.Returns))
	}
}

func TestMarkReturned(t *testing.T) {
	orders := []warehouse.Order{
		{OrderID: 1, Status: warehouse.OrderCompleted},
		{OrderID: 2, Status: warehouse.OrderDelivered},
		{OrderID: 3, Status: warehouse.OrderCompleted},
		{OrderID: 4, Status: warehouse.OrderCreated},
	}
	got := MarkReturned(orders, testNow)

	// Only COMPLETED orders may advance to RETURNED; everything else is
	// dropped rather than skipped ahead.
	if len(got) != 2 {
		t.Fatalf("got %d returned orders, want 2", len(got))
	}
	for _, o := range got {
		if o.OrderID != 1 && o.OrderID != 3 {
			t.Errorf("order %d was not COMPLETED but got flipped", o.OrderID)
		}
		if o.Status != warehouse.OrderReturned {
			t.Errorf("order %d has status %s", o.OrderID, o.Status)
		}
		if !o.UpdatedAt.Equal(testNow) {
			t.Errorf("order %d updated at %v", o.OrderID, o.UpdatedAt)
		}
	}
	if orders[0].Status != warehouse.OrderCompleted {
		t.Error("MarkReturned mutated its input slice")
	}
}

func TestNewCustomers(t *testing.T) {
	f := datagen.NewFakerWithSeed(23)
	geoIDs := []int64{1, 2, 3}

	got, err := NewCustomers(f, 301, 25, geoIDs, testSince, testNow)
	if err != nil {
		t.Fatalf("NewCustomers failed: %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("got %d customers, want 25", len(got))
	}
	for i, c := range got {
		if c.CustomerID != 301+int64(i) {
			t.Fatalf("customer %d has id %d", i, c.CustomerID)
		}
		if c.GeoID < 1 || c.GeoID > 3 {
			t.Errorf("customer %d references geo %d", c.CustomerID, c.GeoID)
		}
		if c.CreatedTS.Before(testSince) || c.CreatedTS.After(testNow) {
			t.Errorf("customer %d created at %v, outside refresh window", c.CustomerID, c.CreatedTS)
		}
	}

	_, err = NewCustomers(f, 1, 5, nil, testSince, testNow)
	if !errors.Is(err, warehouse.ErrMissingReference) {
		t.Errorf("expected ErrMissingReference for empty geos, got %v", err)
	}
}

func TestDriftProducts(t *testing.T) {
	f := datagen.NewFakerWithSeed(29)
	drift := PriceDrift{Mean: 0.0, StdDev: 0.04, Min: -0.10, Max: 0.10}

	candidates := make([]warehouse.Product, 0, 200)
	for i := int64(1); i <= 200; i++ {
		candidates = append(candidates, warehouse.Product{ProductID: i, SKU: "SKU-0000001", ListPrice: 100, UnitCost: 60})
	}

	got := DriftProducts(f, candidates, 50, drift, testNow)
	if len(got) != 50 {
		t.Fatalf("got %d drifted products, want 50", len(got))
	}
	for _, p := range got {
		if p.ListPrice < 100*(1+drift.Min)-0.01 || p.ListPrice > 100*(1+drift.Max)+0.01 {
			t.Errorf("product %d drifted to %f, outside clamp band", p.ProductID, p.ListPrice)
		}
		if p.UnitCost != 60 {
			t.Errorf("product %d unit cost changed to %f", p.ProductID, p.UnitCost)
		}
		if !p.UpdatedAt.Equal(testNow) {
			t.Errorf("product %d updated at %v", p.ProductID, p.UpdatedAt)
		}
	}
}
