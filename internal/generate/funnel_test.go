package generate

import (
	"strings"
	"testing"
	"time"

	"github.com/globalcart/globalcart-warehouse/internal/datagen"
	"github.com/globalcart/globalcart-warehouse/internal/warehouse"
)

func TestExtraSessionCounts(t *testing.T) {
	tests := []struct {
		orders      int
		wantBrowse  int
		wantAbandon int
	}{
		{0, 0, 0},
		{100, 18, 22},
		{1000, 180, 220},
		{10000000, maxBrowseSessions, maxAbandonSessions},
	}

	for _, tt := range tests {
		browse, abandon := extraSessionCounts(tt.orders)
		if browse != tt.wantBrowse {
			t.Errorf("extraSessionCounts(%d) browse = %d, want %d", tt.orders, browse, tt.wantBrowse)
		}
		if abandon != tt.wantAbandon {
			t.Errorf("extraSessionCounts(%d) abandon = %d, want %d", tt.orders, abandon, tt.wantAbandon)
		}
	}
}

func TestSessionIDFormat(t *testing.T) {
	f := datagen.NewFakerWithSeed(1)
	id := sessionID(f, "", 42)
	if !strings.HasPrefix(id, "sess_42_") {
		t.Errorf("unexpected session id %q", id)
	}
	id = sessionID(f, "inc_", 7)
	if !strings.HasPrefix(id, "sess_inc_7_") {
		t.Errorf("unexpected incremental session id %q", id)
	}
}

// groupBySession splits an event stream into per-session slices,
// preserving emit order.
func groupBySession(events []warehouse.FunnelEvent) map[string][]warehouse.FunnelEvent {
	out := make(map[string][]warehouse.FunnelEvent)
	for _, ev := range events {
		out[ev.SessionID] = append(out[ev.SessionID], ev)
	}
	return out
}

// checkSessionCausality asserts the invariants every session must hold:
// stage ranks never decrease, timestamps strictly increase, every stage
// present implies its full prefix is present, and at most one terminal
// event closes the session.
func checkSessionCausality(t *testing.T, sid string, events []warehouse.FunnelEvent) {
	t.Helper()

	maxRank := -1
	seen := make(map[warehouse.FunnelStage]bool)
	terminals := 0
	var prevTS time.Time

	for i, ev := range events {
		rank := warehouse.StageRank(ev.Stage)
		if rank < 0 {
			t.Fatalf("session %s: unknown stage %q", sid, ev.Stage)
		}
		if rank < maxRank {
			t.Fatalf("session %s: stage %s after rank %d", sid, ev.Stage, maxRank)
		}
		maxRank = rank
		seen[ev.Stage] = true
		if ev.Stage == warehouse.StageOrderPlaced || ev.Stage == warehouse.StagePaymentFailed {
			terminals++
		}
		if i > 0 && !ev.EventTS.After(prevTS) {
			t.Fatalf("session %s: timestamps not strictly increasing at event %d", sid, i)
		}
		prevTS = ev.EventTS
	}

	if terminals > 1 {
		t.Fatalf("session %s has %d terminal events", sid, terminals)
	}

	// Prefix closure: reaching a stage implies every earlier stage
	// occurred in the same session.
	prefix := []warehouse.FunnelStage{
		warehouse.StageViewProduct,
		warehouse.StageAddToCart,
		warehouse.StageViewCart,
		warehouse.StageCheckoutStarted,
		warehouse.StagePaymentAttempted,
	}
	deepest := -1
	for i, s := range prefix {
		if seen[s] {
			deepest = i
		}
	}
	if seen[warehouse.StageOrderPlaced] || seen[warehouse.StagePaymentFailed] {
		deepest = len(prefix) - 1
	}
	for i := 0; i <= deepest; i++ {
		if !seen[prefix[i]] {
			t.Fatalf("session %s reached rank %d without %s", sid, deepest, prefix[i])
		}
	}
}

func TestOrderSessionCausality(t *testing.T) {
	f := datagen.NewFakerWithSeed(7)
	em := newFunnelEmitter(f, 1)
	now := testNow

	cid := int64(11)
	oid := int64(501)
	for i := 0; i < 200; i++ {
		reason := "NETWORK_ERROR"
		s := orderSession{
			SessionID:  sessionID(f, "", int64(i)),
			CustomerID: cid,
			OrderID:    oid + int64(i),
			OrderTS:    now.Add(-time.Duration(i) * time.Hour),
			ProductIDs: []int64{1, 2, 2, 3},
			ExtraViews: []int64{4, 5},
			Channel:    datagen.Choose(f, Channels),
			Device:     "MOBILE",
			Failed:     i%5 == 0,
		}
		if s.Failed {
			s.FailureReason = &reason
		}
		em.OrderSession(s)
	}

	sessions := groupBySession(em.events)
	for sid, events := range sessions {
		checkSessionCausality(t, sid, events)

		last := events[len(events)-1]
		if last.Stage != warehouse.StageOrderPlaced && last.Stage != warehouse.StagePaymentFailed {
			t.Errorf("session %s ends on %s, want a terminal stage", sid, last.Stage)
		}
		if last.OrderID == nil {
			t.Errorf("session %s terminal event has no order id", sid)
		}
		if last.Stage == warehouse.StagePaymentFailed && last.FailureReason == nil {
			t.Errorf("session %s failed without a failure reason", sid)
		}
	}
}

func TestOrderSessionFirstProductAlwaysCarted(t *testing.T) {
	f := datagen.NewFakerWithSeed(9)
	em := newFunnelEmitter(f, 1)

	for i := 0; i < 100; i++ {
		em.OrderSession(orderSession{
			SessionID:  sessionID(f, "", int64(i)),
			CustomerID: int64(i + 1),
			OrderID:    int64(i + 1),
			OrderTS:    testNow,
			ProductIDs: []int64{int64(i + 1000), int64(i + 2000)},
			Channel:    "WEB",
			Device:     "DESKTOP",
		})
	}

	for sid, events := range groupBySession(em.events) {
		carted := false
		for _, ev := range events {
			if ev.Stage == warehouse.StageAddToCart {
				carted = true
				break
			}
		}
		if !carted {
			t.Errorf("session %s placed an order without any ADD_TO_CART", sid)
		}
	}
}

func TestBrowseSessionStopsAtViews(t *testing.T) {
	f := datagen.NewFakerWithSeed(3)
	em := newFunnelEmitter(f, 1)

	cid := int64(4)
	em.BrowseSession("sess_b_1", &cid, []int64{1, 2, 3}, testNow, "WEB", "DESKTOP")
	em.BrowseSession("sess_b_2", nil, []int64{9}, testNow, "APP", "MOBILE")

	if len(em.events) == 0 {
		t.Fatal("browse sessions produced no events")
	}
	for _, ev := range em.events {
		if ev.Stage != warehouse.StageViewProduct {
			t.Errorf("browse session emitted %s", ev.Stage)
		}
		if ev.ProductID == nil {
			t.Error("view event has no product id")
		}
		if ev.OrderID != nil {
			t.Error("browse session event carries an order id")
		}
	}
	if em.events[0].CustomerID == nil {
		t.Error("identified browse session lost its customer id")
	}
}

func TestAbandonSessionNeverReachesPayment(t *testing.T) {
	f := datagen.NewFakerWithSeed(5)
	em := newFunnelEmitter(f, 1)

	for i := 0; i < 300; i++ {
		cid := int64(i + 1)
		em.AbandonSession(sessionID(f, "x_", int64(i)), &cid, []int64{1, 2, 3, 4, 5}, testNow, "WEB", "DESKTOP")
	}

	for sid, events := range groupBySession(em.events) {
		checkSessionCausality(t, sid, events)
		for _, ev := range events {
			switch ev.Stage {
			case warehouse.StagePaymentAttempted, warehouse.StagePaymentFailed, warehouse.StageOrderPlaced:
				t.Errorf("abandoned session %s reached %s", sid, ev.Stage)
			}
			if ev.OrderID != nil {
				t.Errorf("abandoned session %s carries an order id", sid)
			}
		}
	}
}

func TestEmitterAssignsDenseEventIDs(t *testing.T) {
	f := datagen.NewFakerWithSeed(5)
	em := newFunnelEmitter(f, 100)
	cid := int64(1)
	em.BrowseSession("sess_b_1", &cid, []int64{1, 2}, testNow, "WEB", "DESKTOP")

	for i, ev := range em.events {
		if want := int64(100 + i); ev.EventID != want {
			t.Fatalf("event %d has id %d, want %d", i, ev.EventID, want)
		}
	}
	if em.nextID != int64(100+len(em.events)) {
		t.Errorf("nextID = %d after %d events from 100", em.nextID, len(em.events))
	}
}

func TestDedupeIDs(t *testing.T) {
	got := dedupeIDs([]int64{3, 1, 3, 2, 1})
	want := []int64{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("dedupeIDs returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dedupeIDs returned %v, want %v", got, want)
		}
	}
}
