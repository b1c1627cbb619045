package report

import (
	"testing"
	"time"

	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/kainan-pos/terminal/internal/order"
	"github.com/kainan-pos/terminal/internal/payment"
	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func salesOrder(id string, createdAt time.Time, price string) order.Order {
	return order.Order{
		ID:        id,
		CreatedAt: createdAt,
		Items: []order.Item{
			{ID: "i1", Name: "Adobo", Price: d(price), Quantity: 1, Status: enum.StatusServed},
		},
	}
}

func TestDailyScopesToBusinessDay(t *testing.T) {
	orders := []order.Order{
		salesOrder("today", now, "100"),
		salesOrder("late-night", now.Add(5*time.Hour+30*time.Minute), "40"),  // 01:30 next day, outside
		salesOrder("yesterday", now.Add(-24*time.Hour), "60"),
	}
	s := Daily(orders, now)
	if s.OrderCount != 1 {
		t.Fatalf("count = %d, want 1", s.OrderCount)
	}
	if !s.GrossTotal.Equal(d("100")) {
		t.Fatalf("gross = %s, want 100", s.GrossTotal)
	}
}

func TestDailyCountsAfterMidnightOrder(t *testing.T) {
	// 00:30 order belongs to the business day that opened the previous
	// morning.
	midnight := time.Date(2026, 3, 15, 0, 30, 0, 0, time.UTC)
	orders := []order.Order{salesOrder("late", midnight, "80")}

	s := Daily(orders, midnight)
	if s.OrderCount != 1 {
		t.Fatalf("count = %d, want 1", s.OrderCount)
	}
	if !s.Window.Start.Equal(time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("window start = %v", s.Window.Start)
	}
}

func TestDailyMethodBuckets(t *testing.T) {
	cash := salesOrder("cash", now, "100")
	if err := payment.MarkPaid(&cash.Payment, d("100"), enum.PaymentMethodCash, decimal.NullDecimal{}); err != nil {
		t.Fatal(err)
	}
	gcash := salesOrder("gcash", now, "70")
	if err := payment.MarkPaid(&gcash.Payment, d("70"), enum.PaymentMethodGCash, decimal.NullDecimal{}); err != nil {
		t.Fatal(err)
	}
	legacy := salesOrder("legacy", now, "30")
	legacy.Payment.IsPaid = true // old record, no amount, no method

	s := Daily([]order.Order{cash, gcash, legacy}, now)
	if !s.CashCollected.Equal(d("100")) {
		t.Fatalf("cash = %s", s.CashCollected)
	}
	if !s.GCashCollected.Equal(d("70")) {
		t.Fatalf("gcash = %s", s.GCashCollected)
	}
	if !s.OtherCollected.Equal(d("30")) {
		t.Fatalf("other = %s", s.OtherCollected)
	}
	if !s.Collected.Equal(d("200")) || !s.Outstanding.Equal(d("0")) {
		t.Fatalf("collected = %s outstanding = %s", s.Collected, s.Outstanding)
	}
}

func TestDailySplitNotDoubleCounted(t *testing.T) {
	o := salesOrder("split", now, "100")
	o.Appended = []order.Appended{{
		ID: "a1",
		Items: []order.Item{
			{ID: "x1", Name: "Halo-halo", Price: d("50"), Quantity: 1, Status: enum.StatusServed},
		},
	}}
	if err := payment.MarkSplitPaid(&o, d("90"), d("60"), d("150")); err != nil {
		t.Fatal(err)
	}

	s := Daily([]order.Order{o}, now)
	// The split breakdown on the main order covers the appended batch; the
	// method buckets must sum to the order total exactly once.
	if !s.CashCollected.Equal(d("90")) || !s.GCashCollected.Equal(d("60")) {
		t.Fatalf("cash = %s gcash = %s", s.CashCollected, s.GCashCollected)
	}
	if !s.OtherCollected.Equal(d("0")) {
		t.Fatalf("other = %s, want 0", s.OtherCollected)
	}
	if !s.Collected.Equal(d("150")) {
		t.Fatalf("collected = %s, want 150", s.Collected)
	}
}

func TestDailyCompletedCount(t *testing.T) {
	done := salesOrder("done", now, "100")
	done.IsPaid = true
	open := salesOrder("open", now, "50")
	open.Items[0].Status = enum.StatusPreparing

	s := Daily([]order.Order{done, open}, now)
	if s.CompletedCount != 1 {
		t.Fatalf("completed = %d, want 1", s.CompletedCount)
	}
	if !s.Outstanding.Equal(d("50")) {
		t.Fatalf("outstanding = %s, want 50", s.Outstanding)
	}
}

func TestVisibleCompleted(t *testing.T) {
	fresh := salesOrder("fresh", now, "100")
	fresh.IsPaid = true
	old := salesOrder("old", now.Add(-24*time.Hour), "100")
	old.IsPaid = true
	unpaid := salesOrder("unpaid", now, "100")

	got := VisibleCompleted([]order.Order{fresh, old, unpaid}, now)
	if len(got) != 1 || got[0].ID != "fresh" {
		t.Fatalf("visible = %v", got)
	}
}
