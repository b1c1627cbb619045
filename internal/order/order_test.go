package order

import (
	"testing"
	"time"

	"github.com/kainan-pos/terminal/internal/enum"
)

func TestNormalizeDefaults(t *testing.T) {
	o := &Order{
		ID: "o1",
		Items: []Item{
			{ID: "m1", Name: "Adobo"},
			{ID: "m2", Name: "Halo-halo", ItemType: enum.ItemTypeTakeOut, Quantity: 3},
		},
		OrderSource: enum.OrderSourceOnline,
	}
	Normalize(o)

	if o.OrderType != enum.ItemTypeDineIn {
		t.Fatalf("OrderType = %q", o.OrderType)
	}
	if o.OnlinePaymentStatus != enum.OnlinePaymentPending {
		t.Fatalf("OnlinePaymentStatus = %q", o.OnlinePaymentStatus)
	}

	first := o.Items[0]
	if first.Status != enum.StatusPending || first.Quantity != 1 || first.ItemType != enum.ItemTypeDineIn {
		t.Fatalf("first item not defaulted: %+v", first)
	}
	// Explicit per-item values survive.
	second := o.Items[1]
	if second.ItemType != enum.ItemTypeTakeOut || second.Quantity != 3 {
		t.Fatalf("second item overwritten: %+v", second)
	}
}

func TestStampAllServedSetOnce(t *testing.T) {
	o := testOrder()
	t0 := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

	o.StampAllServed(t0)
	if o.AllItemsServedAt != nil {
		t.Fatal("stamped while items unserved")
	}

	for i := range o.Items {
		o.Items[i].Status = enum.StatusServed
	}
	o.StampAllServed(t0)
	if o.AllItemsServedAt == nil || !o.AllItemsServedAt.Equal(t0) {
		t.Fatalf("AllItemsServedAt = %v, want %v", o.AllItemsServedAt, t0)
	}

	// Later calls never move the timestamp.
	o.StampAllServed(t0.Add(time.Hour))
	if !o.AllItemsServedAt.Equal(t0) {
		t.Fatalf("timestamp moved to %v", o.AllItemsServedAt)
	}
}

func TestCloneIsolation(t *testing.T) {
	o := testOrder()
	now := time.Now()
	o.Items[0].PreparingAt = &now
	if _, err := AppendItems(o, []Item{{Name: "Lumpia", Quantity: 1}}, now); err != nil {
		t.Fatal(err)
	}

	c := o.Clone()
	c.Items[0].Status = enum.StatusServed
	*c.Items[0].PreparingAt = now.Add(time.Hour)
	c.Appended[0].Items[0].Name = "changed"

	if o.Items[0].Status == enum.StatusServed {
		t.Fatal("clone shares item slice")
	}
	if o.Items[0].PreparingAt.Equal(now.Add(time.Hour)) {
		t.Fatal("clone shares time pointer")
	}
	if o.Appended[0].Items[0].Name == "changed" {
		t.Fatal("clone shares appended items")
	}
}

func TestLifecyclePredicates(t *testing.T) {
	o := testOrder()
	if !o.IsActive() || o.AllServed() {
		t.Fatal("fresh order should be active and unserved")
	}

	for i := range o.Items {
		o.Items[i].Status = enum.StatusServed
	}
	if !o.AllServed() || !o.IsServedNotPaid() {
		t.Fatal("all-served unpaid order misclassified")
	}

	o.IsPaid = true
	if !o.IsFullyComplete() {
		t.Fatal("served and paid order should be complete")
	}

	// An appended batch reopens the order.
	batch, err := AppendItems(o, []Item{{Name: "Lumpia", Quantity: 1}}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if o.AllServed() || o.IsFullyComplete() {
		t.Fatal("order with unserved appended items should not be complete")
	}
	batch.Items[0].Status = enum.StatusServed
	if o.IsFullyComplete() {
		t.Fatal("appended batch unpaid, order cannot be complete")
	}
	batch.IsPaid = true
	if !o.IsFullyComplete() {
		t.Fatal("order should be complete once appended batch is served and paid")
	}
}
