package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/kainan-pos/terminal/internal/order"
	"github.com/kainan-pos/terminal/internal/push"
	"github.com/kainan-pos/terminal/internal/store"
	"github.com/rs/zerolog"
)

func snapshot(t *testing.T, o *order.Order) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func remoteOrder(id string) *order.Order {
	return &order.Order{
		ID:        id,
		Branch:    "main",
		CreatedAt: time.Now(),
		Items: []order.Item{
			{ID: "i1", Name: "Adobo", Quantity: 1, Status: enum.StatusPending},
		},
	}
}

func newTestReconciler() (*Reconciler, *store.Store) {
	s := store.New(zerolog.Nop())
	return New(s, zerolog.Nop()), s
}

func TestApplyCreated(t *testing.T) {
	r, s := newTestReconciler()
	err := r.Apply(push.Event{Type: enum.EventOrderCreated, Payload: snapshot(t, remoteOrder("o1"))})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := s.Get("o1")
	if !ok {
		t.Fatal("order not stored")
	}
	// Remote snapshots count as synced.
	if !s.Synced("o1") {
		t.Fatal("snapshot not marked synced")
	}
	if got.Items[0].Status != enum.StatusPending {
		t.Fatalf("item status = %s", got.Items[0].Status)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	r, s := newTestReconciler()
	evt := push.Event{Type: enum.EventOrderUpdated, Payload: snapshot(t, remoteOrder("o1"))}

	for i := 0; i < 3; i++ {
		if err := r.Apply(evt); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d after redelivery, want 1", s.Len())
	}
}

func TestUpdateBeforeCreate(t *testing.T) {
	// An update for an unseen id behaves exactly like a create.
	r, s := newTestReconciler()
	err := r.Apply(push.Event{Type: enum.EventOrderUpdated, Payload: snapshot(t, remoteOrder("unseen"))})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("unseen"); !ok {
		t.Fatal("update for unseen id was not applied as create")
	}
}

func TestSnapshotReplacesWholesale(t *testing.T) {
	r, s := newTestReconciler()
	stale := remoteOrder("o1")
	stale.CustomerName = "Old Name"
	stale.Notes = []order.Note{{Text: "stale note"}}
	s.Put(stale, true)

	fresh := remoteOrder("o1")
	fresh.CustomerName = "New Name"
	if err := r.Apply(push.Event{Type: enum.EventOrderUpdated, Payload: snapshot(t, fresh)}); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get("o1")
	if got.CustomerName != "New Name" {
		t.Fatalf("customer = %q", got.CustomerName)
	}
	// No field-level merging: what the snapshot lacks is gone.
	if len(got.Notes) != 0 {
		t.Fatal("stale fields survived snapshot replace")
	}
}

func TestApplyDeleted(t *testing.T) {
	r, s := newTestReconciler()
	s.Put(remoteOrder("o1"), true)

	evt := push.Event{Type: enum.EventOrderDeleted, Payload: json.RawMessage(`{"id":"o1"}`)}
	if err := r.Apply(evt); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("o1"); ok {
		t.Fatal("order survived delete event")
	}

	// Redelivery of the delete is a harmless no-op.
	if err := r.Apply(evt); err != nil {
		t.Fatal(err)
	}
}

func TestApplyConfirmedBareID(t *testing.T) {
	r, s := newTestReconciler()
	o := remoteOrder("o1")
	o.OrderSource = enum.OrderSourceOnline
	o.OnlinePaymentStatus = enum.OnlinePaymentPending
	s.Put(o, true)

	evt := push.Event{Type: enum.EventOnlineOrderConfirmed, Payload: json.RawMessage(`{"id":"o1"}`)}
	if err := r.Apply(evt); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get("o1")
	if got.OnlinePaymentStatus != enum.OnlinePaymentConfirmed {
		t.Fatalf("status = %q", got.OnlinePaymentStatus)
	}
}

func TestApplyConfirmedUnknownID(t *testing.T) {
	// Confirmation for an order never received: no-op, the refetch will
	// bring the record.
	r, s := newTestReconciler()
	evt := push.Event{Type: enum.EventOnlineOrderConfirmed, Payload: json.RawMessage(`{"id":"ghost"}`)}
	if err := r.Apply(evt); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Fatal("phantom order materialized")
	}
}

func TestApplyRejectsBadPayloads(t *testing.T) {
	r, _ := newTestReconciler()
	tests := []struct {
		name    string
		evt     push.Event
		wantErr error
	}{
		{"garbage json", push.Event{Type: enum.EventOrderCreated, Payload: json.RawMessage(`{oops`)}, ErrBadPayload},
		{"missing id", push.Event{Type: enum.EventOrderCreated, Payload: json.RawMessage(`{}`)}, ErrMissingID},
		{"unknown type", push.Event{Type: "order.exploded", Payload: json.RawMessage(`{}`)}, ErrUnknownType},
		{"delete without id", push.Event{Type: enum.EventOrderDeleted, Payload: json.RawMessage(`{}`)}, ErrMissingID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Apply(tt.evt); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBindRoutesEvents(t *testing.T) {
	r, s := newTestReconciler()
	d := push.NewDispatcher()
	unbind := r.Bind(d)
	defer unbind()

	for i := 0; i < 3; i++ {
		o := remoteOrder(fmt.Sprintf("o%d", i))
		d.Dispatch(push.Event{Type: enum.EventOrderCreated, Payload: snapshot(t, o)})
	}
	d.Dispatch(push.Event{Type: enum.EventOrderDeleted, Payload: json.RawMessage(`{"id":"o1"}`)})

	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
}
