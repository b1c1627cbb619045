// Package reconcile applies push-channel events to the local order
// collection. The strategy is snapshot-replace: incoming order events carry
// the whole document and overwrite the local record wholesale. That makes
// every apply idempotent and order-insensitive, at the cost of requiring
// snapshots to always be complete.
package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/kainan-pos/terminal/internal/order"
	"github.com/kainan-pos/terminal/internal/push"
	"github.com/kainan-pos/terminal/internal/store"
	"github.com/rs/zerolog"
)

// Errors returned by Apply.
var (
	ErrBadPayload  = errors.New("malformed event payload")
	ErrMissingID   = errors.New("event payload has no order id")
	ErrUnknownType = errors.New("unknown event type")
)

// idEnvelope is the payload of events that carry only an order reference.
type idEnvelope struct {
	ID string `json:"id"`
}

// Reconciler merges events into a Store.
type Reconciler struct {
	store *store.Store
	log   zerolog.Logger
}

// New creates a Reconciler over the given store.
func New(s *store.Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store: s,
		log:   log.With().Str("component", "reconcile").Logger(),
	}
}

// Bind subscribes the reconciler to every event type it understands.
// It returns a cancel func releasing all subscriptions.
func (r *Reconciler) Bind(d *push.Dispatcher) func() {
	cancels := make([]func(), 0, 5)
	for _, t := range []string{
		enum.EventOrderCreated,
		enum.EventOrderUpdated,
		enum.EventOrderDeleted,
		enum.EventOnlineOrderCreated,
		enum.EventOnlineOrderConfirmed,
	} {
		cancels = append(cancels, d.Subscribe(t, func(evt push.Event) {
			if err := r.Apply(evt); err != nil {
				r.log.Warn().Err(err).Str("type", evt.Type).Msg("dropped event")
			}
		}))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// Apply merges one event. Redelivery is harmless, and an update for an id
// the terminal has never seen behaves exactly like a create.
func (r *Reconciler) Apply(evt push.Event) error {
	switch evt.Type {
	case enum.EventOrderCreated, enum.EventOrderUpdated, enum.EventOnlineOrderCreated:
		return r.applySnapshot(evt.Payload)
	case enum.EventOrderDeleted:
		return r.applyDelete(evt.Payload)
	case enum.EventOnlineOrderConfirmed:
		return r.applyConfirmed(evt.Payload)
	}
	return fmt.Errorf("%w: %s", ErrUnknownType, evt.Type)
}

func (r *Reconciler) applySnapshot(payload json.RawMessage) error {
	var o order.Order
	if err := json.Unmarshal(payload, &o); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if o.ID == "" {
		return ErrMissingID
	}
	order.Normalize(&o)
	r.store.Put(&o, true)
	return nil
}

func (r *Reconciler) applyDelete(payload json.RawMessage) error {
	var env idEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if env.ID == "" {
		return ErrMissingID
	}
	// Absent id: already gone, or never seen. Either way a no-op.
	r.store.Delete(env.ID)
	return nil
}

// applyConfirmed flips the online payment status of a known order. The
// envelope may be a bare id or a full snapshot; a snapshot wins.
func (r *Reconciler) applyConfirmed(payload json.RawMessage) error {
	var o order.Order
	if err := json.Unmarshal(payload, &o); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if o.ID == "" {
		return ErrMissingID
	}
	if len(o.Items) > 0 {
		order.Normalize(&o)
		r.store.Put(&o, true)
		return nil
	}
	local, ok := r.store.Get(o.ID)
	if !ok {
		// Confirmation for an order this terminal never received; the next
		// refetch will bring the full record.
		return nil
	}
	local.OnlinePaymentStatus = enum.OnlinePaymentConfirmed
	r.store.Put(local, true)
	return nil
}
