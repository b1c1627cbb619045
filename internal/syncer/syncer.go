// Package syncer coordinates local mutations with the remote backing store.
// Every mutation is applied to the local store first, optimistically, then
// pushed to the remote asynchronously. A failed push never rolls the local
// state back; it flags the terminal offline and leaves repair to the
// periodic refetch.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/kainan-pos/terminal/internal/order"
	"github.com/kainan-pos/terminal/internal/payment"
	"github.com/kainan-pos/terminal/internal/remote"
	"github.com/kainan-pos/terminal/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrOrderNotFound is returned when a mutation targets an order the local
// store does not hold.
var ErrOrderNotFound = errors.New("order not found")

// ErrEmptyNote is returned when a note carries no text.
var ErrEmptyNote = errors.New("note text is empty")

// pushTimeout caps one asynchronous remote attempt.
const pushTimeout = 15 * time.Second

// Remote is the slice of the backing-store client the syncer needs.
type Remote interface {
	CreateOrder(ctx context.Context, o *order.Order) (*order.Order, error)
	UpdateOrder(ctx context.Context, id string, fields map[string]any) (*order.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, f remote.Filters) ([]order.Order, error)
	AppendItems(ctx context.Context, orderID, batchID string, items []order.Item, at time.Time, actor remote.Attribution) (*order.Order, error)
	DeleteAppendedOrder(ctx context.Context, orderID, appendedID string) error
	DeleteItem(ctx context.Context, orderID, appendedID, itemID, justification string, actor remote.Attribution) error
	UpdateItemStatus(ctx context.Context, orderID, itemID, status string, actor remote.Attribution) (*order.Order, error)
	UpdateAppendedItemStatus(ctx context.Context, orderID, appendedID, itemID, status string, actor remote.Attribution) (*order.Order, error)
	TogglePayment(ctx context.Context, orderID string, req remote.TogglePayment) (*order.Order, error)
	ToggleAppendedPayment(ctx context.Context, orderID, appendedID string, paid bool, method string) (*order.Order, error)
	ConfirmOnlinePayment(ctx context.Context, orderID string) (*order.Order, error)
}

// Actor is the signed-in user on this terminal.
type Actor struct {
	Name  string
	Email string
	Role  string
}

func (a Actor) domain() order.Actor {
	return order.Actor{Name: a.Name, Email: a.Email, Caps: enum.CapabilitiesForRole(a.Role)}
}

func (a Actor) wire() remote.Attribution {
	return remote.Attribution{Name: a.Name, Email: a.Email, Role: a.Role}
}

// Notice reports the outcome of a remote push that did not go through.
type Notice struct {
	OrderID   string
	Operation string
	Err       error
}

// Syncer applies mutations locally and mirrors them to the remote store.
type Syncer struct {
	store  *store.Store
	remote Remote
	branch string
	log    zerolog.Logger

	online   atomic.Bool
	onNotice func(Notice)
	wg       sync.WaitGroup
}

// New creates a syncer. onNotice may be nil; branch scopes the refetch.
func New(s *store.Store, r Remote, branch string, onNotice func(Notice), log zerolog.Logger) *Syncer {
	sy := &Syncer{
		store:    s,
		remote:   r,
		branch:   branch,
		onNotice: onNotice,
		log:      log.With().Str("component", "syncer").Logger(),
	}
	sy.online.Store(true)
	return sy
}

// Online reports whether the last remote interaction succeeded.
func (s *Syncer) Online() bool { return s.online.Load() }

// Wait blocks until all in-flight pushes finish. Call on shutdown.
func (s *Syncer) Wait() { s.wg.Wait() }

func (s *Syncer) setOnline(ok bool) {
	if s.online.Swap(ok) != ok {
		if ok {
			s.log.Info().Msg("back online")
		} else {
			s.log.Warn().Msg("remote store unreachable, continuing offline")
		}
	}
}

func (s *Syncer) notify(n Notice) {
	if s.onNotice != nil {
		s.onNotice(n)
	}
}

// push runs one remote attempt on its own goroutine with a detached
// context, so a cancelled UI request never aborts the mirror write.
func (s *Syncer) push(orderID, op string, fn func(ctx context.Context) (*order.Order, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		snap, err := fn(ctx)
		if err != nil {
			s.setOnline(!errors.Is(err, remote.ErrUnavailable))
			s.log.Warn().Err(err).
				Str("order_id", orderID).
				Str("operation", op).
				Str("outcome", remote.StatusCodeOf(err)).
				Msg("remote push failed")
			s.notify(Notice{OrderID: orderID, Operation: op, Err: err})
			return
		}
		s.setOnline(true)
		if snap != nil {
			order.Normalize(snap)
			s.store.Put(snap, true)
		} else {
			s.store.MarkSynced(orderID)
		}
	}()
}

// --- Mutations ---

// CreateOrder registers a new order locally and mirrors it to the remote.
func (s *Syncer) CreateOrder(o *order.Order, actor Actor) (*order.Order, error) {
	if len(o.Items) == 0 {
		return nil, order.ErrNoItems
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.Branch == "" {
		o.Branch = s.branch
	}
	o.TakenBy = actor.Name
	o.TakenByEmail = actor.Email
	order.Normalize(o)

	s.store.Put(o, false)
	snap := o.Clone()
	s.push(o.ID, "createOrder", func(ctx context.Context) (*order.Order, error) {
		return s.remote.CreateOrder(ctx, snap)
	})
	return o, nil
}

// UpdateOrder patches top-level fields of an order. The patch is applied
// locally by JSON merge so local and remote read the same document shape.
func (s *Syncer) UpdateOrder(id string, fields map[string]any) (*order.Order, error) {
	local, ok := s.store.Get(id)
	if !ok {
		return nil, ErrOrderNotFound
	}
	merged, err := order.MergeFields(local, fields)
	if err != nil {
		return nil, err
	}
	order.Normalize(merged)
	s.store.Put(merged, false)
	s.push(id, "updateOrder", func(ctx context.Context) (*order.Order, error) {
		return s.remote.UpdateOrder(ctx, id, fields)
	})
	return merged, nil
}

// AddNote attaches a free-text note to an order, attributed to the actor.
// Notes ride the order document, so the remote mirror is a field patch.
func (s *Syncer) AddNote(orderID, text string, actor Actor) (*order.Order, error) {
	if text == "" {
		return nil, ErrEmptyNote
	}
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	local.Notes = append(local.Notes, order.Note{Text: text, Author: actor.Name, CreatedAt: time.Now()})
	s.store.Put(local, false)
	notes := append([]order.Note(nil), local.Notes...)
	s.push(orderID, "updateOrder", func(ctx context.Context) (*order.Order, error) {
		return s.remote.UpdateOrder(ctx, orderID, map[string]any{"notes": notes})
	})
	return local, nil
}

// DeleteOrder removes an order. Orders with any item beyond pending cannot
// be deleted.
func (s *Syncer) DeleteOrder(id string) error {
	local, ok := s.store.Get(id)
	if !ok {
		return ErrOrderNotFound
	}
	if !order.CanDeleteOrder(local) {
		return order.ErrNotDeletable
	}
	s.store.Delete(id)
	s.push(id, "deleteOrder", func(ctx context.Context) (*order.Order, error) {
		return nil, s.remote.DeleteOrder(ctx, id)
	})
	return nil
}

// AppendItems attaches a post-submission batch to an order.
func (s *Syncer) AppendItems(orderID string, items []order.Item, actor Actor) (*order.Order, error) {
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	now := time.Now()
	batch, err := order.AppendItems(local, items, now)
	if err != nil {
		return nil, err
	}
	s.store.Put(local, false)
	// The batch keeps its local identity on the remote, so later settle and
	// delete calls resolve against either copy.
	batchID, items := batch.ID, batch.Items
	s.push(orderID, "appendItems", func(ctx context.Context) (*order.Order, error) {
		return s.remote.AppendItems(ctx, orderID, batchID, items, now, actor.wire())
	})
	return local, nil
}

// DeleteAppendedOrder removes one appended batch when all its items are
// still pending.
func (s *Syncer) DeleteAppendedOrder(orderID, appendedID string) error {
	local, ok := s.store.Get(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	if err := order.DeleteAppended(local, appendedID); err != nil {
		return err
	}
	s.store.Put(local, false)
	s.push(orderID, "deleteAppendedOrder", func(ctx context.Context) (*order.Order, error) {
		return nil, s.remote.DeleteAppendedOrder(ctx, orderID, appendedID)
	})
	return nil
}

// DeleteItem removes one item; appendedID is empty for main-order items.
// Items past pending require a justification, recorded as an order note.
func (s *Syncer) DeleteItem(orderID, appendedID, itemID, justification string, actor Actor) (*order.Order, error) {
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	if err := order.DeleteItem(local, appendedID, itemID, justification, actor.domain(), time.Now()); err != nil {
		return nil, err
	}
	s.store.Put(local, false)
	s.push(orderID, "deleteItem", func(ctx context.Context) (*order.Order, error) {
		return nil, s.remote.DeleteItem(ctx, orderID, appendedID, itemID, justification, actor.wire())
	})
	return local, nil
}

// AdvanceItem moves one item to the given status; appendedID is empty for
// main-order items. When the last outstanding item reaches served, the
// order's completion timestamp is stamped.
func (s *Syncer) AdvanceItem(orderID, appendedID, itemID, to string, actor Actor) (*order.Order, error) {
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	item := local.FindItem(appendedID, itemID)
	if item == nil {
		return nil, order.ErrItemNotFound
	}
	now := time.Now()
	if err := order.AdvanceItem(item, to, actor.domain(), now); err != nil {
		return nil, err
	}
	local.StampAllServed(now)
	s.store.Put(local, false)
	s.pushItemStatus(orderID, appendedID, itemID, to, actor)
	return local, nil
}

// ResetItem sends a served item back to pending; order takers only.
func (s *Syncer) ResetItem(orderID, appendedID, itemID string, actor Actor) (*order.Order, error) {
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	item := local.FindItem(appendedID, itemID)
	if item == nil {
		return nil, order.ErrItemNotFound
	}
	if err := order.ResetItem(item, actor.domain()); err != nil {
		return nil, err
	}
	local.AllItemsServedAt = nil
	s.store.Put(local, false)
	s.pushItemStatus(orderID, appendedID, itemID, enum.StatusPending, actor)
	return local, nil
}

func (s *Syncer) pushItemStatus(orderID, appendedID, itemID, status string, actor Actor) {
	s.push(orderID, "updateItemStatus", func(ctx context.Context) (*order.Order, error) {
		if appendedID == "" {
			return s.remote.UpdateItemStatus(ctx, orderID, itemID, status, actor.wire())
		}
		return s.remote.UpdateAppendedItemStatus(ctx, orderID, appendedID, itemID, status, actor.wire())
	})
}

// SettlePayment records a single-method payment on the main order, or
// reverts it when paid is false.
func (s *Syncer) SettlePayment(orderID string, paid bool, method string, amount decimal.NullDecimal) (*order.Order, error) {
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	if paid {
		unit := payment.ItemsTotal(local.Items)
		if err := payment.MarkPaid(&local.Payment, unit, method, amount); err != nil {
			return nil, err
		}
	} else {
		payment.MarkUnpaid(&local.Payment)
	}
	s.store.Put(local, false)
	s.push(orderID, "togglePayment", func(ctx context.Context) (*order.Order, error) {
		return s.remote.TogglePayment(ctx, orderID, remote.TogglePayment{Paid: paid, Method: method, Received: amount})
	})
	return local, nil
}

// SettleSplitPayment settles the whole order balance across cash and
// GCash. The two parts must sum exactly to the outstanding balance.
func (s *Syncer) SettleSplitPayment(orderID string, cash, gcash, received decimal.Decimal) (*order.Order, error) {
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	if err := payment.MarkSplitPaid(local, cash, gcash, received); err != nil {
		return nil, err
	}
	s.store.Put(local, false)
	s.push(orderID, "togglePayment", func(ctx context.Context) (*order.Order, error) {
		return s.remote.TogglePayment(ctx, orderID, remote.TogglePayment{
			Paid:        true,
			Method:      enum.PaymentMethodSplit,
			CashAmount:  decimal.NullDecimal{Decimal: cash, Valid: true},
			GCashAmount: decimal.NullDecimal{Decimal: gcash, Valid: true},
			Received:    decimal.NullDecimal{Decimal: received, Valid: true},
		})
	})
	return local, nil
}

// SettleAppendedPayment records or reverts payment on one appended batch.
func (s *Syncer) SettleAppendedPayment(orderID, appendedID string, paid bool, method string) (*order.Order, error) {
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	app := local.FindAppended(appendedID)
	if app == nil {
		return nil, order.ErrAppendedNotFound
	}
	if paid {
		unit := payment.ItemsTotal(app.Items)
		if err := payment.MarkPaid(&app.Payment, unit, method, decimal.NullDecimal{}); err != nil {
			return nil, err
		}
	} else {
		payment.MarkUnpaid(&app.Payment)
	}
	s.store.Put(local, false)
	s.push(orderID, "toggleAppendedPayment", func(ctx context.Context) (*order.Order, error) {
		return s.remote.ToggleAppendedPayment(ctx, orderID, appendedID, paid, method)
	})
	return local, nil
}

// ConfirmOnlinePayment flips an online order to confirmed so the kitchen
// starts preparing it.
func (s *Syncer) ConfirmOnlinePayment(orderID string) (*order.Order, error) {
	local, ok := s.store.Get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	local.OnlinePaymentStatus = enum.OnlinePaymentConfirmed
	s.store.Put(local, false)
	s.push(orderID, "confirmOnlinePayment", func(ctx context.Context) (*order.Order, error) {
		return s.remote.ConfirmOnlinePayment(ctx, orderID)
	})
	return local, nil
}

// --- Refetch ---

// Refetch replaces the local collection with a fresh remote listing.
func (s *Syncer) Refetch(ctx context.Context) error {
	orders, err := s.remote.ListOrders(ctx, remote.Filters{Branch: s.branch})
	if err != nil {
		s.setOnline(!errors.Is(err, remote.ErrUnavailable))
		return fmt.Errorf("refetch orders: %w", err)
	}
	for i := range orders {
		order.Normalize(&orders[i])
	}
	s.store.ReplaceAll(orders)
	s.setOnline(true)
	return nil
}

// RunRefetch refetches on a fixed interval until the context ends. The
// refetch is the catch-all repair for missed push events and failed
// optimistic writes.
func (s *Syncer) RunRefetch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refetch(ctx); err != nil {
				s.log.Warn().Err(err).Msg("refetch failed")
			}
		}
	}
}
