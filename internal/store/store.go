// Package store owns the terminal's local order collection. Every terminal
// holds exactly one Store; mutations and push events are applied to it
// synchronously and views subscribe to change notifications.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kainan-pos/terminal/internal/order"
	"github.com/rs/zerolog"
)

// Change kinds delivered to subscribers.
const (
	ChangePut    = "put"
	ChangeDelete = "delete"
	ChangeReset  = "reset"
)

// Change describes one mutation of the collection. OrderID is empty for a
// wholesale reset.
type Change struct {
	Kind    string
	OrderID string
}

// Record wraps a cached order with its sync annotation: false means the
// order holds a local optimistic mutation the remote store has not
// confirmed yet. The flag is a UI hint, never a source of truth.
type Record struct {
	Order     order.Order `json:"order"`
	Synced    bool        `json:"synced"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Store is a mutex-guarded keyed collection of order records with
// subscribe/notify semantics.
type Store struct {
	mu      sync.RWMutex
	orders  map[string]*Record
	subs    map[int]func(Change)
	nextSub int
	closed  bool
	log     zerolog.Logger
}

// New creates an empty store.
func New(log zerolog.Logger) *Store {
	return &Store{
		orders: make(map[string]*Record),
		subs:   make(map[int]func(Change)),
		log:    log.With().Str("component", "store").Logger(),
	}
}

// Subscribe registers a change handler and returns its cancel func.
// Handlers run synchronously after each mutation, outside the store lock.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Put inserts or wholesale-replaces an order record.
func (s *Store) Put(o *order.Order, synced bool) {
	s.mu.Lock()
	s.orders[o.ID] = &Record{
		Order:     *o.Clone(),
		Synced:    synced,
		UpdatedAt: time.Now(),
	}
	s.mu.Unlock()
	s.notify(Change{Kind: ChangePut, OrderID: o.ID})
}

// Get returns a clone of the order, so callers can mutate freely.
func (s *Store) Get(id string) (*order.Order, bool) {
	s.mu.RLock()
	rec, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return rec.Order.Clone(), true
}

// Synced reports the sync annotation for an order; false if unknown.
func (s *Store) Synced(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.orders[id]
	return ok && rec.Synced
}

// MarkSynced flips the annotation once the remote store confirmed a write.
func (s *Store) MarkSynced(id string) {
	s.mu.Lock()
	if rec, ok := s.orders[id]; ok {
		rec.Synced = true
	}
	s.mu.Unlock()
}

// Delete removes an order if present. Deleting an absent id is a no-op, so
// redelivered deletion events stay idempotent.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.orders[id]
	if ok {
		delete(s.orders, id)
	}
	s.mu.Unlock()
	if ok {
		s.notify(Change{Kind: ChangeDelete, OrderID: id})
	}
	return ok
}

// List returns clones of every order, oldest first.
func (s *Store) List() []order.Order {
	s.mu.RLock()
	out := make([]order.Order, 0, len(s.orders))
	for _, rec := range s.orders {
		out = append(out, *rec.Order.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of cached orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// ReplaceAll swaps the whole collection for a fresh remote listing; used by
// the periodic refetch. Everything in the new set is synced by definition.
func (s *Store) ReplaceAll(orders []order.Order) {
	now := time.Now()
	next := make(map[string]*Record, len(orders))
	for i := range orders {
		o := orders[i].Clone()
		next[o.ID] = &Record{Order: *o, Synced: true, UpdatedAt: now}
	}
	s.mu.Lock()
	s.orders = next
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeReset})
}

// Export serializes the collection for best-effort continuity across
// restarts. The export is a convenience cache, not durable truth.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]Record, 0, len(s.orders))
	for _, rec := range s.orders {
		recs = append(recs, *rec)
	}
	return json.Marshal(recs)
}

// Restore loads a previous Export. Restored records are never trusted as
// synced; the next refetch reconciles them against the server.
func (s *Store) Restore(data []byte) error {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("restore cache: %w", err)
	}
	s.mu.Lock()
	for i := range recs {
		rec := recs[i]
		rec.Synced = false
		s.orders[rec.Order.ID] = &rec
	}
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeReset})
	return nil
}

// Close drops all subscribers; further notifications go nowhere.
func (s *Store) Close() {
	s.mu.Lock()
	s.subs = make(map[int]func(Change))
	s.closed = true
	s.mu.Unlock()
	s.log.Debug().Msg("store closed")
}
