package server

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/kainan-pos/terminal/internal/order"
)

// ErrNotFound is returned when a document id is unknown to the store.
var ErrNotFound = errors.New("order not found")

// DocStore persists whole order documents. Writes are last-write-wins at
// document granularity: the server serializes mutations per request, and a
// full snapshot replaces whatever was stored before.
type DocStore interface {
	Upsert(ctx context.Context, o *order.Order) error
	Get(ctx context.Context, id string) (*order.Order, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]order.Order, error)
}

// MemStore is the in-memory DocStore used by tests and single-node dev
// setups.
type MemStore struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{orders: make(map[string]*order.Order)}
}

func (m *MemStore) Upsert(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *MemStore) Get(_ context.Context, id string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *MemStore) List(_ context.Context) ([]order.Order, error) {
	m.mu.RLock()
	out := make([]order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o.Clone())
	}
	m.mu.RUnlock()
	sortOrders(out)
	return out, nil
}

func sortOrders(orders []order.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
