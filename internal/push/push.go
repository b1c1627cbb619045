// Package push is the terminal side of the push channel: a dispatcher that
// fans events out to subscribed handlers, and a websocket source feeding it.
// The channel is at-least-once and unordered; consumers must apply events
// idempotently.
package push

import (
	"encoding/json"
	"sync"
)

// Event is one push message. Payload is a full-order snapshot for order
// events, or an id envelope for deletions and confirmations.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler consumes one event.
type Handler func(Event)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Dispatcher routes events to handlers by event type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]map[int]Handler
	next     int
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for one event type (or Wildcard) and
// returns its cancel func.
func (d *Dispatcher) Subscribe(eventType string, h Handler) func() {
	d.mu.Lock()
	if d.handlers[eventType] == nil {
		d.handlers[eventType] = make(map[int]Handler)
	}
	id := d.next
	d.next++
	d.handlers[eventType][id] = h
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.handlers[eventType], id)
		d.mu.Unlock()
	}
}

// Dispatch delivers the event to every matching handler, synchronously.
func (d *Dispatcher) Dispatch(evt Event) {
	d.mu.RLock()
	fns := make([]Handler, 0, len(d.handlers[evt.Type])+len(d.handlers[Wildcard]))
	for _, h := range d.handlers[evt.Type] {
		fns = append(fns, h)
	}
	for _, h := range d.handlers[Wildcard] {
		fns = append(fns, h)
	}
	d.mu.RUnlock()
	for _, h := range fns {
		h(evt)
	}
}
