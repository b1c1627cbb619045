package server

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Event is one push message broadcast to subscribed terminals.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// branchEvent routes an event to one branch room.
type branchEvent struct {
	Branch string
	Event  Event
}

// Hub maintains the set of connected terminals, roomed by branch, and fans
// events out to them. Delivery is best effort: a terminal with a full send
// buffer is dropped and left to reconnect.
type Hub struct {
	rooms map[string]map[*client]bool

	register   chan *client
	unregister chan *client
	broadcast  chan *branchEvent

	mu  sync.RWMutex
	log zerolog.Logger
}

// NewHub creates a hub. Call Run on a goroutine before serving connections.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan *branchEvent, 256),
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.branch] == nil {
				h.rooms[c.branch] = make(map[*client]bool)
			}
			h.rooms[c.branch][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[c.branch]; ok {
				if _, exists := clients[c]; exists {
					delete(clients, c)
					close(c.send)
					if len(clients) == 0 {
						delete(h.rooms, c.branch)
					}
				}
			}
			h.mu.Unlock()

		case be := <-h.broadcast:
			message, err := json.Marshal(be.Event)
			if err != nil {
				h.log.Error().Err(err).Str("type", be.Event.Type).Msg("marshal event")
				continue
			}
			h.mu.Lock()
			for c := range h.rooms[be.Branch] {
				select {
				case c.send <- message:
				default:
					// Send buffer full: the terminal is too slow, cut it
					// loose and let it reconnect.
					close(c.send)
					delete(h.rooms[be.Branch], c)
					if len(h.rooms[be.Branch]) == 0 {
						delete(h.rooms, be.Branch)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every terminal in a branch room. Payload is
// marshalled by the caller's choice of document; marshal errors drop the
// event with a log line rather than failing the request.
func (h *Hub) Broadcast(branch, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("type", eventType).Msg("marshal payload")
		return
	}
	h.broadcast <- &branchEvent{
		Branch: branch,
		Event:  Event{Type: eventType, Payload: raw},
	}
}

// ClientCount reports connected terminals in a branch room.
func (h *Hub) ClientCount(branch string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[branch])
}
