package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockHubClient creates a client without a real websocket connection.
func mockHubClient(hub *Hub, branch string) *client {
	return &client{
		hub:    hub,
		branch: branch,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	c := mockHubClient(hub, "main")
	hub.register <- c
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount("main") != 1 {
		t.Fatal("client not registered in branch room")
	}

	hub.unregister <- c
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount("main") != 0 {
		t.Fatal("branch room not cleaned up after last client left")
	}
}

func TestBroadcastRoomIsolation(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	mainClient := mockHubClient(hub, "main")
	annexClient := mockHubClient(hub, "annex")
	hub.register <- mainClient
	hub.register <- annexClient
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("main", "order.created", map[string]string{"id": "o1"})

	select {
	case msg := <-mainClient.send:
		var evt Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if evt.Type != "order.created" {
			t.Fatalf("type = %s", evt.Type)
		}
		if string(evt.Payload) != `{"id":"o1"}` {
			t.Fatalf("payload = %s", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("main client did not receive broadcast")
	}

	select {
	case <-annexClient.send:
		t.Fatal("annex client received another branch's event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastFanout(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	clients := []*client{
		mockHubClient(hub, "main"),
		mockHubClient(hub, "main"),
		mockHubClient(hub, "main"),
	}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("main", "order.updated", map[string]string{"id": "o1"})

	for i, c := range clients {
		select {
		case msg := <-c.send:
			var evt Event
			if err := json.Unmarshal(msg, &evt); err != nil {
				t.Fatalf("client %d: %v", i, err)
			}
			if evt.Type != "order.updated" {
				t.Fatalf("client %d: type = %s", i, evt.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client %d did not receive broadcast", i)
		}
	}
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	c := mockHubClient(hub, "main")
	hub.register <- c
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("ghost-branch", "order.created", map[string]string{"id": "o1"})

	select {
	case <-c.send:
		t.Fatal("client received event for an empty room")
	case <-time.After(50 * time.Millisecond):
	}
}
