package push

import (
	"encoding/json"
	"testing"
)

func TestDispatchByType(t *testing.T) {
	d := NewDispatcher()
	var created, deleted int
	d.Subscribe("order.created", func(Event) { created++ })
	d.Subscribe("order.deleted", func(Event) { deleted++ })

	d.Dispatch(Event{Type: "order.created"})
	d.Dispatch(Event{Type: "order.created"})
	d.Dispatch(Event{Type: "order.deleted"})
	d.Dispatch(Event{Type: "order.unknown"})

	if created != 2 || deleted != 1 {
		t.Fatalf("created = %d deleted = %d", created, deleted)
	}
}

func TestWildcardSubscriber(t *testing.T) {
	d := NewDispatcher()
	var all int
	d.Subscribe(Wildcard, func(Event) { all++ })

	d.Dispatch(Event{Type: "order.created"})
	d.Dispatch(Event{Type: "anything.else"})

	if all != 2 {
		t.Fatalf("wildcard saw %d events, want 2", all)
	}
}

func TestSubscribeCancel(t *testing.T) {
	d := NewDispatcher()
	var n int
	cancel := d.Subscribe("order.updated", func(Event) { n++ })

	d.Dispatch(Event{Type: "order.updated"})
	cancel()
	d.Dispatch(Event{Type: "order.updated"})

	if n != 1 {
		t.Fatalf("handler ran %d times, want 1", n)
	}
}

func TestPayloadPassedThrough(t *testing.T) {
	d := NewDispatcher()
	var got json.RawMessage
	d.Subscribe("order.created", func(e Event) { got = e.Payload })

	payload := json.RawMessage(`{"id":"o1"}`)
	d.Dispatch(Event{Type: "order.created", Payload: payload})

	if string(got) != `{"id":"o1"}` {
		t.Fatalf("payload = %s", got)
	}
}
