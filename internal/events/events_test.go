package events

import (
	"encoding/json"
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventMenuInserted, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	if err := bus.PublishJSON(EventMenuInserted, MenuChangedPayload{Table: "menu_items", Rows: 3}); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventMenuInserted {
		t.Errorf("expected type %s, got %s", EventMenuInserted, received.Type)
	}

	var decoded MenuChangedPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.Rows != 3 || decoded.Table != "menu_items" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	var kept, removed int

	bus.Subscribe(EventMenuCleared, func(_ *Event) error { kept++; return nil })
	sub := bus.Subscribe(EventMenuCleared, func(_ *Event) error { removed++; return nil })

	bus.Publish(&Event{Type: EventMenuCleared})
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	bus.Publish(&Event{Type: EventMenuCleared})

	if kept != 2 {
		t.Errorf("expected remaining handler called twice, got %d", kept)
	}
	if removed != 1 {
		t.Errorf("expected removed handler called once, got %d", removed)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("nil bus PublishJSON failed: %v", err)
	}
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent("type", MenuChangedPayload{Rows: 7})
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	if _, err := NewJSONEvent("type", make(chan int)); err == nil {
		t.Errorf("expected marshal error for channel payload")
	}
}
