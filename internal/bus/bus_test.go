package bus

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chat.", 10)
	defer unsub()

	sessionID := uuid.New()
	b.Publish(Event{Kind: KindChatMessage, Timestamp: time.Now(), Payload: ChatEvent{SessionID: sessionID, Text: "hello"}})

	select {
	case evt := <-ch:
		if evt.Kind != KindChatMessage {
			t.Errorf("got kind %q, want %q", evt.Kind, KindChatMessage)
		}
		payload, ok := evt.Payload.(ChatEvent)
		if !ok || payload.SessionID != sessionID {
			t.Errorf("unexpected payload: %v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("sighting.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindChatMessage})
	b.Publish(Event{Kind: KindSighting})

	select {
	case evt := <-ch:
		if evt.Kind != KindSighting {
			t.Errorf("got kind %q, want %q", evt.Kind, KindSighting)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure chat event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chat.", 10)
	unsub()

	b.Publish(Event{Kind: KindChatClosed})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chat.", 1)
	defer unsub()

	// Fill buffer.
	b.Publish(Event{Kind: KindChatMessage})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: KindChatClosed})

	evt := <-ch
	if evt.Kind != KindChatMessage {
		t.Errorf("got %q, want %q", evt.Kind, KindChatMessage)
	}
}
