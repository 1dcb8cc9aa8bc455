package ws

import (
	"testing"

	"github.com/google/uuid"
)

func newTestClient(h *Hub, userID string, conversationID uuid.UUID, buffer int) *Client {
	c := &Client{
		hub:            h,
		userID:         userID,
		conversationID: conversationID,
		send:           make(chan Event, buffer),
	}
	h.register(c)
	return c
}

func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPublishToUsersReachesAllConnections(t *testing.T) {
	h := NewHub()
	aliceTab1 := newTestClient(h, "alice", uuid.Nil, 4)
	aliceTab2 := newTestClient(h, "alice", uuid.Nil, 4)
	bob := newTestClient(h, "bob", uuid.Nil, 4)
	carol := newTestClient(h, "carol", uuid.Nil, 4)

	h.PublishToUsers([]string{"alice", "bob"}, Event{Type: EventConversationUpdated})

	for _, c := range []*Client{aliceTab1, aliceTab2, bob} {
		if got := drain(c); len(got) != 1 {
			t.Fatalf("expected 1 event for %s, got %d", c.userID, len(got))
		}
	}
	if got := drain(carol); len(got) != 0 {
		t.Fatalf("carol should not receive events, got %d", len(got))
	}
}

func TestPublishToConversationScopedToChannel(t *testing.T) {
	h := NewHub()
	convID := uuid.New()
	otherID := uuid.New()
	viewer := newTestClient(h, "alice", convID, 4)
	elsewhere := newTestClient(h, "alice", otherID, 4)
	personal := newTestClient(h, "alice", uuid.Nil, 4)

	h.PublishToConversation(convID, Event{Type: EventSentMessage})

	if got := drain(viewer); len(got) != 1 {
		t.Fatalf("expected 1 event on the open conversation, got %d", len(got))
	}
	if got := drain(elsewhere); len(got) != 0 {
		t.Fatal("other conversation channels must not receive the event")
	}
	if got := drain(personal); len(got) != 0 {
		t.Fatal("personal channel must not receive conversation-scoped events")
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	slow := newTestClient(h, "alice", uuid.Nil, 1)

	// must not block even though the buffer holds a single event
	h.PublishToUsers([]string{"alice"}, Event{Type: EventSentMessage})
	h.PublishToUsers([]string{"alice"}, Event{Type: EventSentMessage})

	if got := drain(slow); len(got) != 1 {
		t.Fatalf("expected the overflow event to be dropped, got %d", len(got))
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "alice", uuid.Nil, 4)
	h.unregister(c)

	h.PublishToUsers([]string{"alice"}, Event{Type: EventSentMessage})
	if got := drain(c); len(got) != 0 {
		t.Fatalf("unregistered client still received %d events", len(got))
	}

	convID := uuid.New()
	cc := newTestClient(h, "alice", convID, 4)
	h.unregister(cc)
	h.PublishToConversation(convID, Event{Type: EventSentMessage})
	if got := drain(cc); len(got) != 0 {
		t.Fatal("unregistered conversation client still received events")
	}
}
