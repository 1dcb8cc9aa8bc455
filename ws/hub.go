package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks connected clients in two scopes: the personal channel keyed by
// user id, and the per-conversation channel keyed by conversation id. A user
// may hold several connections (tabs, devices); each is its own client.
type Hub struct {
	mu            sync.RWMutex
	users         map[string]map[*Client]struct{}
	conversations map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users:         map[string]map[*Client]struct{}{},
		conversations: map[uuid.UUID]map[*Client]struct{}{},
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.conversationID != uuid.Nil {
		if h.conversations[c.conversationID] == nil {
			h.conversations[c.conversationID] = map[*Client]struct{}{}
		}
		h.conversations[c.conversationID][c] = struct{}{}
		return
	}
	if h.users[c.userID] == nil {
		h.users[c.userID] = map[*Client]struct{}{}
	}
	h.users[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.conversationID != uuid.Nil {
		if set, ok := h.conversations[c.conversationID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.conversations, c.conversationID)
			}
		}
		return
	}
	if set, ok := h.users[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.userID)
		}
	}
}

// PublishToUsers pushes an event to every connection on the listed users'
// personal channels. Sends never block: a full buffer means the client is
// too slow and the event is dropped.
func (h *Hub) PublishToUsers(userIDs []string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		for c := range h.users[userID] {
			select {
			case c.send <- event:
			default:
			}
		}
	}
}

func (h *Hub) PublishToConversation(conversationID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conversations[conversationID] {
		select {
		case c.send <- event:
		default:
		}
	}
}
