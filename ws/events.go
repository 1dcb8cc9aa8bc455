package ws

import (
	"github.com/KaitoHasei/zola-backend/models"
	"github.com/google/uuid"
)

const (
	EventSentMessage         = "sent_message"
	EventRevokeMessage       = "revoke_message"
	EventConversationUpdated = "conversation_updated"
	EventGroupCreated        = "group_created"
	EventRemovedFromGroup    = "removed_from_group"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type SentMessagePayload struct {
	ID      uuid.UUID       `json:"id"`
	Message *models.Message `json:"message"`
}

type RevokeMessagePayload struct {
	ID   uuid.UUID `json:"id"`
	Cuid string    `json:"cuid"`
}

type RemovedFromGroupPayload struct {
	ID uuid.UUID `json:"id"`
}

// EventPublisher is what the services see of the realtime layer. Delivery is
// best-effort: the hub drops events for slow or absent connections and
// clients catch up through the pull endpoints.
type EventPublisher interface {
	PublishToUsers(userIDs []string, event Event)
	PublishToConversation(conversationID uuid.UUID, event Event)
}
