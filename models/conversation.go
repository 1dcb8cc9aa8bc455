package models

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IsGroup    bool      `gorm:"not null;default:false" json:"isGroup"`
	GroupName  string    `json:"groupName"`
	GroupImage string    `json:"groupImage"`
	GroupOwner string    `gorm:"index" json:"groupOwner"` // empty for direct conversations
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `gorm:"index" json:"updatedAt"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"-"`
}

// ConversationParticipant is one membership row. Seen doubles as the
// per-user seen flag: the conversation's userSeen set is the rows where
// Seen is true, and every append resets it to the sender alone.
type ConversationParticipant struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	ConversationID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_conversation_user;not null" json:"conversation_id"`
	UserID         string    `gorm:"uniqueIndex:idx_conversation_user;index;not null" json:"user_id"`
	Seen           bool      `gorm:"not null;default:false" json:"seen"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationSummary is the wire shape pushed on conversation_updated /
// group_created and returned by the list endpoint.
type ConversationSummary struct {
	ID             uuid.UUID     `json:"id"`
	ParticipantIds []string      `json:"participantIds"`
	Participants   []Participant `json:"participants"`
	UserSeen       []string      `json:"userSeen"`
	IsGroup        bool          `json:"isGroup"`
	GroupName      string        `json:"groupName"`
	GroupImage     string        `json:"groupImage"`
	GroupOwner     string        `json:"groupOwner"`
	LatestMessage  *Message      `json:"latestMessage,omitempty"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

type CreateConversationRequest struct {
	ParticipantIds []string `json:"participantIds"`
	GroupName      string   `json:"groupName" conform:"trim"`
}

type UpdateConversationRequest struct {
	GroupName string `form:"groupName" conform:"trim"`
}

type AddGroupMembersRequest struct {
	ParticipantIds []string `json:"participantIds"`
}
