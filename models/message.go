package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeText  = "TEXT"
	MessageTypeImage = "IMAGE"
	MessageTypeFile  = "FILE"
	MessageTypeVideo = "VIDEO"
	MessageTypeCall  = "CALL"
)

func IsValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeVideo, MessageTypeCall:
		return true
	}
	return false
}

// Message lives in its own table rather than embedded in the conversation
// row, so an append is a single insert and concurrent sends can't overwrite
// one another. The serial primary key preserves insertion order even when
// two messages land on the same millisecond.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	ConversationID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_conversation_cuid;index:idx_conversation_created,priority:1;not null" json:"conversation_id"`
	Cuid           string    `gorm:"uniqueIndex:idx_conversation_cuid;not null" json:"cuid"`
	UserID         string    `gorm:"index;not null" json:"userId"`
	Content        string    `gorm:"type:text" json:"content"`
	TypeMessage    string    `gorm:"not null;default:TEXT" json:"typeMessage"`
	IsRevoke       bool      `gorm:"not null;default:false" json:"isRevoke"`
	CreatedAt      time.Time `gorm:"index:idx_conversation_created,priority:2" json:"createdAt"`
}

type SendMessageRequest struct {
	Cuid    string `json:"cuid" binding:"required"`
	Content string `json:"content"`
}
