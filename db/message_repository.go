package db

import (
	"strings"
	"time"

	"github.com/KaitoHasei/zola-backend/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrDuplicateCuid reports an append reusing a cuid already present in the
// conversation. The service layer turns this into an idempotent retry when
// the sender matches.
var ErrDuplicateCuid = errors.New("duplicate message cuid")

type MessageRepository interface {
	AppendMessage(message *models.Message) error
	FindMessageByCuid(conversationID uuid.UUID, cuid string) (*models.Message, error)
	RevokeMessage(conversationID uuid.UUID, cuid string) error
	ListMessages(conversationID uuid.UUID, page, pageSize int) ([]models.Message, error)
	ListMessagesByType(conversationID uuid.UUID, typeMessage string) ([]models.Message, error)
	LatestVisibleMessage(conversationID uuid.UUID) (*models.Message, error)
	LatestVisibleMessages(conversationIDs []uuid.UUID) (map[uuid.UUID]*models.Message, error)
}

type messageRepo struct {
	DB *gorm.DB
}

func NewMessageRepo(db *GormDB) MessageRepository {
	return &messageRepo{db.DB}
}

// AppendMessage inserts the message, resets the conversation's seen set to
// the sender alone and touches the conversation's activity timestamp, all in
// one transaction. The append is an insert rather than a rewrite of the
// conversation row, so two concurrent sends both land.
func (r *messageRepo) AppendMessage(message *models.Message) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateCuid
			}
			return errors.Wrap(err, "failed to insert message")
		}
		if err := tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ?", message.ConversationID).
			Update("seen", gorm.Expr("user_id = ?", message.UserID)).Error; err != nil {
			return errors.Wrap(err, "failed to reset seen state")
		}
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			Update("updated_at", time.Now()).Error; err != nil {
			return errors.Wrap(err, "failed to touch conversation")
		}
		return nil
	})
}

func (r *messageRepo) FindMessageByCuid(conversationID uuid.UUID, cuid string) (*models.Message, error) {
	var message models.Message
	err := r.DB.
		Where("conversation_id = ? AND cuid = ?", conversationID, cuid).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find message")
	}
	return &message, nil
}

// RevokeMessage tombstones the message. List and summary queries filter on
// is_revoke, so a revoked latest message stops showing everywhere at once.
func (r *messageRepo) RevokeMessage(conversationID uuid.UUID, cuid string) error {
	err := r.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND cuid = ?", conversationID, cuid).
		Update("is_revoke", true).Error
	if err != nil {
		return errors.Wrap(err, "failed to revoke message")
	}
	return nil
}

// ListMessages returns non-revoked messages newest first. The serial id is
// the sort key: it follows creation time and keeps same-millisecond appends
// in insertion order.
func (r *messageRepo) ListMessages(conversationID uuid.UUID, page, pageSize int) ([]models.Message, error) {
	var messages []models.Message
	err := r.DB.
		Where("conversation_id = ? AND is_revoke = ?", conversationID, false).
		Order("id DESC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	return messages, nil
}

func (r *messageRepo) ListMessagesByType(conversationID uuid.UUID, typeMessage string) ([]models.Message, error) {
	var messages []models.Message
	err := r.DB.
		Where("conversation_id = ? AND type_message = ? AND is_revoke = ?", conversationID, typeMessage, false).
		Order("id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages by type")
	}
	return messages, nil
}

// LatestVisibleMessages loads the newest non-revoked message of each listed
// conversation in a single query; conversations without a visible message
// have no entry in the result.
func (r *messageRepo) LatestVisibleMessages(conversationIDs []uuid.UUID) (map[uuid.UUID]*models.Message, error) {
	latest := map[uuid.UUID]*models.Message{}
	if len(conversationIDs) == 0 {
		return latest, nil
	}
	var messages []models.Message
	err := r.DB.
		Raw(`SELECT DISTINCT ON (conversation_id) * FROM messages
			WHERE conversation_id IN ? AND is_revoke = false
			ORDER BY conversation_id, id DESC`, conversationIDs).
		Scan(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load latest messages")
	}
	for i := range messages {
		latest[messages[i].ConversationID] = &messages[i]
	}
	return latest, nil
}

func (r *messageRepo) LatestVisibleMessage(conversationID uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.DB.
		Where("conversation_id = ? AND is_revoke = ?", conversationID, false).
		Order("id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load latest message")
	}
	return &message, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// the postgres driver surfaces 23505 without translation enabled
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "idx_conversation_cuid")
}
