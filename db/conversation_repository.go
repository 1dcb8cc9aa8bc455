package db

import (
	"time"

	"github.com/KaitoHasei/zola-backend/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository interface {
	FindDirectConversation(userA, userB string) (*models.Conversation, error)
	CreateConversation(conversation *models.Conversation, participantIDs []string) error
	FindConversationByID(conversationID uuid.UUID) (*models.Conversation, error)
	ListUserConversations(userID string, page, pageSize int) ([]models.Conversation, error)
	IsParticipant(conversationID uuid.UUID, userID string) (bool, error)
	ParticipantIDs(conversationID uuid.UUID) ([]string, error)
	SeenUserIDs(conversationID uuid.UUID) ([]string, error)
	AddParticipants(conversationID uuid.UUID, userIDs []string) error
	RemoveParticipant(conversationID uuid.UUID, userID string) error
	UpdateGroupMetadata(conversationID uuid.UUID, updates map[string]interface{}) error
	DeleteConversation(conversationID uuid.UUID) error
}

type conversationRepo struct {
	DB *gorm.DB
}

func NewConversationRepo(db *GormDB) ConversationRepository {
	return &conversationRepo{db.DB}
}

// FindDirectConversation returns the non-group conversation whose member set
// is exactly {userA, userB}, or nil when none exists. Direct conversations
// always hold exactly two participants, so matching both ids is enough.
func (r *conversationRepo) FindDirectConversation(userA, userB string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.DB.
		Joins("JOIN conversation_participants p1 ON p1.conversation_id = conversations.id AND p1.user_id = ?", userA).
		Joins("JOIN conversation_participants p2 ON p2.conversation_id = conversations.id AND p2.user_id = ?", userB).
		Where("conversations.is_group = ?", false).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to query direct conversation")
	}
	return &conversation, nil
}

func (r *conversationRepo) CreateConversation(conversation *models.Conversation, participantIDs []string) error {
	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return errors.Wrap(err, "failed to create conversation")
		}
		participants := make([]models.ConversationParticipant, 0, len(participantIDs))
		for _, userID := range participantIDs {
			participants = append(participants, models.ConversationParticipant{
				ConversationID: conversation.ID,
				UserID:         userID,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return errors.Wrap(err, "failed to create participants")
		}
		return nil
	})
}

func (r *conversationRepo) FindConversationByID(conversationID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.DB.Preload("Participants").First(&conversation, "id = ?", conversationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find conversation")
	}
	return &conversation, nil
}

// ListUserConversations returns the requester's conversations ordered by
// last activity. Direct conversations that never carried a message are
// skipped; groups always show.
func (r *conversationRepo) ListUserConversations(userID string, page, pageSize int) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.DB.Preload("Participants").
		Where("EXISTS (SELECT 1 FROM conversation_participants cp WHERE cp.conversation_id = conversations.id AND cp.user_id = ?)", userID).
		Where("conversations.is_group = ? OR EXISTS (SELECT 1 FROM messages m WHERE m.conversation_id = conversations.id)", true).
		Order("conversations.updated_at DESC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&conversations).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	return conversations, nil
}

func (r *conversationRepo) IsParticipant(conversationID uuid.UUID, userID string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check membership")
	}
	return count > 0, nil
}

func (r *conversationRepo) ParticipantIDs(conversationID uuid.UUID) ([]string, error) {
	var userIDs []string
	err := r.DB.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Order("id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load participant ids")
	}
	return userIDs, nil
}

func (r *conversationRepo) SeenUserIDs(conversationID uuid.UUID) ([]string, error) {
	var userIDs []string
	err := r.DB.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND seen = ?", conversationID, true).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load seen ids")
	}
	return userIDs, nil
}

func (r *conversationRepo) AddParticipants(conversationID uuid.UUID, userIDs []string) error {
	participants := make([]models.ConversationParticipant, 0, len(userIDs))
	for _, userID := range userIDs {
		participants = append(participants, models.ConversationParticipant{
			ConversationID: conversationID,
			UserID:         userID,
		})
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participants).Error; err != nil {
			return errors.Wrap(err, "failed to add participants")
		}
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error; err != nil {
			return errors.Wrap(err, "failed to touch conversation")
		}
		return nil
	})
}

func (r *conversationRepo) RemoveParticipant(conversationID uuid.UUID, userID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Delete(&models.ConversationParticipant{}).Error; err != nil {
			return errors.Wrap(err, "failed to remove participant")
		}
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error; err != nil {
			return errors.Wrap(err, "failed to touch conversation")
		}
		return nil
	})
}

func (r *conversationRepo) UpdateGroupMetadata(conversationID uuid.UUID, updates map[string]interface{}) error {
	err := r.DB.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(updates).Error
	if err != nil {
		return errors.Wrap(err, "failed to update group metadata")
	}
	return nil
}

func (r *conversationRepo) DeleteConversation(conversationID uuid.UUID) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.Message{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete messages")
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.ConversationParticipant{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete participants")
		}
		if err := tx.Delete(&models.Conversation{}, "id = ?", conversationID).Error; err != nil {
			return errors.Wrap(err, "failed to delete conversation")
		}
		return nil
	})
}
