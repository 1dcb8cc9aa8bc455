package services

import (
	"log"
	"strings"

	"github.com/KaitoHasei/zola-backend/config"
	"github.com/KaitoHasei/zola-backend/db"
	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/models"
	"github.com/KaitoHasei/zola-backend/ws"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type MessageService interface {
	SendMessage(conversationID uuid.UUID, senderID, cuid, content, typeMessage string) (*models.Message, error)
	RevokeMessage(conversationID uuid.UUID, cuid, requesterID string) error
	ListMessages(conversationID uuid.UUID, requesterID string, page, pageSize int) ([]models.Message, error)
	ListMessagesByType(conversationID uuid.UUID, requesterID, typeMessage string) ([]models.Message, error)
	ListImageLinks(conversationID uuid.UUID, requesterID string) ([]string, error)
}

type messageService struct {
	Config    *config.Config
	msgRepo   db.MessageRepository
	convRepo  db.ConversationRepository
	userRepo  db.UserRepository
	publisher ws.EventPublisher
}

func NewMessageService(msgRepo db.MessageRepository, convRepo db.ConversationRepository, userRepo db.UserRepository, publisher ws.EventPublisher, conf *config.Config) MessageService {
	return &messageService{
		Config:    conf,
		msgRepo:   msgRepo,
		convRepo:  convRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// SendMessage appends to the conversation log. The cuid comes from the
// client, so a resend after a timeout hits the duplicate check and gets the
// already-stored message back instead of appending twice.
func (s *messageService) SendMessage(conversationID uuid.UUID, senderID, cuid, content, typeMessage string) (*models.Message, error) {
	if content == "" || cuid == "" || !models.IsValidMessageType(typeMessage) {
		return nil, apiError.ErrInvalidMessage
	}

	isMember, err := s.convRepo.IsParticipant(conversationID, senderID)
	if err != nil {
		log.Printf("SendMessage error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !isMember {
		return nil, apiError.ErrConversationNotExist
	}

	message := &models.Message{
		ConversationID: conversationID,
		Cuid:           cuid,
		UserID:         senderID,
		Content:        content,
		TypeMessage:    typeMessage,
	}
	if err := s.msgRepo.AppendMessage(message); err != nil {
		if errors.Is(err, db.ErrDuplicateCuid) {
			existing, findErr := s.msgRepo.FindMessageByCuid(conversationID, cuid)
			if findErr == nil && existing != nil && existing.UserID == senderID {
				// retry of an append that already committed
				return existing, nil
			}
			return nil, apiError.ErrInvalidMessage
		}
		log.Printf("SendMessage error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	s.publisher.PublishToConversation(conversationID, ws.Event{
		Type: ws.EventSentMessage,
		Data: ws.SentMessagePayload{ID: conversationID, Message: message},
	})
	s.publishConversationUpdated(conversationID)

	return message, nil
}

// RevokeMessage tombstones a message the requester sent. Re-revoking is a
// no-op; revoking anyone else's message is refused.
func (s *messageService) RevokeMessage(conversationID uuid.UUID, cuid, requesterID string) error {
	isMember, err := s.convRepo.IsParticipant(conversationID, requesterID)
	if err != nil {
		log.Printf("RevokeMessage error: %v", err)
		return apiError.ErrInternalServerError
	}
	if !isMember {
		return apiError.ErrConversationNotExist
	}

	message, err := s.msgRepo.FindMessageByCuid(conversationID, cuid)
	if err != nil {
		log.Printf("RevokeMessage error: %v", err)
		return apiError.ErrInternalServerError
	}
	if message == nil || message.UserID != requesterID {
		return apiError.ErrCannotRevoke
	}
	if message.IsRevoke {
		return nil
	}

	if err := s.msgRepo.RevokeMessage(conversationID, cuid); err != nil {
		log.Printf("RevokeMessage error: %v", err)
		return apiError.ErrInternalServerError
	}

	s.publisher.PublishToConversation(conversationID, ws.Event{
		Type: ws.EventRevokeMessage,
		Data: ws.RevokeMessagePayload{ID: conversationID, Cuid: cuid},
	})
	return nil
}

func (s *messageService) ListMessages(conversationID uuid.UUID, requesterID string, page, pageSize int) ([]models.Message, error) {
	isMember, err := s.convRepo.IsParticipant(conversationID, requesterID)
	if err != nil {
		log.Printf("ListMessages error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !isMember {
		return nil, apiError.ErrConversationNotExist
	}

	messages, err := s.msgRepo.ListMessages(conversationID, page, pageSize)
	if err != nil {
		log.Printf("ListMessages error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return messages, nil
}

func (s *messageService) ListMessagesByType(conversationID uuid.UUID, requesterID, typeMessage string) ([]models.Message, error) {
	if !models.IsValidMessageType(typeMessage) {
		return nil, apiError.ErrInvalidParams
	}
	isMember, err := s.convRepo.IsParticipant(conversationID, requesterID)
	if err != nil {
		log.Printf("ListMessagesByType error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !isMember {
		return nil, apiError.ErrConversationNotExist
	}

	messages, err := s.msgRepo.ListMessagesByType(conversationID, typeMessage)
	if err != nil {
		log.Printf("ListMessagesByType error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return messages, nil
}

// ListImageLinks flattens IMAGE messages into individual URLs; batched sends
// store their upload locations joined by ",".
func (s *messageService) ListImageLinks(conversationID uuid.UUID, requesterID string) ([]string, error) {
	messages, err := s.ListMessagesByType(conversationID, requesterID, models.MessageTypeImage)
	if err != nil {
		return nil, err
	}
	links := []string{}
	for i := range messages {
		for _, link := range strings.Split(messages[i].Content, ",") {
			if link != "" {
				links = append(links, link)
			}
		}
	}
	return links, nil
}

func (s *messageService) publishConversationUpdated(conversationID uuid.UUID) {
	conversation, err := s.convRepo.FindConversationByID(conversationID)
	if err != nil || conversation == nil {
		log.Printf("publishConversationUpdated error: %v", err)
		return
	}

	participantIDs := make([]string, 0, len(conversation.Participants))
	seen := make([]string, 0, len(conversation.Participants))
	for _, p := range conversation.Participants {
		participantIDs = append(participantIDs, p.UserID)
		if p.Seen {
			seen = append(seen, p.UserID)
		}
	}
	users, err := s.userRepo.FindUsersByIDs(participantIDs)
	if err != nil {
		log.Printf("publishConversationUpdated error: %v", err)
		return
	}
	latest, err := s.msgRepo.LatestVisibleMessage(conversationID)
	if err != nil {
		log.Printf("publishConversationUpdated error: %v", err)
		return
	}

	summary := buildConversationSummary(conversation, participantIDs, seen, users, latest)
	s.publisher.PublishToUsers(participantIDs, ws.Event{
		Type: ws.EventConversationUpdated,
		Data: summary,
	})
}
