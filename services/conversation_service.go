package services

import (
	"log"

	"github.com/KaitoHasei/zola-backend/config"
	"github.com/KaitoHasei/zola-backend/db"
	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/models"
	"github.com/KaitoHasei/zola-backend/ws"
	"github.com/google/uuid"
)

// ConversationService owns the conversation lifecycle: direct-pair dedup,
// group creation, membership changes, metadata and disbandment. Every
// mutation fans out to the current post-mutation participants.
type ConversationService interface {
	CreateConversation(requesterID string, request *models.CreateConversationRequest) (uuid.UUID, error)
	GetConversation(conversationID uuid.UUID, requesterID string) (*models.ConversationSummary, error)
	ListConversations(requesterID string, page, pageSize int) ([]models.ConversationSummary, error)
	AuthorizeGroupOwner(conversationID uuid.UUID, requesterID string) error
	UpdateGroupMetadata(conversationID uuid.UUID, requesterID, groupName, groupImage string) (*models.ConversationSummary, error)
	AddGroupMembers(conversationID uuid.UUID, requesterID string, participantIDs []string) (*models.ConversationSummary, error)
	RemoveGroupMember(conversationID uuid.UUID, requesterID, targetUserID string) (*models.ConversationSummary, error)
	DisbandGroup(conversationID uuid.UUID, requesterID string) error
}

type conversationService struct {
	Config    *config.Config
	convRepo  db.ConversationRepository
	userRepo  db.UserRepository
	msgRepo   db.MessageRepository
	publisher ws.EventPublisher
}

func NewConversationService(convRepo db.ConversationRepository, userRepo db.UserRepository, msgRepo db.MessageRepository, publisher ws.EventPublisher, conf *config.Config) ConversationService {
	return &conversationService{
		Config:    conf,
		convRepo:  convRepo,
		userRepo:  userRepo,
		msgRepo:   msgRepo,
		publisher: publisher,
	}
}

// CreateConversation handles both shapes of POST /conversations: a single
// participant id opens (or returns) the direct conversation with that peer,
// more than one creates a group owned by the requester. The requester's own
// id and repeated ids are stripped first; membership is a set.
func (s *conversationService) CreateConversation(requesterID string, request *models.CreateConversationRequest) (uuid.UUID, error) {
	seen := map[string]bool{}
	participantIDs := make([]string, 0, len(request.ParticipantIds))
	for _, id := range request.ParticipantIds {
		if id == requesterID || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		participantIDs = append(participantIDs, id)
	}
	if len(participantIDs) == 0 {
		return uuid.Nil, apiError.ErrInvalidParams
	}

	if len(participantIDs) == 1 {
		return s.createOrGetDirect(requesterID, participantIDs[0])
	}
	return s.createGroup(requesterID, participantIDs, request.GroupName)
}

func (s *conversationService) createOrGetDirect(requesterID, peerID string) (uuid.UUID, error) {
	peer, err := s.userRepo.FindUserByID(peerID)
	if err != nil {
		log.Printf("createOrGetDirect error: %v", err)
		return uuid.Nil, apiError.ErrInternalServerError
	}
	if peer == nil {
		return uuid.Nil, apiError.ErrInvalidParticipant
	}

	existing, err := s.convRepo.FindDirectConversation(requesterID, peerID)
	if err != nil {
		log.Printf("createOrGetDirect error: %v", err)
		return uuid.Nil, apiError.ErrInternalServerError
	}
	if existing != nil {
		return existing.ID, nil
	}

	conversation := &models.Conversation{}
	if err := s.convRepo.CreateConversation(conversation, []string{requesterID, peerID}); err != nil {
		log.Printf("createOrGetDirect error: %v", err)
		return uuid.Nil, apiError.ErrInternalServerError
	}
	return conversation.ID, nil
}

func (s *conversationService) createGroup(requesterID string, memberIDs []string, groupName string) (uuid.UUID, error) {
	conversation := &models.Conversation{
		IsGroup:    true,
		GroupName:  groupName,
		GroupOwner: requesterID,
	}
	participantIDs := append([]string{requesterID}, memberIDs...)
	if err := s.convRepo.CreateConversation(conversation, participantIDs); err != nil {
		log.Printf("createGroup error: %v", err)
		return uuid.Nil, apiError.ErrInternalServerError
	}

	if summary, err := s.summarize(conversation.ID); err == nil {
		s.publisher.PublishToUsers(summary.ParticipantIds, ws.Event{
			Type: ws.EventGroupCreated,
			Data: summary,
		})
	}
	return conversation.ID, nil
}

func (s *conversationService) GetConversation(conversationID uuid.UUID, requesterID string) (*models.ConversationSummary, error) {
	isMember, err := s.convRepo.IsParticipant(conversationID, requesterID)
	if err != nil {
		log.Printf("GetConversation error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !isMember {
		return nil, apiError.ErrConversationNotExist
	}
	summary, err := s.summarize(conversationID)
	if err != nil {
		log.Printf("GetConversation error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return summary, nil
}

func (s *conversationService) ListConversations(requesterID string, page, pageSize int) ([]models.ConversationSummary, error) {
	conversations, err := s.convRepo.ListUserConversations(requesterID, page, pageSize)
	if err != nil {
		log.Printf("ListConversations error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	conversationIDs := make([]uuid.UUID, 0, len(conversations))
	for i := range conversations {
		conversationIDs = append(conversationIDs, conversations[i].ID)
	}
	// one query for every page entry's latest message
	latest, err := s.msgRepo.LatestVisibleMessages(conversationIDs)
	if err != nil {
		log.Printf("ListConversations error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		summary, err := s.summarizeLoaded(&conversations[i], latest[conversations[i].ID])
		if err != nil {
			log.Printf("ListConversations error: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// AuthorizeGroupOwner checks that the requester owns the group. Handlers
// call it before any side effect of a metadata update runs, the avatar
// upload in particular.
func (s *conversationService) AuthorizeGroupOwner(conversationID uuid.UUID, requesterID string) error {
	conversation, err := s.convRepo.FindConversationByID(conversationID)
	if err != nil {
		log.Printf("AuthorizeGroupOwner error: %v", err)
		return apiError.ErrInternalServerError
	}
	if conversation == nil {
		return apiError.ErrInvalidConversationID
	}
	if !conversation.IsGroup || conversation.GroupOwner != requesterID {
		return apiError.ErrUserHasNotPermission
	}
	return nil
}

func (s *conversationService) UpdateGroupMetadata(conversationID uuid.UUID, requesterID, groupName, groupImage string) (*models.ConversationSummary, error) {
	if err := s.AuthorizeGroupOwner(conversationID, requesterID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if groupName != "" {
		updates["group_name"] = groupName
	}
	if groupImage != "" {
		updates["group_image"] = groupImage
	}
	if len(updates) == 0 {
		return nil, apiError.ErrInvalidParams
	}

	if err := s.convRepo.UpdateGroupMetadata(conversationID, updates); err != nil {
		log.Printf("UpdateGroupMetadata error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	summary, err := s.summarize(conversationID)
	if err != nil {
		log.Printf("UpdateGroupMetadata error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	s.publisher.PublishToUsers(summary.ParticipantIds, ws.Event{
		Type: ws.EventConversationUpdated,
		Data: summary,
	})
	return summary, nil
}

// AddGroupMembers lets any current member grow the group. Ids already in the
// conversation are dropped so membership stays a set.
func (s *conversationService) AddGroupMembers(conversationID uuid.UUID, requesterID string, participantIDs []string) (*models.ConversationSummary, error) {
	conversation, err := s.convRepo.FindConversationByID(conversationID)
	if err != nil {
		log.Printf("AddGroupMembers error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if conversation == nil {
		return nil, apiError.ErrInvalidConversationID
	}
	if len(participantIDs) == 0 {
		return nil, apiError.ErrInvalidParams
	}
	if !conversation.IsGroup {
		return nil, apiError.ErrUserHasNotPermission
	}

	current := map[string]bool{}
	isMember := false
	for _, p := range conversation.Participants {
		current[p.UserID] = true
		if p.UserID == requesterID {
			isMember = true
		}
	}
	if !isMember {
		return nil, apiError.ErrConversationNotExist
	}

	newIDs := make([]string, 0, len(participantIDs))
	for _, id := range participantIDs {
		if id == "" || current[id] {
			continue
		}
		current[id] = true
		newIDs = append(newIDs, id)
	}

	if len(newIDs) > 0 {
		if err := s.convRepo.AddParticipants(conversationID, newIDs); err != nil {
			log.Printf("AddGroupMembers error: %v", err)
			return nil, apiError.ErrInternalServerError
		}
	}

	summary, err := s.summarize(conversationID)
	if err != nil {
		log.Printf("AddGroupMembers error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if len(newIDs) > 0 {
		s.publisher.PublishToUsers(summary.ParticipantIds, ws.Event{
			Type: ws.EventConversationUpdated,
			Data: summary,
		})
	}
	return summary, nil
}

// RemoveGroupMember removes targetUserID when the requester is the owner or
// is leaving on their own. Groups never shrink below three members: the
// floor check rejects the removal while exactly three remain.
func (s *conversationService) RemoveGroupMember(conversationID uuid.UUID, requesterID, targetUserID string) (*models.ConversationSummary, error) {
	conversation, err := s.convRepo.FindConversationByID(conversationID)
	if err != nil {
		log.Printf("RemoveGroupMember error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if conversation == nil {
		return nil, apiError.ErrInvalidConversationID
	}
	if !conversation.IsGroup || (targetUserID != requesterID && conversation.GroupOwner != requesterID) {
		return nil, apiError.ErrUserHasNotPermission
	}
	if len(conversation.Participants) == 3 {
		return nil, apiError.ErrMustLeastThreeMembers
	}

	if err := s.convRepo.RemoveParticipant(conversationID, targetUserID); err != nil {
		log.Printf("RemoveGroupMember error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	summary, err := s.summarize(conversationID)
	if err != nil {
		log.Printf("RemoveGroupMember error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	s.publisher.PublishToUsers(summary.ParticipantIds, ws.Event{
		Type: ws.EventConversationUpdated,
		Data: summary,
	})
	s.publisher.PublishToUsers([]string{targetUserID}, ws.Event{
		Type: ws.EventRemovedFromGroup,
		Data: ws.RemovedFromGroupPayload{ID: conversationID},
	})
	return summary, nil
}

func (s *conversationService) DisbandGroup(conversationID uuid.UUID, requesterID string) error {
	conversation, err := s.convRepo.FindConversationByID(conversationID)
	if err != nil {
		log.Printf("DisbandGroup error: %v", err)
		return apiError.ErrInternalServerError
	}
	if conversation == nil {
		return apiError.ErrInvalidConversationID
	}
	if !conversation.IsGroup || conversation.GroupOwner != requesterID {
		return apiError.ErrUserHasNotPermission
	}

	participantIDs := make([]string, 0, len(conversation.Participants))
	for _, p := range conversation.Participants {
		participantIDs = append(participantIDs, p.UserID)
	}

	if err := s.convRepo.DeleteConversation(conversationID); err != nil {
		log.Printf("DisbandGroup error: %v", err)
		return apiError.ErrInternalServerError
	}

	s.publisher.PublishToUsers(participantIDs, ws.Event{
		Type: ws.EventRemovedFromGroup,
		Data: ws.RemovedFromGroupPayload{ID: conversationID},
	})
	return nil
}

func (s *conversationService) summarize(conversationID uuid.UUID) (*models.ConversationSummary, error) {
	conversation, err := s.convRepo.FindConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, apiError.ErrInvalidConversationID
	}
	latest, err := s.msgRepo.LatestVisibleMessage(conversation.ID)
	if err != nil {
		return nil, err
	}
	return s.summarizeLoaded(conversation, latest)
}

func (s *conversationService) summarizeLoaded(conversation *models.Conversation, latest *models.Message) (*models.ConversationSummary, error) {
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
		return nil, err
	}
	return buildConversationSummary(conversation, participantIDs, seen, users, latest), nil
}

func buildConversationSummary(conversation *models.Conversation, participantIDs, seen []string, users []models.User, latest *models.Message) *models.ConversationSummary {
	participants := make([]models.Participant, 0, len(users))
	for i := range users {
		participants = append(participants, users[i].AsParticipant())
	}
	return &models.ConversationSummary{
		ID:             conversation.ID,
		ParticipantIds: participantIDs,
		Participants:   participants,
		UserSeen:       seen,
		IsGroup:        conversation.IsGroup,
		GroupName:      conversation.GroupName,
		GroupImage:     conversation.GroupImage,
		GroupOwner:     conversation.GroupOwner,
		LatestMessage:  latest,
		UpdatedAt:      conversation.UpdatedAt,
	}
}
