package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/models"
)

type stubConversationService struct {
	authorizeErr error
	updates      int
}

func (s *stubConversationService) CreateConversation(requesterID string, request *models.CreateConversationRequest) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (s *stubConversationService) GetConversation(conversationID uuid.UUID, requesterID string) (*models.ConversationSummary, error) {
	return nil, nil
}

func (s *stubConversationService) ListConversations(requesterID string, page, pageSize int) ([]models.ConversationSummary, error) {
	return nil, nil
}

func (s *stubConversationService) AuthorizeGroupOwner(conversationID uuid.UUID, requesterID string) error {
	return s.authorizeErr
}

func (s *stubConversationService) UpdateGroupMetadata(conversationID uuid.UUID, requesterID, groupName, groupImage string) (*models.ConversationSummary, error) {
	s.updates++
	return &models.ConversationSummary{ID: conversationID, GroupName: groupName, GroupImage: groupImage}, nil
}

func (s *stubConversationService) AddGroupMembers(conversationID uuid.UUID, requesterID string, participantIDs []string) (*models.ConversationSummary, error) {
	return nil, nil
}

func (s *stubConversationService) RemoveGroupMember(conversationID uuid.UUID, requesterID, targetUserID string) (*models.ConversationSummary, error) {
	return nil, nil
}

func (s *stubConversationService) DisbandGroup(conversationID uuid.UUID, requesterID string) error {
	return nil
}

func TestUpdateConversationChecksOwnerBeforeUpload(t *testing.T) {
	media := &recordingMediaService{}
	convSvc := &stubConversationService{authorizeErr: apiError.ErrUserHasNotPermission}
	s := &Server{
		ConversationService: convSvc,
		MediaService:        media,
	}
	router := newMediaTestRouter(s, "bob")

	body, contentType := multipartBody(t, "groupImage", "avatar.jpg")
	req := httptest.NewRequest(http.MethodPut, "/conversations/"+uuid.NewString(), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if !strings.Contains(rec.Body.String(), "user-has-not-permission") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if media.uploads != 0 {
		t.Fatalf("non-owner request must not reach the blob store, got %d uploads", media.uploads)
	}
	if convSvc.updates != 0 {
		t.Fatalf("non-owner request must not update metadata, got %d updates", convSvc.updates)
	}
}

func TestUpdateConversationOwnerUploadsAvatar(t *testing.T) {
	media := &recordingMediaService{}
	convSvc := &stubConversationService{}
	s := &Server{
		ConversationService: convSvc,
		MediaService:        media,
	}
	router := newMediaTestRouter(s, "alice")

	body, contentType := multipartBody(t, "groupImage", "avatar.jpg")
	req := httptest.NewRequest(http.MethodPut, "/conversations/"+uuid.NewString(), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if media.uploads != 1 {
		t.Fatalf("expected the avatar upload, got %d", media.uploads)
	}
	if convSvc.updates != 1 {
		t.Fatalf("expected one metadata update, got %d", convSvc.updates)
	}
}
