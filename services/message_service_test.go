package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/KaitoHasei/zola-backend/config"
	"github.com/KaitoHasei/zola-backend/db"
	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/models"
	"github.com/KaitoHasei/zola-backend/ws"
	"github.com/google/uuid"
)

// fakeMessageRepo mimics the transactional append: the insert also resets
// the seen flags held by the conversation fake.
type fakeMessageRepo struct {
	convRepo          *fakeConversationRepo
	messages          map[uuid.UUID][]*models.Message
	nextID            uint
	singleLatestLoads int
	batchLatestLoads  int
}

func newFakeMessageRepo(convRepo *fakeConversationRepo) *fakeMessageRepo {
	return &fakeMessageRepo{
		convRepo: convRepo,
		messages: map[uuid.UUID][]*models.Message{},
	}
}

func (r *fakeMessageRepo) AppendMessage(message *models.Message) error {
	for _, m := range r.messages[message.ConversationID] {
		if m.Cuid == message.Cuid {
			return db.ErrDuplicateCuid
		}
	}
	r.nextID++
	message.ID = r.nextID
	message.CreatedAt = time.Now()
	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], message)
	r.convRepo.resetSeen(message.ConversationID, message.UserID)
	return nil
}

func (r *fakeMessageRepo) FindMessageByCuid(conversationID uuid.UUID, cuid string) (*models.Message, error) {
	for _, m := range r.messages[conversationID] {
		if m.Cuid == cuid {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) RevokeMessage(conversationID uuid.UUID, cuid string) error {
	for _, m := range r.messages[conversationID] {
		if m.Cuid == cuid {
			m.IsRevoke = true
		}
	}
	return nil
}

func (r *fakeMessageRepo) ListMessages(conversationID uuid.UUID, page, pageSize int) ([]models.Message, error) {
	all := r.messages[conversationID]
	var visible []models.Message
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].IsRevoke {
			visible = append(visible, *all[i])
		}
	}
	start := page * pageSize
	if start >= len(visible) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(visible) {
		end = len(visible)
	}
	return visible[start:end], nil
}

func (r *fakeMessageRepo) ListMessagesByType(conversationID uuid.UUID, typeMessage string) ([]models.Message, error) {
	all := r.messages[conversationID]
	var out []models.Message
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].IsRevoke && all[i].TypeMessage == typeMessage {
			out = append(out, *all[i])
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) LatestVisibleMessage(conversationID uuid.UUID) (*models.Message, error) {
	r.singleLatestLoads++
	all := r.messages[conversationID]
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].IsRevoke {
			clone := *all[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) LatestVisibleMessages(conversationIDs []uuid.UUID) (map[uuid.UUID]*models.Message, error) {
	r.batchLatestLoads++
	latest := map[uuid.UUID]*models.Message{}
	for _, id := range conversationIDs {
		all := r.messages[id]
		for i := len(all) - 1; i >= 0; i-- {
			if !all[i].IsRevoke {
				clone := *all[i]
				latest[id] = &clone
				break
			}
		}
	}
	return latest, nil
}

func newMessageFixture(t *testing.T) (MessageService, uuid.UUID, *fakeConversationRepo, *fakeMessageRepo, *fakePublisher) {
	t.Helper()
	convRepo := newFakeConversationRepo()
	userRepo := newFakeUserRepo("alice", "bob")
	msgRepo := newFakeMessageRepo(convRepo)
	pub := &fakePublisher{}

	conv := &models.Conversation{}
	if err := convRepo.CreateConversation(conv, []string{"alice", "bob"}); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	svc := NewMessageService(msgRepo, convRepo, userRepo, pub, &config.Config{})
	return svc, conv.ID, convRepo, msgRepo, pub
}

func TestSendMessageValidation(t *testing.T) {
	svc, convID, _, _, _ := newMessageFixture(t)

	cases := []struct {
		name        string
		sender      string
		cuid        string
		content     string
		typeMessage string
		wantErr     error
	}{
		{"empty content", "alice", "c1", "", models.MessageTypeText, apiError.ErrInvalidMessage},
		{"empty cuid", "alice", "", "hi", models.MessageTypeText, apiError.ErrInvalidMessage},
		{"bad type", "alice", "c1", "hi", "SMOKE", apiError.ErrInvalidMessage},
		{"non-member", "mallory", "c1", "hi", models.MessageTypeText, apiError.ErrConversationNotExist},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SendMessage(convID, tc.sender, tc.cuid, tc.content, tc.typeMessage); err != tc.wantErr {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSendMessageAppendsAndFansOut(t *testing.T) {
	svc, convID, convRepo, _, pub := newMessageFixture(t)

	message, err := svc.SendMessage(convID, "bob", "c1", "hi", models.MessageTypeText)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if message.IsRevoke {
		t.Fatal("new messages must not be revoked")
	}

	if len(pub.convEvents) != 1 || pub.convEvents[0].event.Type != ws.EventSentMessage {
		t.Fatalf("expected one sent_message on the conversation channel, got %+v", pub.convEvents)
	}
	ev := pub.lastUserEvent(t)
	if ev.event.Type != ws.EventConversationUpdated {
		t.Fatalf("expected conversation_updated, got %s", ev.event.Type)
	}
	if len(ev.userIDs) != 2 {
		t.Fatalf("conversation_updated should reach both participants, got %v", ev.userIDs)
	}

	seen, _ := convRepo.SeenUserIDs(convID)
	if len(seen) != 1 || seen[0] != "bob" {
		t.Fatalf("seen set should reset to the sender, got %v", seen)
	}
}

func TestSendMessageDuplicateCuid(t *testing.T) {
	svc, convID, _, msgRepo, pub := newMessageFixture(t)

	first, err := svc.SendMessage(convID, "alice", "c1", "hi", models.MessageTypeText)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	eventsBefore := len(pub.convEvents)

	retried, err := svc.SendMessage(convID, "alice", "c1", "hi", models.MessageTypeText)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.ID != first.ID {
		t.Fatalf("retry should return the stored message, got id %d vs %d", retried.ID, first.ID)
	}
	if len(msgRepo.messages[convID]) != 1 {
		t.Fatalf("retry must not append twice, log has %d entries", len(msgRepo.messages[convID]))
	}
	if len(pub.convEvents) != eventsBefore {
		t.Fatal("retry must not re-broadcast")
	}

	// a different sender reusing the cuid is rejected outright
	if _, err := svc.SendMessage(convID, "bob", "c1", "hello", models.MessageTypeText); err != apiError.ErrInvalidMessage {
		t.Fatalf("want %v, got %v", apiError.ErrInvalidMessage, err)
	}
}

func TestMessageOrderPreserved(t *testing.T) {
	svc, convID, _, _, _ := newMessageFixture(t)

	for i := 0; i < 5; i++ {
		cuid := fmt.Sprintf("c%d", i)
		if _, err := svc.SendMessage(convID, "alice", cuid, fmt.Sprintf("msg %d", i), models.MessageTypeText); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	messages, err := svc.ListMessages(convID, "bob", 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}
	for i := 0; i < len(messages)-1; i++ {
		if messages[i].ID < messages[i+1].ID {
			t.Fatal("messages must come back newest first in append order")
		}
	}

	paged, err := svc.ListMessages(convID, "bob", 1, 2)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(paged) != 2 || paged[0].Content != "msg 2" {
		t.Fatalf("unexpected second page: %+v", paged)
	}
}

func TestRevokeMessage(t *testing.T) {
	svc, convID, _, msgRepo, pub := newMessageFixture(t)

	if _, err := svc.SendMessage(convID, "bob", "c1", "hi", models.MessageTypeText); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := svc.RevokeMessage(convID, "c1", "alice"); err != apiError.ErrCannotRevoke {
		t.Fatalf("foreign revoke: want %v, got %v", apiError.ErrCannotRevoke, err)
	}
	if err := svc.RevokeMessage(convID, "missing", "bob"); err != apiError.ErrCannotRevoke {
		t.Fatalf("missing cuid: want %v, got %v", apiError.ErrCannotRevoke, err)
	}

	if err := svc.RevokeMessage(convID, "c1", "bob"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	messages, err := svc.ListMessages(convID, "alice", 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("revoked message must not be returned, got %+v", messages)
	}
	if latest, _ := msgRepo.LatestVisibleMessage(convID); latest != nil {
		t.Fatalf("revoked content must disappear from summaries, got %q", latest.Content)
	}

	var revokeEvents int
	for _, ev := range pub.convEvents {
		if ev.event.Type == ws.EventRevokeMessage {
			revokeEvents++
			payload := ev.event.Data.(ws.RevokeMessagePayload)
			if payload.Cuid != "c1" {
				t.Fatalf("revoke event should carry the cuid only, got %+v", payload)
			}
		}
	}
	if revokeEvents != 1 {
		t.Fatalf("expected exactly one revoke_message event, got %d", revokeEvents)
	}

	// re-revoking is a clean no-op
	eventsBefore := len(pub.convEvents)
	if err := svc.RevokeMessage(convID, "c1", "bob"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if len(pub.convEvents) != eventsBefore {
		t.Fatal("second revoke must not re-broadcast")
	}
}

func TestListImageLinksSplitsBatches(t *testing.T) {
	svc, convID, _, _, _ := newMessageFixture(t)

	if _, err := svc.SendMessage(convID, "alice", "c1", "https://s3/a.jpg,https://s3/b.jpg", models.MessageTypeImage); err != nil {
		t.Fatalf("send images: %v", err)
	}
	if _, err := svc.SendMessage(convID, "alice", "c2", "https://s3/c.jpg", models.MessageTypeImage); err != nil {
		t.Fatalf("send image: %v", err)
	}
	if _, err := svc.SendMessage(convID, "alice", "c3", "not an image", models.MessageTypeText); err != nil {
		t.Fatalf("send text: %v", err)
	}

	links, err := svc.ListImageLinks(convID, "bob")
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("expected 3 image links, got %v", links)
	}

	if _, err := svc.ListImageLinks(convID, "mallory"); err != apiError.ErrConversationNotExist {
		t.Fatalf("non-member gallery: want %v, got %v", apiError.ErrConversationNotExist, err)
	}
}
