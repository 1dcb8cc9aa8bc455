package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leebenson/conform"

	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/models"
	"github.com/KaitoHasei/zola-backend/server/response"
)

func (s *Server) handleCreateConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		var req models.CreateConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", 0, nil, apiError.ErrInvalidParams)
			return
		}
		if err := conform.Strings(&req); err != nil {
			log.Printf("handleCreateConversation conform error: %v", err)
		}

		conversationID, err := s.ConversationService.CreateConversation(userID, &req)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusCreated, gin.H{"id": conversationID}, nil)
	}
}

func (s *Server) handleListConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)
		page, pageSize := pagination(c)

		list, err := s.ConversationService.ListConversations(userID, page, pageSize)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"list": list}, nil)
	}
}

func (s *Server) handleGetConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		conversation, err := s.ConversationService.GetConversation(conversationID, userID)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, conversation, nil)
	}
}

// handleUpdateConversation renames the group and/or replaces its image; the
// image arrives as multipart field "groupImage" and is parked in S3 before
// the metadata write.
func (s *Server) handleUpdateConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		var req models.UpdateConversationRequest
		if err := c.ShouldBind(&req); err != nil {
			response.JSON(c, "", 0, nil, apiError.ErrInvalidParams)
			return
		}
		if err := conform.Strings(&req); err != nil {
			log.Printf("handleUpdateConversation conform error: %v", err)
		}

		// ownership is settled before the avatar lands in S3
		if err := s.ConversationService.AuthorizeGroupOwner(conversationID, userID); err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		groupImageURL := ""
		if fileHeader, err := c.FormFile("groupImage"); err == nil && fileHeader != nil {
			groupImageURL, err = s.MediaService.UploadGroupAvatar(fileHeader, conversationID)
			if err != nil {
				log.Printf("handleUpdateConversation upload error: %v", err)
				response.JSON(c, "", 0, nil, apiError.ErrInternalServerError)
				return
			}
		}

		conversation, err := s.ConversationService.UpdateGroupMetadata(conversationID, userID, req.GroupName, groupImageURL)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, conversation, nil)
	}
}

func (s *Server) handleAddGroupMembers() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		var req models.AddGroupMembersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", 0, nil, apiError.ErrInvalidParams)
			return
		}

		conversation, err := s.ConversationService.AddGroupMembers(conversationID, userID, req.ParticipantIds)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, conversation, nil)
	}
}

func (s *Server) handleRemoveGroupMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)
		targetUserID := c.Param("userId")

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		conversation, err := s.ConversationService.RemoveGroupMember(conversationID, userID, targetUserID)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, conversation, nil)
	}
}

func (s *Server) handleDisbandGroup() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		if err := s.ConversationService.DisbandGroup(conversationID, userID); err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, nil, nil)
	}
}

// ensureMember gates a request on conversation membership before the handler
// produces any side effect. Non-members get conversation-not-exist, so the
// response doesn't confirm the conversation is real.
func (s *Server) ensureMember(conversationID uuid.UUID, userID string) error {
	isMember, err := s.ConversationRepository.IsParticipant(conversationID, userID)
	if err != nil {
		log.Printf("membership check error: %v", err)
		return apiError.ErrInternalServerError
	}
	if !isMember {
		return apiError.ErrConversationNotExist
	}
	return nil
}

func conversationIDParam(c *gin.Context) (uuid.UUID, error) {
	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		return uuid.Nil, apiError.ErrInvalidConversationID
	}
	return conversationID, nil
}

func pagination(c *gin.Context) (int, int) {
	page := 0
	pageSize := 10
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("pageSize")); err == nil && v > 0 {
		pageSize = v
	}
	return page, pageSize
}
