package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/models"
	"github.com/KaitoHasei/zola-backend/server/response"
)

func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		var req models.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", 0, nil, apiError.ErrInvalidMessage)
			return
		}

		message, err := s.MessageService.SendMessage(conversationID, userID, req.Cuid, req.Content, models.MessageTypeText)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, message, nil)
	}
}

// handleListMessages returns the visible log newest first; an optional
// ?type= filter narrows to one message type for media galleries.
func (s *Server) handleListMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		if typeMessage := c.Query("type"); typeMessage != "" {
			messages, err := s.MessageService.ListMessagesByType(conversationID, userID, typeMessage)
			if err != nil {
				response.JSON(c, "", 0, nil, err)
				return
			}
			response.JSON(c, "", http.StatusOK, gin.H{"id": conversationID, "message": messages}, nil)
			return
		}

		page, pageSize := pagination(c)
		messages, err := s.MessageService.ListMessages(conversationID, userID, page, pageSize)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"id": conversationID, "message": messages}, nil)
	}
}

func (s *Server) handleRevokeMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)
		cuid := c.Param("messageCuid")

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		if err := s.MessageService.RevokeMessage(conversationID, cuid, userID); err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, nil, nil)
	}
}

// handleSendImages accepts up to six multipart "images", uploads each and
// appends one IMAGE message whose content joins the urls with ",".
func (s *Server) handleSendImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		// membership is settled before any blob lands in S3
		if err := s.ensureMember(conversationID, userID); err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			response.JSON(c, "", 0, nil, apiError.ErrEmptyFile)
			return
		}
		photos := form.File["images"]
		if len(photos) == 0 {
			response.JSON(c, "", 0, nil, apiError.ErrEmptyFile)
			return
		}
		if len(photos) > 6 {
			photos = photos[:6]
		}

		contentURL := ""
		for i, photo := range photos {
			url, err := s.MediaService.UploadConversationImage(photo, conversationID, userID)
			if err != nil {
				response.JSON(c, "", 0, nil, apiError.ErrInternalServerError)
				return
			}
			if i == 0 {
				contentURL = url
			} else {
				contentURL = contentURL + "," + url
			}
		}

		cuid := c.PostForm("cuid")
		message, err := s.MessageService.SendMessage(conversationID, userID, cuid, contentURL, models.MessageTypeImage)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, message, nil)
	}
}

func (s *Server) handleGetConversationImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		links, err := s.MessageService.ListImageLinks(conversationID, userID)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, links, nil)
	}
}

// handleSendFile uploads a single "file" attachment; video MIME types are
// recorded as VIDEO messages, everything else as FILE.
func (s *Server) handleSendFile() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		if err := s.ensureMember(conversationID, userID); err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil || fileHeader == nil {
			response.JSON(c, "", 0, nil, apiError.ErrEmptyFile)
			return
		}

		contentURL, typeMessage, err := s.MediaService.UploadConversationFile(fileHeader, conversationID)
		if err != nil {
			response.JSON(c, "", 0, nil, apiError.ErrInternalServerError)
			return
		}

		cuid := c.PostForm("cuid")
		message, err := s.MessageService.SendMessage(conversationID, userID, cuid, contentURL, typeMessage)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, message, nil)
	}
}

func (s *Server) handleStartCall() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(string)

		conversationID, err := conversationIDParam(c)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		var req models.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", 0, nil, apiError.ErrInvalidMessage)
			return
		}

		message, err := s.MessageService.SendMessage(conversationID, userID, req.Cuid, req.Content, models.MessageTypeCall)
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, message, nil)
	}
}
