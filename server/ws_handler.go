package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/server/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// cross-origin checks are handled by the CORS layer for HTTP; the
	// handshake is gated on the token instead of the Origin header
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleUserSocket joins the connection to the user's personal channel.
// Browsers can't set Authorization on a websocket handshake, so the token
// travels as a query parameter.
func (s *Server) handleUserSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.authenticate(c.Query("token"))
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}

		s.Hub.Serve(conn, user.ID, uuid.Nil)
	}
}

// handleConversationSocket joins an open conversation view's channel. The
// caller must be a participant of the conversation named in the handshake.
func (s *Server) handleConversationSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.authenticate(c.Query("token"))
		if err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		conversationID, err := uuid.Parse(c.Query("conversationId"))
		if err != nil {
			response.JSON(c, "", 0, nil, apiError.ErrInvalidConversationID)
			return
		}

		if err := s.ensureMember(conversationID, user.ID); err != nil {
			response.JSON(c, "", 0, nil, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}

		s.Hub.Serve(conn, user.ID, conversationID)
	}
}
