package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/server/response"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	allowedOrigins := []string{"http://localhost:3000"}
	if s.Config.AccessControlAllowOrigin != "" {
		allowedOrigins = []string{s.Config.AccessControlAllowOrigin}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = 32 << 20
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: 5,
	})
	limitSends := ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			response.JSON(c, "", 0, nil, apiError.New("too-many-requests", http.StatusTooManyRequests))
		},
		KeyFunc: func(c *gin.Context) string {
			if userID, exists := c.Get("userID"); exists {
				return userID.(string)
			}
			return c.ClientIP()
		},
	})

	router.GET("/ws", s.handleUserSocket())
	router.GET("/ws/chats", s.handleConversationSocket())

	apirouter := router.Group("/api/v1")
	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())

	authorized.POST("/conversations", s.handleCreateConversation())
	authorized.GET("/conversations", s.handleListConversations())
	authorized.GET("/conversations/:conversationId", s.handleGetConversation())
	authorized.PUT("/conversations/:conversationId", s.handleUpdateConversation())
	authorized.PATCH("/conversations/:conversationId", s.handleUpdateConversation())
	authorized.DELETE("/conversations/:conversationId/group", s.handleDisbandGroup())

	authorized.POST("/conversations/:conversationId/group-member", s.handleAddGroupMembers())
	authorized.DELETE("/conversations/:conversationId/group-member/:userId", s.handleRemoveGroupMember())

	authorized.GET("/conversations/:conversationId/messages", s.handleListMessages())
	authorized.POST("/conversations/:conversationId/messages", limitSends, s.handleSendMessage())
	authorized.DELETE("/conversations/:conversationId/messages/:messageCuid", s.handleRevokeMessage())

	authorized.GET("/conversations/:conversationId/images", s.handleGetConversationImages())
	authorized.POST("/conversations/:conversationId/images", limitSends, s.handleSendImages())
	authorized.POST("/conversations/:conversationId/files", limitSends, s.handleSendFile())
	authorized.POST("/conversations/:conversationId/call", limitSends, s.handleStartCall())
}
