package server

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	apiError "github.com/KaitoHasei/zola-backend/errors"
	"github.com/KaitoHasei/zola-backend/models"
	"github.com/KaitoHasei/zola-backend/server/response"
	"github.com/KaitoHasei/zola-backend/services/jwt"
)

// Authorize validates the bearer token minted by the identity provider and
// attaches the verified user to the request context. Every conversation and
// message route sits behind it.
func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if accessToken == "" {
			respondAndAbort(c, apiError.ErrUnauthenticated)
			return
		}

		user, err := s.authenticate(accessToken)
		if err != nil {
			respondAndAbort(c, err)
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Next()
	}
}

// authenticate resolves a token to its user, shared by the HTTP gate and
// the websocket handshakes.
func (s *Server) authenticate(accessToken string) (*models.User, error) {
	claims, err := jwt.ValidateAndGetClaims(accessToken, s.Config.JWTSecret)
	if err != nil {
		return nil, apiError.ErrUnauthenticated
	}

	userID, ok := claims["id"].(string)
	if !ok || userID == "" {
		return nil, apiError.ErrUnauthenticated
	}

	user, err := s.UserRepository.FindUserByID(userID)
	if err != nil {
		log.Printf("authenticate error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if user == nil {
		return nil, apiError.ErrUnauthenticated
	}
	return user, nil
}

func getTokenFromHeader(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

func respondAndAbort(c *gin.Context, err error) {
	response.JSON(c, "", 0, nil, err)
	c.Abort()
}
