package response

import (
	"github.com/gin-gonic/gin"

	apiError "github.com/KaitoHasei/zola-backend/errors"
)

// JSON writes the uniform envelope. Errors always serialize as
// {"error":{"code":...}} with the status the domain error carries; bare data
// is written as-is so handlers control their success shapes.
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	if err != nil {
		apiErr := apiError.Coalesce(err)
		c.JSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}
	if message == "" {
		if data == nil {
			c.Status(status)
			return
		}
		c.JSON(status, data)
		return
	}
	c.JSON(status, gin.H{"message": message, "data": data})
}
