package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDHeader carries the authenticated user set by the upstream identity provider
	UserIDHeader = "X-User-ID"

	// UserIDKey is the key used to store the user id in the context
	UserIDKey = "user_id"
)

// Identity rejects requests without a valid user id header with 401
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil || userID == uuid.Nil {
			response := gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "A valid " + UserIDHeader + " header is required",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response)
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the authenticated user from the gin context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(UserIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
