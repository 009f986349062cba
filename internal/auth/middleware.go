package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyUserID is the gin context key holding the authenticated user id
const ContextKeyUserID = "user_id"

// Middleware rejects requests without a valid bearer token
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "missing or malformed authorization header",
			})
			return
		}

		userID, err := m.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": err.Error(),
			})
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// OptionalMiddleware allows anonymous requests but sets the user id when a valid
// token is present
func OptionalMiddleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			if userID, err := m.Validate(tokenString); err == nil {
				c.Set(ContextKeyUserID, userID)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
