package middleware

import (
	"strings"

	"eventfeed/internal/util"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// Auth requires a valid bearer token and stores the authenticated user ID
// in the request context.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.Unauthorized(c, "Authorization token required")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(token, jwtSecret)
		if err != nil {
			util.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// OptionalAuth stores the user ID when a valid token is present but lets
// anonymous requests through. Read endpoints use it so like state can be
// personalized without requiring login.
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" {
			if claims, err := util.ValidateToken(token, jwtSecret); err == nil {
				c.Set(userIDKey, claims.UserID)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user ID from the request context.
func UserID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint64)
	return userID, ok
}

// OptionalUserID returns a pointer to the user ID, nil for anonymous
// requests.
func OptionalUserID(c *gin.Context) *uint64 {
	userID, ok := UserID(c)
	if !ok {
		return nil
	}
	return &userID
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Query("token")
}
