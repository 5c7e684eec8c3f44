package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data.
const (
	ContextKeyUserID = "user_id"
	ContextKeyClaims = "user_claims"
)

// Middleware rejects requests without a valid bearer token and stores the
// token's claims on the context.
func Middleware(m *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, "unauthorized", "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abort(c, "unauthorized", "invalid authorization header format")
			return
		}

		claims, err := m.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				abort(c, "token_expired", "access token has expired")
				return
			}
			abort(c, "unauthorized", "invalid access token")
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func abort(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   code,
		"message": message,
	})
}

// UserID returns the authenticated user ID, or "" outside Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
