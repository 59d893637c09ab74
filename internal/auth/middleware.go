package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxAccountID   = "account_id"
	ctxDisplayName = "display_name"
)

// Middleware rejects requests without a valid bearer token and stores the
// caller's account id in the gin context.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(strings.TrimSpace(parts[0]), "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is empty"})
			return
		}

		claims, err := v.Verify(tokenString)
		if err != nil {
			msg := "Invalid or malformed token"
			if errors.Is(err, ErrTokenExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(ctxAccountID, claims.Subject)
		c.Set(ctxDisplayName, claims.Name)
		c.Next()
	}
}

// AccountID returns the authenticated account id.
func AccountID(c *gin.Context) (string, bool) {
	id := c.GetString(ctxAccountID)
	return id, id != ""
}

// DisplayName returns the display name from the caller's token, if any.
func DisplayName(c *gin.Context) string {
	return c.GetString(ctxDisplayName)
}
