package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// AdminContextKey is the Gin context key for the authenticated admin's username
	AdminContextKey = "admin"
	// ClaimsContextKey is the Gin context key for the verified api_key claims
	ClaimsContextKey = "claims"
)

// APIKeyMiddleware creates a Gin middleware that requires a valid api_key.
// The appliance convention puts the api_key in the username half of HTTP
// Basic auth with an empty password, so that is what is checked here.
func APIKeyMiddleware(tokenManager *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _, ok := c.Request.BasicAuth()
		if !ok || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "api_key required as basic auth username"})
			c.Abort()
			return
		}

		claims, err := tokenManager.Verify(token)
		if err != nil {
			var message string
			switch {
			case errors.Is(err, ErrExpiredToken):
				message = "api_key has expired"
			case errors.Is(err, ErrInvalidToken):
				message = "invalid api_key"
			default:
				message = "api_key verification failed"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": message})
			c.Abort()
			return
		}

		c.Set(ClaimsContextKey, claims)
		c.Set(AdminContextKey, claims.Username)
		c.Next()
	}
}
