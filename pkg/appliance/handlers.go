package appliance

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shravan4518/ppsrest/pkg/auth"
)

type realmAuthRequest struct {
	Realm string `json:"realm" binding:"required"`
}

type realmAuthResponse struct {
	APIKey string `json:"api_key"`
}

// realmAuthHandler handles POST /api/v1/realm_auth. Credentials arrive
// as HTTP Basic auth; the request body selects the authentication realm.
func (s *Server) realmAuthHandler(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok {
		c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Basic authentication required"))
		return
	}

	var req realmAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "Request body must name an authentication realm"))
		return
	}

	token, err := s.authSvc.Authenticate(username, password, req.Realm)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewAPIError(401, "Unauthorized", "Invalid username or password"))
		case errors.Is(err, auth.ErrUnknownRealm):
			c.JSON(http.StatusForbidden, NewAPIError(403, "Forbidden", "Unknown authentication realm"))
		case errors.Is(err, auth.ErrAdminInactive):
			c.JSON(http.StatusForbidden, NewAPIError(403, "Forbidden", "Admin account is inactive"))
		default:
			c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Authentication error"))
		}
		return
	}

	c.JSON(http.StatusOK, realmAuthResponse{APIKey: token})
}

// configurationHandler handles GET /api/v1/configuration/. Clients use
// it as a lightweight probe to decide whether a cached api_key still
// authenticates, so the body is a minimal summary.
func (s *Server) configurationHandler(c *gin.Context) {
	deviceCount, err := s.deviceRepo.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to read configuration"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"system": gin.H{
			"profiled_devices": deviceCount,
			"realms":           s.config.Auth.Realms,
		},
	})
}

// healthHandler handles GET /health
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
