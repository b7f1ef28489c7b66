package appliance

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shravan4518/ppsrest/pkg/auth"
	"github.com/shravan4518/ppsrest/pkg/config"
	"github.com/shravan4518/ppsrest/pkg/database"
	"github.com/shravan4518/ppsrest/pkg/database/repositories"
)

// Server emulates the appliance's admin REST API: realm_auth login,
// the configuration probe endpoint, and the Profiler surface.
type Server struct {
	config       *config.Config
	db           *database.DB
	authSvc      *auth.Service
	tokenManager *auth.TokenManager
	deviceRepo   *repositories.DeviceRepository
	profilerRepo *repositories.ProfilerConfigRepository
	router       *gin.Engine
	httpServer   *http.Server
}

// NewServer creates a simulator server instance
func NewServer(cfg *config.Config, db *database.DB, authSvc *auth.Service, tokenManager *auth.TokenManager, deviceRepo *repositories.DeviceRepository, profilerRepo *repositories.ProfilerConfigRepository) *Server {
	server := &Server{
		config:       cfg,
		db:           db,
		authSvc:      authSvc,
		tokenManager: tokenManager,
		deviceRepo:   deviceRepo,
		profilerRepo: profilerRepo,
	}

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.errorHandlerMiddleware())

	s.router.GET("/health", s.healthHandler)

	v1 := s.router.Group("/api/v1")
	{
		// Login endpoint uses Basic (username, password); everything
		// else expects Basic (api_key, "").
		v1.POST("/realm_auth", s.realmAuthHandler)

		protected := v1.Group("/")
		protected.Use(auth.APIKeyMiddleware(s.tokenManager))
		{
			protected.GET("/configuration/", s.configurationHandler)
			protected.GET("/profiler/configuration", s.getProfilerConfigHandler)
			protected.PUT("/profiler/configuration", s.updateProfilerConfigHandler)
			protected.GET("/profiler/devices", s.listDevicesHandler)
			protected.POST("/profiler/devices", s.upsertDeviceHandler)
			protected.GET("/profiler/devices/:mac", s.getDeviceHandler)
			protected.DELETE("/profiler/devices/:mac", s.deleteDeviceHandler)
		}
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	address := fmt.Sprintf(":%d", s.config.API.Port)
	log.Printf("appliance: starting admin API on %s", address)

	s.httpServer = &http.Server{
		Addr:         address,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.config.API.TLSCert != "" && s.config.API.TLSKey != "" {
		if _, err := os.Stat(s.config.API.TLSCert); err != nil {
			return fmt.Errorf("TLS certificate file error: %w", err)
		}
		if _, err := os.Stat(s.config.API.TLSKey); err != nil {
			return fmt.Errorf("TLS key file error: %w", err)
		}
		return s.httpServer.ListenAndServeTLS(s.config.API.TLSCert, s.config.API.TLSKey)
	}

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	log.Println("appliance: shutting down admin API...")
	return s.httpServer.Shutdown(ctx)
}

// GetRouter returns the gin router (useful for testing)
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
