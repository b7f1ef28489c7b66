package appliance

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shravan4518/ppsrest/pkg/database/models"
)

const (
	minPollingIntervalMinutes = 1
	maxPollingIntervalMinutes = 10080
	maxHostnameLength         = 255
)

// hostnamePattern accepts DNS names and IPv4/IPv6 literals. Anything
// else (shell metacharacters, script fragments) is rejected outright.
var hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9.:\-]+$`)

var allowedCollectors = map[string]bool{
	models.SourceLDAP: true,
	models.SourceMDM:  true,
	models.SourceNmap: true,
	models.SourceWMI:  true,
}

// getProfilerConfigHandler handles GET /api/v1/profiler/configuration
func (s *Server) getProfilerConfigHandler(c *gin.Context) {
	cfg, err := s.profilerRepo.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to load profiler configuration"))
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// updateProfilerConfigHandler handles PUT /api/v1/profiler/configuration
func (s *Server) updateProfilerConfigHandler(c *gin.Context) {
	var cfg models.ProfilerConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "Invalid profiler configuration payload", err.Error()))
		return
	}

	if err := validateProfilerConfig(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", err.Error()))
		return
	}

	if err := s.profilerRepo.Update(&cfg); err != nil {
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to save profiler configuration"))
		return
	}

	c.JSON(http.StatusOK, &cfg)
}

func validateProfilerConfig(cfg *models.ProfilerConfig) error {
	if cfg.PollingIntervalMinutes < minPollingIntervalMinutes || cfg.PollingIntervalMinutes > maxPollingIntervalMinutes {
		return fmt.Errorf("polling interval must be between %d and %d minutes", minPollingIntervalMinutes, maxPollingIntervalMinutes)
	}

	if cfg.DeviceAttributeServer != "" {
		if len(cfg.DeviceAttributeServer) > maxHostnameLength {
			return fmt.Errorf("device attribute server hostname exceeds %d characters", maxHostnameLength)
		}
		if !hostnamePattern.MatchString(cfg.DeviceAttributeServer) {
			return errors.New("device attribute server hostname contains invalid characters")
		}
	}

	for _, collector := range cfg.AdditionalCollectors {
		if !allowedCollectors[collector] {
			return fmt.Errorf("unknown additional collector %q", collector)
		}
		// LDAP and MDM enrichment only run against a polled attribute server.
		if (collector == models.SourceLDAP || collector == models.SourceMDM) && cfg.DeviceAttributeServer == "" {
			return fmt.Errorf("collector %q requires a device attribute server", collector)
		}
	}

	return nil
}

// listDevicesHandler handles GET /api/v1/profiler/devices
func (s *Server) listDevicesHandler(c *gin.Context) {
	limit := 100
	offset := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if v := c.Query("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "offset must be a non-negative integer"))
			return
		}
		offset = parsed
	}

	devices, err := s.deviceRepo.List(c.Query("category"), c.Query("source"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to list devices"))
		return
	}

	c.JSON(http.StatusOK, devices)
}

// upsertDeviceHandler handles POST /api/v1/profiler/devices, recording a
// device observation the way a collector feed would.
func (s *Server) upsertDeviceHandler(c *gin.Context) {
	var device models.ProfiledDevice
	if err := c.ShouldBindJSON(&device); err != nil {
		c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "Invalid device payload", err.Error()))
		return
	}

	if device.MACAddress == "" {
		c.JSON(http.StatusBadRequest, NewAPIError(400, "Bad Request", "Device MAC address is required"))
		return
	}

	if err := s.deviceRepo.Upsert(&device); err != nil {
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to record device"))
		return
	}

	c.JSON(http.StatusOK, &device)
}

// getDeviceHandler handles GET /api/v1/profiler/devices/:mac
func (s *Server) getDeviceHandler(c *gin.Context) {
	device, err := s.deviceRepo.GetByMAC(c.Param("mac"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, NewAPIError(404, "Not Found", "Device not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to load device"))
		return
	}

	c.JSON(http.StatusOK, device)
}

// deleteDeviceHandler handles DELETE /api/v1/profiler/devices/:mac
func (s *Server) deleteDeviceHandler(c *gin.Context) {
	if err := s.deviceRepo.Delete(c.Param("mac")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, NewAPIError(404, "Not Found", "Device not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewAPIError(500, "Internal Server Error", "Failed to delete device"))
		return
	}

	c.Status(http.StatusNoContent)
}
