package models

import (
	"time"
)

// DefaultPollingIntervalMinutes is the factory polling interval for the
// Device Attribute Server.
const DefaultPollingIntervalMinutes = 60

// ProfilerConfig is the appliance's single Profiler configuration row:
// which collectors are enabled and how the Device Attribute Server is
// polled. Exactly one row exists per appliance.
type ProfilerConfig struct {
	ID                     uint      `gorm:"primary_key" json:"-"`
	ProfilerName           string    `json:"profiler_name"`
	DHCPv4Enabled          bool      `json:"dhcpv4_enabled"`
	DHCPv6Enabled          bool      `json:"dhcpv6_enabled"`
	SNMPEnabled            bool      `json:"snmp_enabled"`
	DeviceAttributeServer  string    `json:"device_attribute_server,omitempty"`
	PollingIntervalMinutes int       `json:"polling_interval_minutes"`
	AdditionalCollectors   []string  `gorm:"serializer:json" json:"additional_collectors,omitempty"`
	RemoteProfiler         string    `json:"remote_profiler,omitempty"`
	UpdatedAt              time.Time `json:"-"`
}

// DefaultProfilerConfig returns the factory Profiler configuration.
func DefaultProfilerConfig() *ProfilerConfig {
	return &ProfilerConfig{
		ProfilerName:           "Local Profiler",
		DHCPv4Enabled:          true,
		PollingIntervalMinutes: DefaultPollingIntervalMinutes,
	}
}
