package models

import (
	"time"
)

// Collector source values recorded against profiled devices.
const (
	SourceDHCPv4 = "dhcpv4"
	SourceDHCPv6 = "dhcpv6"
	SourceSNMP   = "snmp"
	SourceLDAP   = "ldap"
	SourceMDM    = "mdm"
	SourceNmap   = "nmap"
	SourceWMI    = "wmi"
)

// ProfiledDevice is one fingerprinted endpoint in the Profiler database,
// keyed by MAC address.
type ProfiledDevice struct {
	MACAddress string    `gorm:"primary_key;size:17" json:"mac_address"`
	IPAddress  string    `gorm:"index" json:"ip_address"`
	Hostname   string    `json:"hostname,omitempty"`
	OS         string    `json:"os,omitempty"`
	Category   string    `gorm:"index" json:"category,omitempty"`
	Source     string    `gorm:"index" json:"source,omitempty"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}
