package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	profilerConfigPath  = APIVersion + "/profiler/configuration"
	profilerDevicesPath = APIVersion + "/profiler/devices"
)

// ProfilerConfig is the appliance's device-fingerprinting configuration:
// which collectors feed the Profiler and how often the Device Attribute
// Server is polled.
type ProfilerConfig struct {
	ProfilerName           string   `json:"profiler_name"`
	DHCPv4Enabled          bool     `json:"dhcpv4_enabled"`
	DHCPv6Enabled          bool     `json:"dhcpv6_enabled"`
	SNMPEnabled            bool     `json:"snmp_enabled"`
	DeviceAttributeServer  string   `json:"device_attribute_server,omitempty"`
	PollingIntervalMinutes int      `json:"polling_interval_minutes"`
	AdditionalCollectors   []string `json:"additional_collectors,omitempty"`
	RemoteProfiler         string   `json:"remote_profiler,omitempty"`
}

// ProfiledDevice is one fingerprinted endpoint in the Profiler database.
type ProfiledDevice struct {
	MACAddress string    `json:"mac_address"`
	IPAddress  string    `json:"ip_address"`
	Hostname   string    `json:"hostname,omitempty"`
	OS         string    `json:"os,omitempty"`
	Category   string    `json:"category,omitempty"`
	Source     string    `json:"source,omitempty"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// DeviceFilter narrows a device listing. Zero fields are ignored.
type DeviceFilter struct {
	Category string
	Source   string
}

// APIStatusError reports a non-2xx status from a typed Profiler call,
// preserving the body for diagnosis.
type APIStatusError struct {
	Method     string
	Resource   string
	StatusCode int
	Body       []byte
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Resource, e.StatusCode)
}

// ProfilerConfiguration fetches the current Profiler configuration.
func (c *Client) ProfilerConfiguration(ctx context.Context) (*ProfilerConfig, error) {
	resp, err := c.Get(ctx, profilerConfigPath, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(http.MethodGet, profilerConfigPath, resp)
	}

	var cfg ProfilerConfig
	if err := resp.DecodeJSON(&cfg); err != nil {
		return nil, fmt.Errorf("decoding profiler configuration: %w", err)
	}
	return &cfg, nil
}

// UpdateProfilerConfiguration replaces the Profiler configuration and
// returns the configuration the appliance accepted.
func (c *Client) UpdateProfilerConfiguration(ctx context.Context, cfg *ProfilerConfig) (*ProfilerConfig, error) {
	resp, err := c.Put(ctx, profilerConfigPath, cfg)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(http.MethodPut, profilerConfigPath, resp)
	}

	var updated ProfilerConfig
	if err := resp.DecodeJSON(&updated); err != nil {
		return nil, fmt.Errorf("decoding updated profiler configuration: %w", err)
	}
	return &updated, nil
}

// ListDevices fetches profiled devices, optionally filtered by category
// or collector source.
func (c *Client) ListDevices(ctx context.Context, filter DeviceFilter) ([]ProfiledDevice, error) {
	params := url.Values{}
	if filter.Category != "" {
		params.Set("category", filter.Category)
	}
	if filter.Source != "" {
		params.Set("source", filter.Source)
	}

	resp, err := c.Get(ctx, profilerDevicesPath, params)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(http.MethodGet, profilerDevicesPath, resp)
	}

	var devices []ProfiledDevice
	if err := resp.DecodeJSON(&devices); err != nil {
		return nil, fmt.Errorf("decoding device list: %w", err)
	}
	return devices, nil
}

// GetDevice fetches one profiled device by MAC address.
func (c *Client) GetDevice(ctx context.Context, mac string) (*ProfiledDevice, error) {
	resource := profilerDevicesPath + "/" + url.PathEscape(mac)
	resp, err := c.Get(ctx, resource, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(http.MethodGet, resource, resp)
	}

	var device ProfiledDevice
	if err := resp.DecodeJSON(&device); err != nil {
		return nil, fmt.Errorf("decoding device %s: %w", mac, err)
	}
	return &device, nil
}

// DeleteDevice removes one device from the Profiler database.
func (c *Client) DeleteDevice(ctx context.Context, mac string) error {
	resource := profilerDevicesPath + "/" + url.PathEscape(mac)
	resp, err := c.Delete(ctx, resource)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(http.MethodDelete, resource, resp)
	}
	return nil
}

func statusError(method, resource string, resp *Response) error {
	return &APIStatusError{
		Method:     method,
		Resource:   resource,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}
}
