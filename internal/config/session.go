package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/procdrive"
	"github.com/banshee-data/procdrive/internal/serialmux"
)

// ExampleConfigPath is the checked-in example session config.
const ExampleConfigPath = "config/session.example.json"

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// SessionConfig holds the driving and connection settings for a session.
// Every field is optional; the Get* methods fall back to the library
// defaults.
type SessionConfig struct {
	// Connection
	VehicleID        *int    `json:"vehicle_id,omitempty"`
	DiscoveryTimeout *string `json:"discovery_timeout,omitempty"` // duration string like "10s"
	ConnectTimeout   *string `json:"connect_timeout,omitempty"`
	CommandQueue     *int    `json:"command_queue,omitempty"`

	// Driving
	Acceleration           *int `json:"acceleration,omitempty"`
	AlignSpeed             *int `json:"align_speed,omitempty"`
	ScanSpeed              *int `json:"scan_speed,omitempty"`
	HorizontalSpeed        *int `json:"horizontal_speed,omitempty"`
	HorizontalAcceleration *int `json:"horizontal_acceleration,omitempty"`

	// Serial bridge port
	Serial *serialmux.PortOptions `json:"serial,omitempty"`

	Locale *string `json:"locale,omitempty"`
}

// LoadSessionConfig loads a SessionConfig from a JSON file. Fields omitted
// from the file keep their defaults.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SessionConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SessionConfig) Validate() error {
	if c.VehicleID != nil && *c.VehicleID < 0 {
		return fmt.Errorf("vehicle_id must be non-negative, got %d", *c.VehicleID)
	}

	for name, v := range map[string]*string{
		"discovery_timeout": c.DiscoveryTimeout,
		"connect_timeout":   c.ConnectTimeout,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.CommandQueue != nil && *c.CommandQueue < 1 {
		return fmt.Errorf("command_queue must be at least 1, got %d", *c.CommandQueue)
	}

	for name, v := range map[string]*int{
		"acceleration":            c.Acceleration,
		"align_speed":             c.AlignSpeed,
		"scan_speed":              c.ScanSpeed,
		"horizontal_speed":        c.HorizontalSpeed,
		"horizontal_acceleration": c.HorizontalAcceleration,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	}
	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// GetVehicleID returns the vehicle to connect to, 0 meaning any.
func (c *SessionConfig) GetVehicleID() int { return intOr(c.VehicleID, 0) }

// GetDiscoveryTimeout returns the discovery deadline.
func (c *SessionConfig) GetDiscoveryTimeout() time.Duration {
	return durationOr(c.DiscoveryTimeout, procdrive.DefaultDiscoveryTimeout)
}

// GetConnectTimeout returns the connect deadline.
func (c *SessionConfig) GetConnectTimeout() time.Duration {
	return durationOr(c.ConnectTimeout, procdrive.DefaultConnectTimeout)
}

// GetCommandQueue returns the command queue length.
func (c *SessionConfig) GetCommandQueue() int {
	return intOr(c.CommandQueue, procdrive.DefaultCommandQueue)
}

func (c *SessionConfig) GetAcceleration() int {
	return intOr(c.Acceleration, procdrive.DefaultAcceleration)
}

func (c *SessionConfig) GetAlignSpeed() int {
	return intOr(c.AlignSpeed, procdrive.DefaultAlignSpeed)
}

func (c *SessionConfig) GetScanSpeed() int {
	return intOr(c.ScanSpeed, procdrive.DefaultScanSpeed)
}

func (c *SessionConfig) GetHorizontalSpeed() int {
	return intOr(c.HorizontalSpeed, procdrive.DefaultHorizontalSpeed)
}

func (c *SessionConfig) GetHorizontalAcceleration() int {
	return intOr(c.HorizontalAcceleration, procdrive.DefaultHorizontalAcceleration)
}

// GetSerial returns the normalized serial port options.
func (c *SessionConfig) GetSerial() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.Serial != nil {
		opts = *c.Serial
	}
	normalized, err := opts.Normalize()
	if err != nil {
		normalized, _ = serialmux.PortOptions{}.Normalize()
	}
	return normalized
}

// GetLocale returns the help text locale.
func (c *SessionConfig) GetLocale() string {
	if c.Locale == nil || *c.Locale == "" {
		return "en-US"
	}
	return *c.Locale
}

// SessionOptions converts the connection settings to Connect options.
func (c *SessionConfig) SessionOptions() []procdrive.Option {
	return []procdrive.Option{
		procdrive.WithVehicleID(c.GetVehicleID()),
		procdrive.WithDiscoveryTimeout(c.GetDiscoveryTimeout()),
		procdrive.WithConnectTimeout(c.GetConnectTimeout()),
		procdrive.WithCommandQueue(c.GetCommandQueue()),
	}
}
