// Package config loads gateway configuration from a YAML file over
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vitalink-protocol/vitalink-go/pkg/central"
	"github.com/vitalink-protocol/vitalink-go/pkg/connection"
	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

// Configuration errors.
var (
	ErrUnknownCapability = errors.New("unknown capability")
	ErrUnknownLogLevel   = errors.New("unknown log level")
)

// Duration wraps time.Duration so YAML fields accept values like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the gateway configuration. Zero-value fields keep their
// defaults when loading from a file.
type Config struct {
	// Scan lists the capability names the discovery filter accepts.
	// Empty means all supported capabilities.
	Scan []string `yaml:"scan"`

	// ReconnectDelay is the fixed delay between reconnection attempts.
	ReconnectDelay Duration `yaml:"reconnect_delay"`

	// ClockDriftThreshold is the minimum device clock drift before a
	// correction is written.
	ClockDriftThreshold Duration `yaml:"clock_drift_threshold"`

	// QuirkVendorPrefix marks devices needing the delayed clock
	// correction instead of the default clock write.
	QuirkVendorPrefix string `yaml:"quirk_vendor_prefix"`

	// LogLevel is the operational log level: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFile is the protocol event log path. Empty disables it.
	LogFile string `yaml:"log_file"`

	// EventBuffer is the per-subscriber event channel capacity.
	EventBuffer int `yaml:"event_buffer"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ReconnectDelay:      Duration(connection.ReconnectDelay),
		ClockDriftThreshold: Duration(central.DefaultClockDriftThreshold),
		QuirkVendorPrefix:   central.DefaultQuirkVendorPrefix,
		LogLevel:            "info",
		EventBuffer:         16,
	}
}

// Load reads a YAML configuration file and merges it over the defaults.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if _, err := c.ScanFilter(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect_delay must not be negative: %s", c.ReconnectDelay.Std())
	}
	if c.ClockDriftThreshold < 0 {
		return fmt.Errorf("clock_drift_threshold must not be negative: %s", c.ClockDriftThreshold.Std())
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("event_buffer must not be negative: %d", c.EventBuffer)
	}
	return nil
}

// capabilityNames maps config names to capability identifiers.
var capabilityNames = map[string]gatt.CapabilityID{
	"device_information": gatt.CapDeviceInformation,
	"current_time":       gatt.CapCurrentTime,
	"battery":            gatt.CapBattery,
	"blood_pressure":     gatt.CapBloodPressure,
	"health_thermometer": gatt.CapHealthThermometer,
	"heart_rate":         gatt.CapHeartRate,
}

// ScanFilter resolves the configured capability names. An empty list
// resolves to every supported capability.
func (c *Config) ScanFilter() ([]gatt.CapabilityID, error) {
	if len(c.Scan) == 0 {
		return gatt.CapabilityIDs(), nil
	}

	filter := make([]gatt.CapabilityID, 0, len(c.Scan))
	for _, name := range c.Scan {
		id, ok := capabilityNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
		}
		filter = append(filter, id)
	}
	return filter, nil
}

// SlogLevel resolves the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, c.LogLevel)
	}
}

// Delay builds the reconnection delay calculator for the configured
// fixed delay.
func (c *Config) Delay() *connection.Delay {
	return connection.NewDelayWithConfig(connection.DelayConfig{
		Initial:    c.ReconnectDelay.Std(),
		Max:        c.ReconnectDelay.Std(),
		Multiplier: 1.0,
	})
}

// Quirk builds the quirk policy from the configured prefix and
// threshold.
func (c *Config) Quirk() *central.QuirkPolicy {
	return central.NewQuirkPolicyWith(c.QuirkVendorPrefix, c.ClockDriftThreshold.Std())
}
