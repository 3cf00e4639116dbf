package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

const (
	DefaultTimeoutSec       = 5
	DefaultDeviceTimeoutSec = 2
	DefaultPollIntervalMS   = 1000
	DefaultLogLevel         = "info"

	// TokenLength is the length of a hub local access token.
	TokenLength = 24

	MaxHostLength  = 253
	MaxLabelLength = 63
	MaxModelLength = 50
)

// Config holds the CLI tool settings.
type Config struct {
	Hub *HubConfig `yaml:"hub,omitempty"`
	Log *LogConfig `yaml:"log,omitempty"`
}

// HubConfig identifies and times one hub.
type HubConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	Model            string `yaml:"model"`
	Token            string `yaml:"token"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	DeviceTimeoutSec int    `yaml:"device_timeout_sec"`
	PollIntervalMS   int    `yaml:"poll_interval_ms"`
}

// Timeout returns the command timeout as a duration.
func (h *HubConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSec) * time.Second
}

// DeviceTimeout returns the per-device timeout as a duration.
func (h *HubConfig) DeviceTimeout() time.Duration {
	return time.Duration(h.DeviceTimeoutSec) * time.Second
}

// PollInterval returns the poll interval as a duration.
func (h *HubConfig) PollInterval() time.Duration {
	return time.Duration(h.PollIntervalMS) * time.Millisecond
}

// LogConfig controls protocol and console logging.
type LogConfig struct {
	// Path of the protocol log file (.llog). Empty disables it.
	Path string `yaml:"path,omitempty"`

	// Level for console output: debug, info, warn or error.
	Level string `yaml:"level"`
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk. The file carries the hub
// token, so it is written 0600.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the required fields. Token length is not enforced
// here; interactive flows use ValidateToken before persisting.
func Validate(cfg Config) error {
	if cfg.Hub == nil {
		return fmt.Errorf("config must contain a hub section")
	}
	if err := ValidateHost(cfg.Hub.Host); err != nil {
		return err
	}
	if cfg.Hub.Token == "" {
		return fmt.Errorf("hub.token is required")
	}
	if n := len(cfg.Hub.Model); n < 1 || n > MaxModelLength {
		return fmt.Errorf("hub.model must be 1..%d characters", MaxModelLength)
	}
	if cfg.Log != nil {
		switch cfg.Log.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
		}
	}
	return nil
}

// ValidateHost accepts an IP address or a hostname with DNS label
// limits.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("hub.host is required")
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if len(host) > MaxHostLength {
		return fmt.Errorf("hub.host exceeds %d characters", MaxHostLength)
	}
	for _, label := range strings.Split(host, ".") {
		if len(label) > MaxLabelLength {
			return fmt.Errorf("hub.host label %q exceeds %d characters", label, MaxLabelLength)
		}
	}
	return nil
}

// ValidateToken enforces the exact token format the hub app shows.
func ValidateToken(token string) error {
	if len(token) != TokenLength {
		return fmt.Errorf("token must be %d characters long", TokenLength)
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Hub != nil {
		if cfg.Hub.Port == 0 {
			cfg.Hub.Port = wire.Port
		}
		if cfg.Hub.Model == "" {
			cfg.Hub.Model = wire.DefaultModel
		}
		if cfg.Hub.TimeoutSec == 0 {
			cfg.Hub.TimeoutSec = DefaultTimeoutSec
		}
		if cfg.Hub.DeviceTimeoutSec == 0 {
			cfg.Hub.DeviceTimeoutSec = DefaultDeviceTimeoutSec
		}
		if cfg.Hub.PollIntervalMS == 0 {
			cfg.Hub.PollIntervalMS = DefaultPollIntervalMS
		}
	}

	if cfg.Log != nil {
		if cfg.Log.Level == "" {
			cfg.Log.Level = DefaultLogLevel
		}
	}
}
