// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service ServiceConfig `yaml:"service"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Log     LogConfig     `yaml:"log"`
}

// ---- SERVICE (privileged producer) ----

type ServiceConfig struct {
	Listen            string `yaml:"listen"`
	PollIntervalMs    int    `yaml:"poll_interval_ms"`
	PublishIntervalMs int    `yaml:"publish_interval_ms"`

	// VolumeCommand is an optional shell command whose output contains
	// the master volume as "N%". Empty means volume is reported as 0.
	VolumeCommand string `yaml:"volume_command"`
}

// ---- BRIDGE (user-level relay) ----

type BridgeConfig struct {
	Endpoint            string       `yaml:"endpoint"`
	ReconnectIntervalMs int          `yaml:"reconnect_interval_ms"`
	StaleAfterMs        int          `yaml:"stale_after_ms"`
	TransmitIntervalMs  int          `yaml:"transmit_interval_ms"`
	ScanIntervalMs      int          `yaml:"scan_interval_ms"`
	Device              DeviceConfig `yaml:"device"`
}

// ---- TARGET DEVICE ----

type DeviceConfig struct {
	BaudRate int `yaml:"baud_rate"`

	// USBIDs are "VVVV:PPPP" vendor:product pairs identifying the
	// expected display adapter. First enumeration-order match wins.
	USBIDs []string `yaml:"usb_ids"`
}

// ---- LOG ----

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load reads a YAML config file, normalizes defaults, and validates.
// An empty path yields the built-in defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	Normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
