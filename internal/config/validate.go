// internal/config/validate.go
package config

import (
	"fmt"
	"regexp"
)

var usbIDRe = regexp.MustCompile(`^[0-9A-Fa-f]{4}:[0-9A-Fa-f]{4}$`)

var logLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {},
}

// Validate checks configuration correctness.
// It performs declarative validation only and MUST NOT mutate
// configuration. A config that fails here is a startup error; nothing
// downstream re-checks these invariants.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}

	// ------------------------------------------------------------
	// SERVICE
	// ------------------------------------------------------------

	if cfg.Service.Listen == "" {
		return fmt.Errorf("config: service.listen required")
	}
	if cfg.Service.PollIntervalMs <= 0 {
		return fmt.Errorf("config: service.poll_interval_ms must be > 0")
	}
	if cfg.Service.PublishIntervalMs <= 0 {
		return fmt.Errorf("config: service.publish_interval_ms must be > 0")
	}

	// ------------------------------------------------------------
	// BRIDGE
	// ------------------------------------------------------------

	if cfg.Bridge.Endpoint == "" {
		return fmt.Errorf("config: bridge.endpoint required")
	}
	if cfg.Bridge.ReconnectIntervalMs <= 0 {
		return fmt.Errorf("config: bridge.reconnect_interval_ms must be > 0")
	}
	if cfg.Bridge.StaleAfterMs <= 0 {
		return fmt.Errorf("config: bridge.stale_after_ms must be > 0")
	}
	if cfg.Bridge.TransmitIntervalMs <= 0 {
		return fmt.Errorf("config: bridge.transmit_interval_ms must be > 0")
	}
	if cfg.Bridge.ScanIntervalMs <= 0 {
		return fmt.Errorf("config: bridge.scan_interval_ms must be > 0")
	}

	// ------------------------------------------------------------
	// TARGET DEVICE
	// ------------------------------------------------------------

	if cfg.Bridge.Device.BaudRate <= 0 {
		return fmt.Errorf("config: bridge.device.baud_rate must be > 0")
	}
	if len(cfg.Bridge.Device.USBIDs) == 0 {
		return fmt.Errorf("config: bridge.device.usb_ids requires at least one entry")
	}
	for _, id := range cfg.Bridge.Device.USBIDs {
		if !usbIDRe.MatchString(id) {
			return fmt.Errorf(
				"config: bridge.device.usb_ids entry %q must be hex VVVV:PPPP",
				id,
			)
		}
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if _, ok := logLevels[cfg.Log.Level]; !ok {
		return fmt.Errorf("config: log.level %q not one of trace|debug|info|warn|error", cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("config: log.max_size_mb must be > 0")
	}
	if cfg.Log.MaxBackups < 0 {
		return fmt.Errorf("config: log.max_backups must be >= 0")
	}

	return nil
}
