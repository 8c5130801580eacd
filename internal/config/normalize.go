// internal/config/normalize.go
package config

import "strings"

// Documented defaults. The channel publishes and the scheduler
// transmits at 1 Hz; device scans run every 10 seconds.
const (
	DefaultListen            = "127.0.0.1:7600"
	DefaultPollIntervalMs    = 1000
	DefaultPublishIntervalMs = 1000
	DefaultReconnectMs       = 5000
	DefaultStaleAfterMs      = 5000
	DefaultTransmitMs        = 1000
	DefaultScanMs            = 10000
	DefaultBaudRate          = 115200
	DefaultLogLevel          = "info"
	DefaultLogMaxSizeMB      = 10
	DefaultLogMaxBackups     = 3
)

// DefaultUSBIDs cover the usual ESP32 serial adapters:
// CP210x, CH340, FTDI, and the Espressif native USB interface.
var DefaultUSBIDs = []string{"10C4:EA60", "1A86:7523", "0403:6001", "303A:1001"}

// Normalize fills zero values with documented defaults and canonicalizes
// USB ids. It is allowed to mutate configuration.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Service.Listen == "" {
		cfg.Service.Listen = DefaultListen
	}
	if cfg.Service.PollIntervalMs == 0 {
		cfg.Service.PollIntervalMs = DefaultPollIntervalMs
	}
	if cfg.Service.PublishIntervalMs == 0 {
		cfg.Service.PublishIntervalMs = DefaultPublishIntervalMs
	}

	if cfg.Bridge.Endpoint == "" {
		cfg.Bridge.Endpoint = DefaultListen
	}
	if cfg.Bridge.ReconnectIntervalMs == 0 {
		cfg.Bridge.ReconnectIntervalMs = DefaultReconnectMs
	}
	if cfg.Bridge.StaleAfterMs == 0 {
		cfg.Bridge.StaleAfterMs = DefaultStaleAfterMs
	}
	if cfg.Bridge.TransmitIntervalMs == 0 {
		cfg.Bridge.TransmitIntervalMs = DefaultTransmitMs
	}
	if cfg.Bridge.ScanIntervalMs == 0 {
		cfg.Bridge.ScanIntervalMs = DefaultScanMs
	}
	if cfg.Bridge.Device.BaudRate == 0 {
		cfg.Bridge.Device.BaudRate = DefaultBaudRate
	}
	if len(cfg.Bridge.Device.USBIDs) == 0 {
		cfg.Bridge.Device.USBIDs = append([]string(nil), DefaultUSBIDs...)
	}
	for i, id := range cfg.Bridge.Device.USBIDs {
		cfg.Bridge.Device.USBIDs[i] = strings.ToUpper(id)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = DefaultLogMaxBackups
	}
}
