// cmd/hwrelay-bridge/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"hwrelay/internal/channel"
	"hwrelay/internal/config"
	"hwrelay/internal/detect"
	"hwrelay/internal/logging"
	"hwrelay/internal/scheduler"
)

func main() {
	var cfgPath string
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := logging.New(cfg.Log).With().Str("proc", "bridge").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Channel subscription
	// --------------------

	client := channel.NewClient(
		cfg.Bridge.Endpoint,
		time.Duration(cfg.Bridge.ReconnectIntervalMs)*time.Millisecond,
		time.Duration(cfg.Bridge.StaleAfterMs)*time.Millisecond,
		logger,
	)
	go client.Run(ctx)

	// --------------------
	// Device detection
	// --------------------

	detector := detect.New(detect.Config{
		Lister:   detect.USBLister{},
		Opener:   serial.Open,
		USBIDs:   cfg.Bridge.Device.USBIDs,
		BaudRate: cfg.Bridge.Device.BaudRate,
		Interval: time.Duration(cfg.Bridge.ScanIntervalMs) * time.Millisecond,
	}, logger)
	go detector.Run(ctx)

	// --------------------
	// Transmission loop
	// --------------------

	sched := scheduler.New(
		client,
		func() (scheduler.Sender, bool) {
			link := detector.ActiveLink()
			if link == nil {
				return nil, false
			}
			return link, true
		},
		time.Duration(cfg.Bridge.TransmitIntervalMs)*time.Millisecond,
		logger,
	)
	sched.Run(ctx)

	logger.Info().Msg("bridge stopped")
}
