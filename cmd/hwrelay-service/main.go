// cmd/hwrelay-service/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hwrelay/internal/channel"
	"hwrelay/internal/config"
	"hwrelay/internal/logging"
	"hwrelay/internal/telemetry"
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

	logger := logging.New(cfg.Log).With().Str("proc", "service").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Telemetry collection
	// --------------------

	provider := telemetry.NewSystemProvider(cfg.Service.VolumeCommand, logger)
	cache := telemetry.NewCache()

	collector := telemetry.NewCollector(
		provider,
		cache,
		time.Duration(cfg.Service.PollIntervalMs)*time.Millisecond,
		logger,
	)
	go collector.Run(ctx)

	// --------------------
	// Snapshot channel
	// --------------------

	server := channel.NewServer(
		cache,
		time.Duration(cfg.Service.PublishIntervalMs)*time.Millisecond,
		logger,
	)

	if err := server.Run(ctx, cfg.Service.Listen); err != nil {
		logger.Fatal().Err(err).Msg("channel server failed to start")
	}

	logger.Info().Msg("service stopped")
}
