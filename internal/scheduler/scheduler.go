// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hwrelay/internal/snapshot"
)

// Source yields the latest snapshot without blocking.
type Source interface {
	Current() snapshot.Snapshot
}

// Sender writes one terminated frame to the downstream device.
type Sender interface {
	Send(frame []byte) error
}

// Links yields the currently active sender, if any.
type Links func() (Sender, bool)

// Scheduler is the single periodic driver tying channel input to
// serial output. It is the sole caller of Send: delivery is at-most-
// once per tick, with no backlog across ticks.
type Scheduler struct {
	source   Source
	links    Links
	interval time.Duration
	log      zerolog.Logger
}

func New(source Source, links Links, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		source:   source,
		links:    links,
		interval: interval,
		log:      log,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("transmission scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("transmission scheduler stopped")
			return
		case <-ticker.C:
			s.TickOnce()
		}
	}
}

// TickOnce performs exactly one transmission cycle: pull the latest
// snapshot, format it, and hand it to the active link. With no active
// target the snapshot is dropped, not queued.
func (s *Scheduler) TickOnce() {
	snap := s.source.Current()

	sender, ok := s.links()
	if !ok {
		return
	}

	frame, err := snapshot.EncodeFrame(snap)
	if err != nil {
		s.log.Warn().Err(err).Msg("frame encode failed")
		return
	}

	// A failed send already invalidated the link and kicked detection;
	// the next tick supersedes this frame.
	if err := sender.Send(frame); err != nil {
		s.log.Warn().Err(err).Msg("frame send failed")
	}
}
