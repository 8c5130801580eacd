// internal/channel/server.go
package channel

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"hwrelay/internal/snapshot"
)

// SnapshotSource is what the server reads on each publish tick.
type SnapshotSource interface {
	Latest() (snapshot.Snapshot, bool)
}

// Server pushes the freshest snapshot to exactly one local subscriber
// at a time. A slow or absent subscriber never stalls collection: the
// server only ever reads the last complete cached value.
type Server struct {
	source   SnapshotSource
	interval time.Duration
	log      zerolog.Logger
}

func NewServer(source SnapshotSource, interval time.Duration, log zerolog.Logger) *Server {
	return &Server{
		source:   source,
		interval: interval,
		log:      log,
	}
}

// Run listens on addr and serves subscribers until ctx is cancelled.
// A broken subscriber connection returns the server to accept; only a
// failure to bind the listener is a startup error.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("channel: listen %s: %w", addr, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.log.Info().Str("addr", addr).Msg("channel server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Msg("accept failed")
			time.Sleep(s.interval)
			continue
		}

		s.log.Info().Str("subscriber", conn.RemoteAddr().String()).Msg("subscriber connected")
		s.serve(ctx, conn)
		s.log.Info().Msg("subscriber disconnected")
	}
}

// serve is the per-subscriber publish loop: one frame per tick until
// the connection breaks or the context ends.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, ok := s.source.Latest()
			if !ok {
				snap = snapshot.Fallback(time.Now())
			}

			frame, err := snapshot.EncodeFrame(snap)
			if err != nil {
				s.log.Warn().Err(err).Msg("encode failed")
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(s.interval))
			if _, err := conn.Write(frame); err != nil {
				return
			}
		}
	}
}
