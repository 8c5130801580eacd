// internal/channel/client.go
package channel

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hwrelay/internal/snapshot"
)

const dialTimeout = 2 * time.Second

// Client maintains a local copy of the latest snapshot received from
// the channel server. It is the one seam that lets the rest of the
// bridge stay oblivious to producer-side failures: Current never blocks
// and always returns a well-formed snapshot.
type Client struct {
	endpoint   string
	reconnect  time.Duration
	staleAfter time.Duration
	log        zerolog.Logger

	now func() time.Time

	mu        sync.RWMutex
	last      snapshot.Snapshot
	lastAt    time.Time
	connected bool
}

func NewClient(endpoint string, reconnect, staleAfter time.Duration, log zerolog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		reconnect:  reconnect,
		staleAfter: staleAfter,
		log:        log,
		now:        time.Now,
	}
}

// Current returns the most recently received snapshot, or the zero-
// filled fallback when the connection is down or the last receive is
// older than the staleness window.
func (c *Client) Current() snapshot.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.lastAt.IsZero() || c.now().Sub(c.lastAt) > c.staleAfter {
		return snapshot.Fallback(c.now())
	}
	return c.last
}

// Connected reports whether a server connection is currently up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Run dials the server and consumes frames until ctx is cancelled.
// Connect failures and disconnects are silent: logged, waited out, and
// retried on the reconnect interval.
func (c *Client) Run(ctx context.Context) {
	for {
		conn, err := net.DialTimeout("tcp", c.endpoint, dialTimeout)
		if err != nil {
			c.log.Debug().Err(err).Str("endpoint", c.endpoint).Msg("channel connect failed")
			if !sleepCtx(ctx, c.reconnect) {
				return
			}
			continue
		}

		c.log.Info().Str("endpoint", c.endpoint).Msg("channel connected")
		c.setConnected(true)
		c.readLoop(ctx, conn)
		c.setConnected(false)
		c.log.Info().Msg("channel disconnected")

		if !sleepCtx(ctx, c.reconnect) {
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		s, err := snapshot.DecodeFrame(sc.Bytes())
		if err != nil {
			c.log.Debug().Err(err).Msg("bad frame from channel")
			continue
		}

		c.mu.Lock()
		c.last = s
		c.lastAt = c.now()
		c.mu.Unlock()
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// sleepCtx waits d or until ctx ends; false means the context ended.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
