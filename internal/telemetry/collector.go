// internal/telemetry/collector.go
package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Collector is a dumb, clock-driven reader: one provider read per tick,
// stored into the cache. No overlap, no retries.
type Collector struct {
	provider Provider
	cache    *Cache
	interval time.Duration
	log      zerolog.Logger
}

func NewCollector(p Provider, cache *Cache, interval time.Duration, log zerolog.Logger) *Collector {
	return &Collector{
		provider: p,
		cache:    cache,
		interval: interval,
		log:      log,
	}
}

// Run starts the ticker loop. An initial read happens immediately so
// the channel has data before the first full interval elapses.
func (c *Collector) Run(ctx context.Context) {
	c.cache.Store(c.provider.Read())

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Info().Dur("interval", c.interval).Msg("collector started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("collector stopped")
			return
		case <-ticker.C:
			c.cache.Store(c.provider.Read())
		}
	}
}
