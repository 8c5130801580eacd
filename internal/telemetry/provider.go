// internal/telemetry/provider.go
package telemetry

import (
	"context"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"

	"hwrelay/internal/snapshot"
)

// Provider returns the current hardware readings on demand.
// Implementations never fail wholesale: a reading that cannot be taken
// is reported as its fallback value, so Read always yields a complete
// snapshot.
type Provider interface {
	Read() snapshot.Snapshot
}

const volumeCmdTimeout = 2 * time.Second

var percentRe = regexp.MustCompile(`(\d{1,3})%`)

// SystemProvider reads live values via gopsutil, plus master volume
// through an optional external command.
type SystemProvider struct {
	log       zerolog.Logger
	volumeCmd string

	// lastCPU is reported when the load read fails, so a transient
	// gopsutil error does not show up as an idle CPU.
	lastCPU int
}

// NewSystemProvider primes the CPU delta counter and returns a provider.
// volumeCmd may be empty, in which case volume always reads 0.
func NewSystemProvider(volumeCmd string, log zerolog.Logger) *SystemProvider {
	// First cpu.Percent call establishes the baseline for deltas.
	_, _ = cpu.Percent(0, false)

	return &SystemProvider{
		log:       log,
		volumeCmd: volumeCmd,
	}
}

func (p *SystemProvider) Read() snapshot.Snapshot {
	return snapshot.New(time.Now(), p.cpuLoad(), p.volume(), p.cpuTemp())
}

func (p *SystemProvider) cpuLoad() int {
	pct, err := cpu.Percent(0, false)
	if err != nil || len(pct) == 0 {
		p.log.Warn().Err(err).Msg("cpu load read failed, using last value")
		return p.lastCPU
	}
	p.lastCPU = int(math.Round(pct[0]))
	return p.lastCPU
}

// cpuTemp picks the most trustworthy CPU temperature sensor available:
// Tctl/Tdie core readings first (AMD), then the package sensor, then an
// average over per-core sensors, then any positive reading at all.
func (p *SystemProvider) cpuTemp() float64 {
	sensors, err := host.SensorsTemperatures()
	if err != nil && len(sensors) == 0 {
		p.log.Warn().Err(err).Msg("temperature sensors unavailable")
		return 0
	}

	var tctl, pkg, other float64
	var coreSum float64
	var coreN int

	for _, s := range sensors {
		if s.Temperature <= 0 {
			continue
		}
		key := strings.ToLower(s.SensorKey)

		switch {
		case strings.Contains(key, "tctl") || strings.Contains(key, "tdie"):
			if strings.Contains(key, "core") || tctl == 0 {
				tctl = s.Temperature
			}
		case strings.Contains(key, "package"):
			if pkg == 0 {
				pkg = s.Temperature
			}
		case strings.Contains(key, "core"):
			coreSum += s.Temperature
			coreN++
		default:
			if other == 0 {
				other = s.Temperature
			}
		}
	}

	switch {
	case tctl > 0:
		return tctl
	case pkg > 0:
		return pkg
	case coreN > 0:
		return coreSum / float64(coreN)
	default:
		return other
	}
}

func (p *SystemProvider) volume() int {
	if p.volumeCmd == "" {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), volumeCmdTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "sh", "-c", p.volumeCmd).Output()
	if err != nil {
		p.log.Debug().Err(err).Msg("volume command failed")
		return 0
	}

	return parseVolume(string(out))
}

// parseVolume extracts the first "N%" percentage from command output.
func parseVolume(out string) int {
	m := percentRe.FindStringSubmatch(out)
	if m == nil {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	if v > 100 {
		v = 100
	}
	return v
}
