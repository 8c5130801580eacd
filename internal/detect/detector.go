// internal/detect/detector.go
package detect

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hwrelay/internal/seriallink"
)

// Config is the immutable runtime config for a detector.
type Config struct {
	Lister   Lister
	Opener   seriallink.Opener
	USBIDs   []string // uppercase "VVVV:PPPP" signatures
	BaudRate int
	Interval time.Duration
}

// Detector finds and maintains at most one active serial target among
// possibly-changing attached devices. It is the sole writer of the
// link's identity: only the detector binds or replaces the active port,
// and only the link itself invalidates an open handle.
type Detector struct {
	cfg Config
	ids map[string]struct{}
	log zerolog.Logger

	// rescan carries out-of-band scan requests from NotifyLinkFailed.
	rescan chan struct{}

	mu    sync.Mutex
	state State
	link  *seriallink.Link
}

func New(cfg Config, log zerolog.Logger) *Detector {
	ids := make(map[string]struct{}, len(cfg.USBIDs))
	for _, id := range cfg.USBIDs {
		ids[strings.ToUpper(id)] = struct{}{}
	}

	return &Detector{
		cfg:    cfg,
		ids:    ids,
		log:    log,
		rescan: make(chan struct{}, 1),
		state:  StateIdle,
	}
}

// Run scans immediately, then on every tick, plus whenever a link
// failure forces an out-of-band rescan. Returns on ctx cancellation
// after releasing any open handle.
func (d *Detector) Run(ctx context.Context) {
	d.log.Info().Dur("interval", d.cfg.Interval).Msg("device detector started")
	d.scan()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.dropLink()
			d.log.Info().Msg("device detector stopped")
			return
		case <-ticker.C:
			d.scan()
		case <-d.rescan:
			d.scan()
		}
	}
}

// ActiveLink returns the bound link while a target is active, else nil.
func (d *Detector) ActiveLink() *seriallink.Link {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateActive {
		return nil
	}
	return d.link
}

// CurrentTarget returns the active port identifier, if any.
func (d *Detector) CurrentTarget() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateActive || d.link == nil {
		return "", false
	}
	return d.link.Port(), true
}

// State returns the detector's current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// NotifyLinkFailed is called by the link after a failed write has
// already closed the handle. It forces an immediate transition out of
// Active and an out-of-band rescan.
func (d *Detector) NotifyLinkFailed() {
	d.mu.Lock()
	if d.state == StateActive {
		d.link = nil
		d.state = StateScanning
		d.log.Info().Msg("link failed, rescanning")
	}
	d.mu.Unlock()

	select {
	case d.rescan <- struct{}{}:
	default:
	}
}

// scan runs one full detection pass. While a target is active the pass
// is loss-detection only: a healthy active port is never preempted in
// favor of a newly attached device.
func (d *Detector) scan() {
	ports, err := d.cfg.Lister.List()
	if err != nil {
		d.log.Warn().Err(err).Msg("port enumeration failed")
		return
	}

	if link := d.ActiveLink(); link != nil {
		if portPresent(ports, link.Port()) {
			return
		}
		d.log.Info().Str("port", link.Port()).Msg("active device removed")
		d.transition(StateIdle)
		link.Close()
		d.clearLink()
	}

	d.transition(StateScanning)

	cand, ok := d.firstMatch(ports)
	if !ok {
		d.transition(StateIdle)
		return
	}

	d.transition(StateTesting)

	link, err := seriallink.Bind(cand.Name, d.cfg.BaudRate, d.cfg.Opener, d, d.log)
	if err != nil {
		d.log.Warn().Err(err).Str("port", cand.Name).Msg("candidate failed verification")
		d.transition(StateScanning)
		return
	}

	d.mu.Lock()
	d.link = link
	d.state = StateActive
	d.mu.Unlock()

	d.log.Info().
		Str("port", cand.Name).
		Str("usb", cand.VID+":"+cand.PID).
		Msg("device active")
}

// firstMatch picks the first candidate in enumeration order whose
// VID:PID signature is expected. Enumeration order is OS-defined, so
// selection is deterministic for a fixed set of attached devices.
func (d *Detector) firstMatch(ports []PortInfo) (PortInfo, bool) {
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		sig := strings.ToUpper(p.VID + ":" + p.PID)
		if _, ok := d.ids[sig]; ok {
			return p, true
		}
	}
	return PortInfo{}, false
}

func (d *Detector) transition(next State) {
	d.mu.Lock()
	prev := d.state
	d.state = next
	d.mu.Unlock()

	if prev != next {
		d.log.Debug().Stringer("from", prev).Stringer("to", next).Msg("state changed")
	}
}

func (d *Detector) clearLink() {
	d.mu.Lock()
	d.link = nil
	d.mu.Unlock()
}

func (d *Detector) dropLink() {
	d.mu.Lock()
	link := d.link
	d.link = nil
	d.state = StateIdle
	d.mu.Unlock()

	if link != nil {
		link.Close()
	}
}

func portPresent(ports []PortInfo, name string) bool {
	for _, p := range ports {
		if p.Name == name {
			return true
		}
	}
	return false
}
