// internal/seriallink/link.go
package seriallink

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// FailureNotifier is told when a write invalidates the link, so device
// detection restarts without waiting for the next scan tick.
type FailureNotifier interface {
	NotifyLinkFailed()
}

// Opener opens a serial port. Injected so tests run without hardware;
// production wiring passes serial.Open.
type Opener func(name string, mode *serial.Mode) (serial.Port, error)

// Link owns zero or one open serial handle and performs outbound
// writes only. It never reads from or waits on the downstream device.
type Link struct {
	log      zerolog.Logger
	notifier FailureNotifier

	mu   sync.Mutex
	port serial.Port
	name string
}

// Bind opens name at the given baud rate (8N1, no parity). On failure
// no handle is retained.
func Bind(name string, baud int, open Opener, notifier FailureNotifier, log zerolog.Logger) (*Link, error) {
	port, err := open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("seriallink: open %s: %w", name, err)
	}

	return &Link{
		log:      log,
		notifier: notifier,
		port:     port,
		name:     name,
	}, nil
}

// Port returns the bound port name.
func (l *Link) Port() string {
	return l.name
}

// Send writes one terminated frame. Any write error closes the handle,
// clears internal state, and notifies the detector. The frame itself is
// not retried; the next tick supersedes it.
func (l *Link) Send(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return errors.New("seriallink: link closed")
	}

	if err := writeAll(l.port, frame); err != nil {
		l.log.Warn().Err(err).Str("port", l.name).Msg("serial write failed")
		_ = l.port.Close()
		l.port = nil
		if l.notifier != nil {
			l.notifier.NotifyLinkFailed()
		}
		return fmt.Errorf("seriallink: write %s: %w", l.name, err)
	}

	return nil
}

// Close releases the handle if still open. Safe to call twice.
func (l *Link) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		_ = l.port.Close()
		l.port = nil
	}
}

func writeAll(port serial.Port, b []byte) error {
	for len(b) > 0 {
		n, err := port.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
