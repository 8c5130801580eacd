// internal/detect/lister.go
package detect

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one enumerated serial port. Candidates are
// transient: every scan produces an entirely new set.
type PortInfo struct {
	Name  string
	IsUSB bool
	VID   string
	PID   string
}

// Lister enumerates the currently visible serial ports.
// The detector depends on this interface only, so scans are testable
// without attached hardware.
type Lister interface {
	List() ([]PortInfo, error)
}

// USBLister enumerates real ports with USB adapter details.
type USBLister struct{}

func (USBLister) List() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("detect: enumerate ports: %w", err)
	}

	out := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		out = append(out, PortInfo{
			Name:  p.Name,
			IsUSB: p.IsUSB,
			VID:   p.VID,
			PID:   p.PID,
		})
	}
	return out, nil
}
