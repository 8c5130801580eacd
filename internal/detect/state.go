// internal/detect/state.go
package detect

// State is the detector's position in its scan/test/transmit cycle.
type State int

const (
	// StateIdle: no device known, waiting for the next scan tick.
	StateIdle State = iota
	// StateScanning: enumerating and matching candidate ports.
	StateScanning
	// StateTesting: opening a matched candidate for verification.
	StateTesting
	// StateActive: one port selected, link bound, frames flowing.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateTesting:
		return "testing"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}
