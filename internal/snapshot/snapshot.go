// internal/snapshot/snapshot.go
package snapshot

import "time"

// TimeLayout is the wall-clock format carried on the wire (24-hour).
const TimeLayout = "15:04"

// Snapshot is one complete set of telemetry values.
// It is a value type: superseded by the next snapshot, never mutated.
type Snapshot struct {
	Time    string  `json:"time"`
	CPULoad int     `json:"cpu_load"`
	Volume  int     `json:"volume"`
	CPUTemp float64 `json:"cpu_temp"`
}

// New builds a fully-populated snapshot for the given capture time.
// Percentages are clamped to 0-100; temperature is passed through
// with whatever precision the provider yielded.
func New(at time.Time, cpuLoad, volume int, cpuTemp float64) Snapshot {
	return Snapshot{
		Time:    at.Format(TimeLayout),
		CPULoad: clampPercent(cpuLoad),
		Volume:  clampPercent(volume),
		CPUTemp: cpuTemp,
	}
}

// Fallback is the snapshot substituted when no live data is available:
// all readings zero, time equal to the caller's current time.
func Fallback(now time.Time) Snapshot {
	return Snapshot{
		Time:    now.Format(TimeLayout),
		CPULoad: 0,
		Volume:  0,
		CPUTemp: 0,
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
