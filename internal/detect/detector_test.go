// internal/detect/detector_test.go
package detect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// ---- fakes ----

type fakeLister struct {
	mu    sync.Mutex
	ports []PortInfo
	err   error
}

func (f *fakeLister) List() ([]PortInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PortInfo(nil), f.ports...), f.err
}

func (f *fakeLister) set(ports []PortInfo) {
	f.mu.Lock()
	f.ports = ports
	f.mu.Unlock()
}

// fakePort implements only the methods the link touches.
type fakePort struct {
	serial.Port

	mu     sync.Mutex
	fail   bool
	closed bool
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("io error")
	}
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

type fakeOpener struct {
	mu     sync.Mutex
	failOn map[string]bool
	opened []string
	last   *fakePort
}

func (f *fakeOpener) open(name string, _ *serial.Mode) (serial.Port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, name)
	if f.failOn[name] {
		return nil, errors.New("open failed")
	}
	f.last = &fakePort{}
	return f.last, nil
}

func newDetector(lister *fakeLister, opener *fakeOpener, interval time.Duration) *Detector {
	return New(Config{
		Lister:   lister,
		Opener:   opener.open,
		USBIDs:   []string{"10C4:EA60", "1A86:7523"},
		BaudRate: 115200,
		Interval: interval,
	}, zerolog.Nop())
}

func esp32At(name string) PortInfo {
	return PortInfo{Name: name, IsUSB: true, VID: "10C4", PID: "EA60"}
}

// ---- tests ----

func TestScan_NoDeviceFound(t *testing.T) {
	lister := &fakeLister{ports: []PortInfo{
		{Name: "/dev/ttyS0", IsUSB: false},
		{Name: "/dev/ttyUSB9", IsUSB: true, VID: "0000", PID: "0001"},
	}}
	d := newDetector(lister, &fakeOpener{}, time.Hour)

	d.scan()

	if d.State() != StateIdle {
		t.Fatalf("expected idle, got %v", d.State())
	}
	if d.ActiveLink() != nil {
		t.Fatal("no link expected without a matching device")
	}
	if _, ok := d.CurrentTarget(); ok {
		t.Fatal("no target expected")
	}
}

func TestScan_SelectsFirstMatchDeterministically(t *testing.T) {
	lister := &fakeLister{ports: []PortInfo{
		{Name: "/dev/ttyS0", IsUSB: false},
		esp32At("/dev/ttyUSB0"),
		esp32At("/dev/ttyUSB1"),
	}}
	// Fresh detectors must never alternate between equal candidates.
	for i := 0; i < 5; i++ {
		d := newDetector(lister, &fakeOpener{}, time.Hour)
		d.scan()

		port, ok := d.CurrentTarget()
		if !ok {
			t.Fatalf("scan %d: expected an active target", i)
		}
		if port != "/dev/ttyUSB0" {
			t.Fatalf("scan %d: tie-break must pick first match, got %s", i, port)
		}
	}

	// And an already-active detector keeps its target across rescans
	// without reopening it.
	opener := &fakeOpener{}
	d := newDetector(lister, opener, time.Hour)
	d.scan()
	d.scan()
	d.scan()

	if len(opener.opened) != 1 {
		t.Fatalf("expected a single open, got %v", opener.opened)
	}
}

func TestScan_OpenFailureReturnsToScanning(t *testing.T) {
	lister := &fakeLister{ports: []PortInfo{esp32At("/dev/ttyUSB0")}}
	opener := &fakeOpener{failOn: map[string]bool{"/dev/ttyUSB0": true}}
	d := newDetector(lister, opener, time.Hour)

	d.scan()

	if d.State() != StateScanning {
		t.Fatalf("expected scanning after failed verification, got %v", d.State())
	}
	if d.ActiveLink() != nil {
		t.Fatal("no link may be retained after open failure")
	}

	// Device becomes openable: the next tick picks it up.
	opener.mu.Lock()
	opener.failOn = nil
	opener.mu.Unlock()

	d.scan()
	if d.State() != StateActive {
		t.Fatalf("expected active after recovery, got %v", d.State())
	}
}

func TestScan_ActiveIsLossDetectionOnly(t *testing.T) {
	lister := &fakeLister{ports: []PortInfo{esp32At("/dev/ttyUSB1")}}
	opener := &fakeOpener{}
	d := newDetector(lister, opener, time.Hour)

	d.scan()
	if port, _ := d.CurrentTarget(); port != "/dev/ttyUSB1" {
		t.Fatalf("setup: expected /dev/ttyUSB1 active, got %s", port)
	}

	// A new matching device showing up earlier in enumeration order must
	// not preempt the healthy active target.
	lister.set([]PortInfo{esp32At("/dev/ttyUSB0"), esp32At("/dev/ttyUSB1")})
	d.scan()

	if port, _ := d.CurrentTarget(); port != "/dev/ttyUSB1" {
		t.Fatalf("healthy target preempted, now %s", port)
	}
}

func TestScan_ActiveRemovedTransitionsToIdle(t *testing.T) {
	lister := &fakeLister{ports: []PortInfo{esp32At("/dev/ttyUSB0")}}
	opener := &fakeOpener{}
	d := newDetector(lister, opener, time.Hour)

	d.scan()
	port := opener.last

	lister.set(nil)
	d.scan()

	if d.State() != StateIdle {
		t.Fatalf("expected idle after device removal, got %v", d.State())
	}
	if d.ActiveLink() != nil {
		t.Fatal("link must be dropped when the active port disappears")
	}
	port.mu.Lock()
	closed := port.closed
	port.mu.Unlock()
	if !closed {
		t.Fatal("handle must be closed when the active port disappears")
	}
}

func TestScan_ActiveRemovedReselectsReplacement(t *testing.T) {
	lister := &fakeLister{ports: []PortInfo{esp32At("/dev/ttyUSB0")}}
	d := newDetector(lister, &fakeOpener{}, time.Hour)

	d.scan()

	// The old device vanishes and a different one is attached: the same
	// pass re-enters scanning and selects the replacement.
	lister.set([]PortInfo{{Name: "/dev/ttyACM0", IsUSB: true, VID: "1A86", PID: "7523"}})
	d.scan()

	port, ok := d.CurrentTarget()
	if !ok || port != "/dev/ttyACM0" {
		t.Fatalf("expected replacement /dev/ttyACM0 active, got %q ok=%v", port, ok)
	}
}

func TestNotifyLinkFailed_ForcesImmediateRescan(t *testing.T) {
	lister := &fakeLister{ports: []PortInfo{esp32At("/dev/ttyUSB0")}}
	opener := &fakeOpener{}
	// Hour-long tick: any re-detection inside the test window can only
	// come from the out-of-band rescan.
	d := newDetector(lister, opener, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return d.ActiveLink() != nil })
	link := d.ActiveLink()

	// Break the port under the link and send once: the link closes
	// itself and notifies the detector.
	opener.mu.Lock()
	opener.last.mu.Lock()
	opener.last.fail = true
	opener.last.mu.Unlock()
	opener.mu.Unlock()

	if err := link.Send([]byte("x\n")); err == nil {
		t.Fatal("expected send failure")
	}

	waitFor(t, func() bool {
		l := d.ActiveLink()
		return l != nil && l != link
	})

	if port, _ := d.CurrentTarget(); port != "/dev/ttyUSB0" {
		t.Fatalf("expected the same device reselected, got %s", port)
	}

	cancel()
	<-done
}

func TestRun_ReleasesLinkOnShutdown(t *testing.T) {
	lister := &fakeLister{ports: []PortInfo{esp32At("/dev/ttyUSB0")}}
	opener := &fakeOpener{}
	d := newDetector(lister, opener, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return d.ActiveLink() != nil })
	cancel()
	<-done

	opener.mu.Lock()
	port := opener.last
	opener.mu.Unlock()
	port.mu.Lock()
	closed := port.closed
	port.mu.Unlock()
	if !closed {
		t.Fatal("handle must be released on shutdown")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
