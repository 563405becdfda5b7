package instrument

import (
	"strconv"
	"sync"
)

// FakeLaser is an in-memory stand-in for Laser: a device substitute cheap
// enough to drive from tests without real hardware.
type FakeLaser struct {
	mu      sync.Mutex
	Power   int
	Enabled bool
	Sent    []string
	FailNth int // if > 0, the FailNth call to Send returns an error
	calls   int
}

func (f *FakeLaser) Send(cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.Sent = append(f.Sent, cmd)
	if f.FailNth != 0 && f.calls == f.FailNth {
		return "", &Error{Kind: DeviceError, Device: "Laser", Reason: "injected failure"}
	}
	return "", nil
}

func (f *FakeLaser) SetPower(mW int) error {
	if _, err := f.Send("P=" + strconv.Itoa(mW)); err != nil {
		return err
	}
	f.mu.Lock()
	f.Power = mW
	f.mu.Unlock()
	return nil
}

func (f *FakeLaser) Enable(on bool) error {
	v := "L=0"
	if on {
		v = "L=1"
	}
	if _, err := f.Send(v); err != nil {
		return err
	}
	f.mu.Lock()
	f.Enabled = on
	f.mu.Unlock()
	return nil
}

// SentCommands returns a copy of every command sent so far.
func (f *FakeLaser) SentCommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Sent))
	copy(out, f.Sent)
	return out
}

// IsEnabled reports the last value set via Enable.
func (f *FakeLaser) IsEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Enabled
}

func (f *FakeLaser) ConnectionCheck() bool { return true }
func (f *FakeLaser) Open() error           { return nil }
func (f *FakeLaser) Close() error          { return nil }

// FakeShutter is an in-memory stand-in for Shutter.
type FakeShutter struct {
	mu   sync.Mutex
	open bool
}

func (f *FakeShutter) State() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open, nil
}

func (f *FakeShutter) Open() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open {
		return false, nil
	}
	f.open = true
	return true, nil
}

func (f *FakeShutter) CloseShutter() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return false, nil
	}
	f.open = false
	return true, nil
}

func (f *FakeShutter) ConnectionCheck() bool { return true }
func (f *FakeShutter) Close() error          { return nil }

// FakeMotion is an in-memory stand-in for Motion; motion "completes"
// instantly so WaitForMovement returns immediately, matching how the
// original test harness stubs used pre-settled status reads.
type FakeMotion struct {
	mu       sync.Mutex
	position [3]float64
	MaxSpeed float64
	FailOn   string // mnemonic to fail on, e.g. "OR"
}

func (f *FakeMotion) PowerOn(axis int) error { return f.maybeFail("MO") }
func (f *FakeMotion) Home(axis int) error    { return f.maybeFail("OR") }

func (f *FakeMotion) maybeFail(mnemonic string) error {
	if f.FailOn == mnemonic {
		return &Error{Kind: DeviceError, Device: "Motion", Reason: "injected failure on " + mnemonic}
	}
	return nil
}

func (f *FakeMotion) MoveAbsolute(axis int, position, speed float64) error {
	if err := f.maybeFail("PA"); err != nil {
		return err
	}
	f.mu.Lock()
	f.position[axis-1] = position
	f.mu.Unlock()
	return nil
}

func (f *FakeMotion) MoveRelative(axis int, distance, speed float64) error {
	if err := f.maybeFail("PR"); err != nil {
		return err
	}
	f.mu.Lock()
	f.position[axis-1] += distance
	f.mu.Unlock()
	return nil
}

func (f *FakeMotion) WaitForMovement() error { return f.maybeFail("WS") }
func (f *FakeMotion) StopMovement() error    { return f.maybeFail("ST") }
func (f *FakeMotion) EmergencyStop() error   { return f.maybeFail("AB") }

// MotionStatus always reports all three axes stopped: motion "completes"
// instantly in MoveAbsolute/MoveRelative above.
func (f *FakeMotion) MotionStatus() ([3]bool, error) { return [3]bool{}, nil }

func (f *FakeMotion) Position() ([3]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position, nil
}

func (f *FakeMotion) Speed() ([3]float64, error) {
	return [3]float64{0, 0, 0}, nil
}

func (f *FakeMotion) ConnectionCheck() bool { return true }
func (f *FakeMotion) Close() error          { return nil }
