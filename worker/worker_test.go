package worker

import (
	"testing"
	"time"

	"github.com/anghofus/sineplate/coordinator"
	"github.com/anghofus/sineplate/instrument"
	"github.com/anghofus/sineplate/settings"
)

func newTestWorker(t *testing.T, motion *instrument.FakeMotion) (*Worker, *instrument.FakeLaser, *instrument.FakeShutter) {
	t.Helper()
	laser := &instrument.FakeLaser{}
	shutter := &instrument.FakeShutter{}
	if motion == nil {
		motion = &instrument.FakeMotion{MaxSpeed: 1000}
	}
	coord, err := coordinator.New(laser, shutter, motion, 12.5, 12.5)
	if err != nil {
		t.Fatalf("coordinator.New: %v", err)
	}
	s := settings.Default()
	s.RadiusMM = 2.5
	s.FocalLengthMM = 30
	s.WavelengthNM = 633
	s.GratingWidthUM = 70
	s.GratingHeightUM = 70
	s.YMin = 65
	s.YPeakToPeak = 85
	s.ExposureTimeS = 11

	w := New(coord, laser, s, nil, 8)
	w.tickInterval = time.Millisecond
	return w, laser, shutter
}

// TestPrintPhasePlateRunsAllRings covers scenario S4: 35 ring cycles,
// rings_total == 35, ring_counter ends at 36, final instrument command
// is L=0.
func TestPrintPhasePlateRunsAllRings(t *testing.T) {
	w, laser, _ := newTestWorker(t, nil)

	go w.Run()
	w.Commands() <- PrintPhasePlateCmd{}
	w.Commands() <- CloseConnectionCmd{}

	waitIdle(t, w)

	snap := w.Telemetry().Read()
	if snap.RingsTotal != 35 {
		t.Fatalf("rings_total = %d, want 35", snap.RingsTotal)
	}
	if snap.RingCounter != 36 {
		t.Fatalf("ring_counter = %d, want 36", snap.RingCounter)
	}

	sent := laser.SentCommands()
	if len(sent) == 0 || sent[len(sent)-1] != "L=0" {
		t.Fatalf("final laser command = %v, want last entry L=0", sent)
	}
}

// TestRetrySucceedsOnSecondAttempt covers scenario S5's success branch:
// a handler that fails once and succeeds on retry leaves the error queue
// empty and busy=false.
func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	w, laser, _ := newTestWorker(t, nil)
	// The first laser command of the first attempt (P=30) fails; the retry
	// sends it again and every later call succeeds.
	laser.FailNth = 1

	go w.Run()
	w.Commands() <- GoToFocusLocationCmd{Tag: coordinator.Center}
	w.Commands() <- CloseConnectionCmd{}
	waitIdle(t, w)

	select {
	case e := <-w.Errors():
		t.Fatalf("expected no error, got %v", e)
	default:
	}
	if w.Telemetry().Busy() {
		t.Fatal("expected busy=false after handler returns")
	}
}

// TestRetryFailsBothAttemptsPostsOneError covers scenario S5's failure
// branch.
func TestRetryFailsBothAttemptsPostsOneError(t *testing.T) {
	motion := &instrument.FakeMotion{MaxSpeed: 1000}
	motion.FailOn = "PA"
	w, _, _ := newTestWorker(t, motion)

	go w.Run()
	w.Commands() <- GoToFocusLocationCmd{Tag: coordinator.Center}
	w.Commands() <- CloseConnectionCmd{}
	waitIdle(t, w)

	select {
	case <-w.Errors():
	default:
		t.Fatal("expected exactly one posted error")
	}
	select {
	case e := <-w.Errors():
		t.Fatalf("expected only one error, got a second: %v", e)
	default:
	}
}

// TestKillMidRunStopsAfterCurrentRing covers scenario S6 and Testable
// Property 9: requesting kill during PrintPhasePlate unwinds after the
// current ring with the shutter closed and lasing disabled, without
// starting further rings.
func TestKillMidRunStopsAfterCurrentRing(t *testing.T) {
	w, laser, shutter := newTestWorker(t, nil)

	// Substitute a motion whose MotionStatus sets the kill flag once
	// ring 3 has completed, simulating "kill requested after ring 3."
	killer := &killingMotion{FakeMotion: &instrument.FakeMotion{MaxSpeed: 1000}, onWait: func() {
		if w.Telemetry().Read().RingCounter >= 4 {
			w.Telemetry().RequestKill()
		}
	}}
	coord, err := coordinator.New(laser, shutter, killer, 12.5, 12.5)
	if err != nil {
		t.Fatalf("coordinator.New: %v", err)
	}
	w.coord = coord

	go w.Run()
	w.Commands() <- PrintPhasePlateCmd{}
	waitIdle(t, w)

	snap := w.Telemetry().Read()
	if snap.RingCounter > 5 {
		t.Fatalf("ring_counter = %d, run should have stopped well before ring 5", snap.RingCounter)
	}
	open, _ := shutter.State()
	if open {
		t.Fatal("shutter should be closed after a kill mid-run")
	}
	if laser.IsEnabled() {
		t.Fatal("lasing should be disabled after a kill mid-run")
	}
}

// killingMotion wraps FakeMotion to trigger a side effect on
// MotionStatus, used to simulate a kill request arriving mid-run.
type killingMotion struct {
	*instrument.FakeMotion
	onWait func()
}

func (k *killingMotion) MotionStatus() ([3]bool, error) {
	k.onWait()
	return k.FakeMotion.MotionStatus()
}

func waitIdle(t *testing.T, w *Worker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(w.commands) == 0 && !w.Telemetry().Busy() {
			time.Sleep(5 * time.Millisecond)
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("worker did not drain its command queue in time")
}
