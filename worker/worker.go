// Package worker runs the single dedicated Motion Worker goroutine: it
// owns the Coordinator exclusively, consumes a bounded command queue,
// and publishes telemetry the UI polls.
package worker

import (
	"log"
	"time"

	"github.com/anghofus/sineplate/coordinator"
	"github.com/anghofus/sineplate/display"
	"github.com/anghofus/sineplate/instrument"
	"github.com/anghofus/sineplate/settings"
	"github.com/anghofus/sineplate/synth"
)

// Laser is the narrow capability SendLaserCommandCmd needs directly,
// beyond what coordinator.Laser already exposes.
type Laser interface {
	coordinator.Laser
	Send(cmd string) (string, error)
}

// Worker is the dedicated goroutine that owns a Coordinator for its
// entire lifetime; nothing else touches the instrument ports.
type Worker struct {
	coord     *coordinator.Coordinator
	laser     Laser
	settings  settings.Settings
	surface   *display.Surface
	telemetry *Telemetry

	commands chan Command
	errors   chan instrument.Error

	tickInterval time.Duration
}

// New builds a Worker around an already-connected Coordinator. laser must
// be the same concrete value passed into coordinator.New as its Laser
// capability, so SendLaserCommandCmd can reach the raw protocol.
func New(coord *coordinator.Coordinator, laser Laser, s settings.Settings, surface *display.Surface, queueDepth int) *Worker {
	return &Worker{
		coord:        coord,
		laser:        laser,
		settings:     s,
		surface:      surface,
		telemetry:    &Telemetry{},
		commands:     make(chan Command, queueDepth),
		errors:       make(chan instrument.Error, queueDepth),
		tickInterval: 500 * time.Millisecond,
	}
}

// Commands returns the inbound queue the UI submits CommandEnvelope
// values to.
func (w *Worker) Commands() chan<- Command { return w.commands }

// Errors returns the outbound queue the UI polls for per-command
// failures.
func (w *Worker) Errors() <-chan instrument.Error { return w.errors }

// Telemetry returns the shared telemetry cell.
func (w *Worker) Telemetry() *Telemetry { return w.telemetry }

// Run is the Worker's main loop: block on the command queue, dispatch,
// clear busy, repeat. It returns when a CloseConnectionCmd has been
// processed or the kill flag is observed between commands.
func (w *Worker) Run() {
	for cmd := range w.commands {
		w.telemetry.SetBusy(true)
		w.dispatch(cmd)
		w.telemetry.SetBusy(false)

		if _, ok := cmd.(CloseConnectionCmd); ok {
			return
		}
		if w.telemetry.KillRequested() {
			w.coord.Close()
			return
		}
	}
}

func (w *Worker) dispatch(cmd Command) {
	switch c := cmd.(type) {
	case PrintPhasePlateCmd:
		// Bypasses the retry policy entirely: it handles its own
		// per-ring failure reporting.
		if err := w.printPhasePlate(); err != nil {
			w.postError(err)
		}
	case GoToFocusLocationCmd:
		w.withRetry(func() error { return w.coord.GoToFocusLocation(c.Tag) })
	case OpenShutterCmd:
		w.withRetry(func() error { _, err := w.coord.Shutter.Open(); return err })
	case CloseShutterCmd:
		w.withRetry(func() error { _, err := w.coord.Shutter.CloseShutter(); return err })
	case SendLaserCommandCmd:
		w.withRetry(func() error { _, err := w.laser.Send(c.Raw); return err })
	case CloseConnectionCmd:
		if err := w.coord.Close(); err != nil {
			w.postError(err)
		}
	}
}

// withRetry retries a failed instrument call at most once: the first
// failure is logged and retried, the second is surfaced on the error
// queue. An InvalidArgument failure is surfaced at once, without a retry.
// Never applies to PrintPhasePlate.
func (w *Worker) withRetry(fn func() error) {
	err := fn()
	if err == nil {
		return
	}
	if ie, ok := err.(*instrument.Error); ok && ie.Kind == instrument.InvalidArgument {
		w.postError(err)
		return
	}
	log.Printf("worker: command failed, retrying: %v", err)
	if err := fn(); err != nil {
		w.postError(err)
	}
}

func (w *Worker) postError(err error) {
	ie, ok := err.(*instrument.Error)
	if !ok {
		ie = &instrument.Error{Kind: instrument.DeviceError, Device: "worker", Reason: err.Error()}
	}
	select {
	case w.errors <- *ie:
	default:
		log.Printf("worker: error queue full, dropping: %v", ie)
	}
}

// printPhasePlate synthesizes frames, moves to center, and runs the
// per-ring loop, ticking telemetry every ~500ms and honoring the kill
// flag between rings. On any instrument failure or a kill request it
// unwinds by stopping motion, closing the shutter, and disabling lasing.
func (w *Worker) printPhasePlate() error {
	frames, err := synth.Synthesize(w.settings, synth.Options{})
	if err != nil {
		return err
	}

	w.telemetry.SetRingTotals(len(frames))

	if err := w.coord.GoToFocusLocation(coordinator.Center); err != nil {
		return w.unwind(err)
	}

	gratingWidthM := w.settings.GratingWidthUM / 1e6
	gratingHeightM := w.settings.GratingHeightUM / 1e6

	for i := range frames {
		if w.surface != nil {
			w.surface.ThreadSafeShow(&frames[i])
		}

		if err := w.coord.PrintRing(i, gratingWidthM, gratingHeightM, w.settings.ExposureTimeS, w.settings.LaserPowerMW); err != nil {
			return w.unwind(err)
		}

		if err := w.waitTickingTelemetry(); err != nil {
			return w.unwind(err)
		}

		if _, err := w.coord.Shutter.CloseShutter(); err != nil {
			return w.unwind(err)
		}

		w.telemetry.AdvanceRing()

		if w.telemetry.KillRequested() {
			if err := w.coord.StopMovement(); err != nil {
				return err
			}
			return w.laser.Enable(false)
		}
	}

	return w.laser.Enable(false)
}

// waitTickingTelemetry polls motion completion inline on the Worker's own
// goroutine, refreshing position and speed telemetry roughly every
// tickInterval. It deliberately does not delegate to coord.WaitForMovement
// from a second goroutine: that call and a concurrent Position/Speed tick
// would both write and read the same serial port's bufio.Reader at once,
// corrupting TS/TP/TV framing on the wire. Instrument ports are
// thread-confined to this single goroutine.
func (w *Worker) waitTickingTelemetry() error {
	lastTick := time.Now()
	for {
		status, err := w.coord.Motion.MotionStatus()
		if err != nil {
			return err
		}
		if !motionBitsSet(status) {
			w.tick()
			return nil
		}
		if time.Since(lastTick) >= w.tickInterval {
			w.tick()
			lastTick = time.Now()
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func motionBitsSet(s [3]bool) bool {
	return s[0] || s[1] || s[2]
}

func (w *Worker) tick() {
	if pos, err := w.coord.Motion.Position(); err == nil {
		w.telemetry.SetPosition(pos)
	}
	if speed, err := w.coord.Motion.Speed(); err == nil {
		w.telemetry.SetSpeed(speed)
	}
}

// unwind performs the cleanup after an instrument error mid-run: stop
// movement, close the shutter, disable lasing, then report the original
// error. A kill request is handled inside the ring loop instead.
func (w *Worker) unwind(cause error) error {
	w.coord.StopMovement()
	w.coord.Shutter.CloseShutter()
	w.laser.Enable(false)
	return cause
}
