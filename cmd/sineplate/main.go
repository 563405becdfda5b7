// Command sineplate hosts the Exposure Orchestration Core: it opens the
// three instrument ports, starts the Motion Worker, and serves the
// control surface and kiosk display over HTTP.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/maruel/interrupt"

	"github.com/anghofus/sineplate/coordinator"
	"github.com/anghofus/sineplate/instrument"
	"github.com/anghofus/sineplate/settings"
	"github.com/anghofus/sineplate/worker"
)

func mainImpl() error {
	httpAddr := flag.String("http", ":8080", "address to serve the control surface and kiosk display on")
	dir := flag.String("dir", ".", "directory holding settings.json")
	fake := flag.Bool("fake", false, "use in-memory fake instruments instead of real serial ports, for dry runs")
	flag.Parse()
	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	interrupt.HandleCtrlC()

	store, err := settings.Open(*dir)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	defer store.Close()

	app, err := newApp(store, *fake)
	if err != nil {
		return fmt.Errorf("connecting instruments: %w", err)
	}

	go func() {
		<-interrupt.Channel
		app.worker.Telemetry().RequestKill()
	}()

	mux := app.routes()
	fmt.Printf("Listening on %s\n", *httpAddr)
	go serve(*httpAddr, mux)

	workerDone := make(chan struct{})
	go func() {
		app.worker.Run()
		close(workerDone)
	}()

	for !interrupt.IsSet() {
		select {
		case e := <-app.worker.Errors():
			fmt.Printf("\ninstrument error: %s\n", e.Error())
		case <-time.After(time.Second):
		}
	}
	app.worker.Commands() <- worker.CloseConnectionCmd{}
	<-workerDone
	fmt.Print("\n")
	return nil
}

// newApp connects the three instrument ports (or their in-memory fakes),
// homes all three axes, and wires a Worker and Surface around the result.
func newApp(store *settings.Store, fake bool) (*App, error) {
	s := store.Snapshot()
	surface := newDisplaySurface()

	var (
		laserConn   laserCapability
		shutterConn shutterCapability
		motionConn  motionCapability
	)
	if fake {
		laserConn = &instrument.FakeLaser{}
		shutterConn = &instrument.FakeShutter{}
		motionConn = &instrument.FakeMotion{MaxSpeed: 1000}
	} else {
		laser := instrument.NewLaser(s.LaserPort)
		if err := laser.Open(); err != nil {
			return nil, err
		}
		shutter := instrument.NewShutter(s.ShutterPort)
		if err := shutter.Port.Open(); err != nil {
			laser.Close()
			return nil, err
		}
		motion := instrument.NewMotion(s.MotionPort)
		if err := motion.Open(); err != nil {
			laser.Close()
			shutter.Close()
			return nil, err
		}
		laserConn, shutterConn, motionConn = laser, shutter, motion
	}

	coord, err := coordinator.New(laserConn, shutterConn, motionConn, s.CenterPointXMM, s.CenterPointYMM)
	if err != nil {
		return nil, err
	}

	w := worker.New(coord, laserConn, s, surface, 8)
	return &App{store: store, worker: w, surface: surface}, nil
}

// laserCapability/shutterCapability/motionCapability pin down, at this
// package boundary, exactly which interface each newApp branch must
// satisfy whether it picked a real port or a fake.
type laserCapability = worker.Laser
type shutterCapability = coordinator.Shutter
type motionCapability = coordinator.Motion

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "sineplate: %s.\n", err)
		os.Exit(1)
	}
}
