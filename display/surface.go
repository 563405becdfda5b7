// Package display implements the secondary full-screen SLM display as an
// HTTP/websocket kiosk page: a condition-variable broadcast loop pushes
// grayscale phase-plate frames to every connected viewer.
package display

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/anghofus/sineplate/synth"
)

// ErrNoSuchMonitor is returned when a caller asks the surface to bind to
// a monitor slug that isn't configured.
var ErrNoSuchMonitor = errors.New("display: no such monitor")

// Surface is a single full-screen display target. Show must be called
// from the goroutine that owns the surface (mirrors "main-thread only");
// ThreadSafeShow is safe from any goroutine, in particular the Worker.
type Surface struct {
	monitors map[string]bool

	cond    sync.Cond
	current *synth.Frame
}

// New builds a Surface restricted to the given monitor slugs (e.g. the
// set of kiosk pages an operator has opened). An empty set means any
// monitor slug is accepted.
func New(monitors ...string) *Surface {
	s := &Surface{cond: *sync.NewCond(&sync.Mutex{})}
	if len(monitors) > 0 {
		s.monitors = make(map[string]bool, len(monitors))
		for _, m := range monitors {
			s.monitors[m] = true
		}
	}
	return s
}

// Bind validates that monitor is a configured display slug.
func (s *Surface) Bind(monitor string) error {
	if s.monitors == nil {
		return nil
	}
	if !s.monitors[monitor] {
		return fmt.Errorf("%w: %q", ErrNoSuchMonitor, monitor)
	}
	return nil
}

// Show presents frame immediately. The frame is retained by the Surface
// until the next Show call, so it stays valid for the full lifetime of
// display.
func (s *Surface) Show(frame *synth.Frame) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.current = frame
	s.cond.Broadcast()
}

// ThreadSafeShow is Show, safe to call from any goroutine: lock, store,
// Broadcast.
func (s *Surface) ThreadSafeShow(frame *synth.Frame) {
	s.Show(frame)
}

// Handler returns the websocket handler that streams every subsequent
// frame to a connected kiosk page.
func (s *Surface) Handler() websocket.Handler {
	return s.stream
}

// stream sends each new frame's raw grayscale bytes as a single websocket
// message each time Broadcast wakes it.
func (s *Surface) stream(w *websocket.Conn) {
	log.Printf("display: kiosk connected from %s", w.Config().Origin)
	defer w.Close()

	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	var last *synth.Frame
	var err error
	for err == nil {
		for s.current == last {
			s.cond.Wait()
		}
		frame := s.current
		s.cond.L.Unlock()

		var buf []byte
		for _, row := range frame {
			buf = append(buf, row[:]...)
		}
		_, err = w.Write(buf)

		s.cond.L.Lock()
		last = frame
	}
	log.Printf("display: kiosk %s disconnected: %v", w.Config().Origin, err)
}
