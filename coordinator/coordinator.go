// Package coordinator composes the three instrument ports into the
// higher-level operations the Motion Worker invokes: homing, focus
// positioning, and per-ring exposure sequencing.
package coordinator

import (
	"fmt"
	"math"

	"github.com/anghofus/sineplate/instrument"
	"github.com/anghofus/sineplate/settings"
)

// Laser is the capability Coordinator needs from a laser controller.
// Satisfied by *instrument.Laser and *instrument.FakeLaser.
type Laser interface {
	ConnectionCheck() bool
	SetPower(mW int) error
	Enable(on bool) error
	Close() error
}

// Shutter is the capability Coordinator needs from a shutter controller.
// Satisfied by *instrument.Shutter and *instrument.FakeShutter.
type Shutter interface {
	ConnectionCheck() bool
	Open() (bool, error)
	CloseShutter() (bool, error)
	Close() error
}

// Motion is the capability Coordinator needs from a motion controller.
// Satisfied by *instrument.Motion and *instrument.FakeMotion.
type Motion interface {
	ConnectionCheck() bool
	PowerOn(axis int) error
	Home(axis int) error
	MoveAbsolute(axis int, position, speed float64) error
	MoveRelative(axis int, distance, speed float64) error
	WaitForMovement() error
	StopMovement() error
	EmergencyStop() error
	MotionStatus() ([3]bool, error)
	Position() ([3]float64, error)
	Speed() ([3]float64, error)
	Close() error
}

// FocusTag names one of the five fiducial sample-plane positions.
type FocusTag int

const (
	Top FocusTag = iota
	Bottom
	Left
	Right
	Center
)

// Coordinator composes the three instrument capabilities into phased
// homing, focus, and exposure operations.
type Coordinator struct {
	Laser   Laser
	Shutter Shutter
	Motion  Motion

	centerX, centerY float64
}

// New connects and verifies the three already-open instruments, powers
// and homes all three axes, and closes the shutter as a safety default.
func New(laser Laser, shutter Shutter, motion Motion, centerX, centerY float64) (*Coordinator, error) {
	c := &Coordinator{Laser: laser, Shutter: shutter, Motion: motion, centerX: centerX, centerY: centerY}

	if !laser.ConnectionCheck() {
		return nil, &instrument.Error{Kind: instrument.ConnectionLost, Device: "Laser"}
	}
	if !shutter.ConnectionCheck() {
		return nil, &instrument.Error{Kind: instrument.ConnectionLost, Device: "Shutter"}
	}
	if !motion.ConnectionCheck() {
		return nil, &instrument.Error{Kind: instrument.ConnectionLost, Device: "Motion"}
	}

	for axis := 1; axis <= 3; axis++ {
		if err := motion.PowerOn(axis); err != nil {
			return nil, err
		}
	}
	for axis := 1; axis <= 3; axis++ {
		if err := motion.Home(axis); err != nil {
			return nil, err
		}
	}
	if err := motion.WaitForMovement(); err != nil {
		return nil, err
	}
	if _, err := shutter.CloseShutter(); err != nil {
		return nil, err
	}
	return c, nil
}

// focusCoordinates maps a FocusTag to (x, y) relative to the Settings
// center point.
func (c *Coordinator) focusCoordinates(tag FocusTag) (x, y float64, err error) {
	switch tag {
	case Top:
		return c.centerX, 22, nil
	case Bottom:
		return c.centerX, 8, nil
	case Left:
		return 12, c.centerY, nil
	case Right:
		return 0, c.centerY, nil
	case Center:
		return c.centerX, c.centerY, nil
	default:
		return 0, 0, &instrument.Error{Kind: instrument.InvalidArgument, Device: "Coordinator", Reason: fmt.Sprintf("unknown focus tag %d", tag)}
	}
}

// GoToFocusLocation moves axes 1 and 2 to the coordinates for tag, with
// the laser forced to minimum power and the shutter closed for the
// duration of the move, then re-enables lasing.
func (c *Coordinator) GoToFocusLocation(tag FocusTag) error {
	x, y, err := c.focusCoordinates(tag)
	if err != nil {
		return err
	}
	if err := c.Laser.SetPower(30); err != nil {
		return err
	}
	if _, err := c.Shutter.CloseShutter(); err != nil {
		return err
	}
	if err := c.Motion.MoveAbsolute(1, x, defaultJogSpeed); err != nil {
		return err
	}
	if err := c.Motion.MoveAbsolute(2, y, defaultJogSpeed); err != nil {
		return err
	}
	if err := c.Motion.WaitForMovement(); err != nil {
		return err
	}
	return c.Laser.Enable(true)
}

// defaultJogSpeed is the speed used for focus-location jogs, a fixed,
// conservative rate rather than a user-facing parameter.
const defaultJogSpeed = 10

// PrintRing runs the exposure sequence for ring i: for i > 0, first steps
// axis 1 inward by gratingWidthM, re-asserts lasing and power, opens the
// shutter, then issues the axis-3 rotation for this ring without waiting
// synchronously — the Motion Worker polls completion and closes the
// shutter once the ring's rotation finishes.
func (c *Coordinator) PrintRing(i int, gratingWidthM, gratingHeightM, exposureTimeS float64, laserPowerMW int) error {
	if i < 0 {
		return &instrument.Error{Kind: instrument.InvalidArgument, Device: "Coordinator", Reason: "ring index must be >= 0"}
	}
	if gratingWidthM <= 0 {
		return &instrument.Error{Kind: instrument.InvalidArgument, Device: "Coordinator", Reason: "grating_width_m must be > 0"}
	}
	if exposureTimeS < settings.ExposureTimeFloor {
		return &instrument.Error{Kind: instrument.InvalidArgument, Device: "Coordinator", Reason: fmt.Sprintf("exposure_time_s must be >= %v", settings.ExposureTimeFloor)}
	}
	if laserPowerMW < 30 || laserPowerMW > 300 {
		return &instrument.Error{Kind: instrument.InvalidArgument, Device: "Coordinator", Reason: "laser_power_mW must be in [30, 300]"}
	}

	radius := gratingWidthM * float64(i+1)
	angularSpeed := (gratingHeightM / (exposureTimeS * radius)) * 180 / math.Pi

	if i > 0 {
		if err := c.Motion.MoveRelative(1, -gratingWidthM, defaultJogSpeed); err != nil {
			return err
		}
		if err := c.Motion.WaitForMovement(); err != nil {
			return err
		}
	}

	if err := c.Laser.Enable(true); err != nil {
		return err
	}
	if err := c.Laser.SetPower(laserPowerMW); err != nil {
		return err
	}
	if _, err := c.Shutter.Open(); err != nil {
		return err
	}

	degrees := 360.0
	if i%2 == 1 {
		degrees = -360.0
	}
	return c.Motion.MoveRelative(3, degrees, angularSpeed)
}

// WaitForMovement delegates to the Motion capability.
func (c *Coordinator) WaitForMovement() error { return c.Motion.WaitForMovement() }

// StopMovement delegates to the Motion capability.
func (c *Coordinator) StopMovement() error { return c.Motion.StopMovement() }

// EmergencyStop delegates to the Motion capability.
func (c *Coordinator) EmergencyStop() error { return c.Motion.EmergencyStop() }

// Close releases all three instruments, in the order Laser, Shutter,
// Motion, reporting only the first failure but attempting all three.
func (c *Coordinator) Close() error {
	var first error
	if err := c.Laser.Close(); err != nil && first == nil {
		first = err
	}
	if err := c.Shutter.Close(); err != nil && first == nil {
		first = err
	}
	if err := c.Motion.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
