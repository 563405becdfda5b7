package worker

import "github.com/anghofus/sineplate/coordinator"

// Command is the tagged sum type submitted to the Worker's inbound queue,
// dispatched by type switch instead of reflective lookup.
type Command interface {
	isCommand()
}

// GoToFocusLocationCmd asks the Coordinator to jog to one of the five
// fiducial focus positions.
type GoToFocusLocationCmd struct {
	Tag coordinator.FocusTag
}

// PrintPhasePlateCmd starts a full phase-plate exposure run.
type PrintPhasePlateCmd struct{}

// CloseConnectionCmd tells the Worker to close all instrument ports and
// exit its loop.
type CloseConnectionCmd struct{}

// OpenShutterCmd opens the shutter directly, bypassing print orchestration.
type OpenShutterCmd struct{}

// CloseShutterCmd closes the shutter directly.
type CloseShutterCmd struct{}

// SendLaserCommandCmd forwards a raw command string to the laser
// controller, for manual diagnostics from the UI.
type SendLaserCommandCmd struct {
	Raw string
}

func (GoToFocusLocationCmd) isCommand() {}
func (PrintPhasePlateCmd) isCommand()   {}
func (CloseConnectionCmd) isCommand()   {}
func (OpenShutterCmd) isCommand()       {}
func (CloseShutterCmd) isCommand()      {}
func (SendLaserCommandCmd) isCommand()  {}
