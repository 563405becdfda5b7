package instrument

import (
	"log"
	"strings"
	"time"
)

// Shutter speaks the SC10-style 9600 8N1 protocol: commands terminated
// by CR, responses terminated by the device prompt '>'.
type Shutter struct {
	*Port
}

// NewShutter builds a Shutter bound to the given port name.
func NewShutter(name string) *Shutter {
	return &Shutter{Port: newPort("Shutter", name, 9600, 500*time.Millisecond, false)}
}

// Send writes a command and returns the response up to and including the
// trailing prompt.
func (s *Shutter) Send(cmd string) (string, error) {
	if err := s.writeLine(cmd); err != nil {
		return "", err
	}
	resp := s.readUntil([]byte(">"))
	log.Printf("Shutter: sent %q, response %q", cmd, resp)
	return resp, nil
}

// ConnectionCheck relies on the device replying with the literal
// "Command error CMD_NOT_DEFINED" to an empty command.
func (s *Shutter) ConnectionCheck() bool {
	resp, err := s.Send("")
	if err != nil {
		return false
	}
	ok := strings.Contains(resp, "Command error CMD_NOT_DEFINED")
	if ok {
		log.Println("Shutter: connection check successful")
	} else {
		log.Println("Shutter: connection check failed")
	}
	return ok
}

// State reports whether the shutter is currently open.
func (s *Shutter) State() (open bool, err error) {
	resp, err := s.Send("ens?")
	if err != nil {
		return false, err
	}
	switch {
	case strings.Contains(resp, "1"):
		return true, nil
	case strings.Contains(resp, "0"):
		return false, nil
	default:
		return false, &Error{Kind: ProtocolTimeout, Device: "Shutter", Reason: "unreadable state " + resp}
	}
}

// Open opens the shutter if closed. It is idempotent: a toggle is only
// issued when the shutter is observed closed. Returns whether a toggle
// was performed.
func (s *Shutter) Open() (bool, error) {
	open, err := s.State()
	if err != nil {
		return false, err
	}
	if open {
		log.Println("Shutter: already open")
		return false, nil
	}
	if _, err := s.Send("ens"); err != nil {
		return false, err
	}
	log.Println("Shutter: opened")
	return true, nil
}

// CloseShutter closes the shutter if open. Idempotent, mirrors Open.
func (s *Shutter) CloseShutter() (bool, error) {
	open, err := s.State()
	if err != nil {
		return false, err
	}
	if !open {
		log.Println("Shutter: already closed")
		return false, nil
	}
	if _, err := s.Send("ens"); err != nil {
		return false, err
	}
	log.Println("Shutter: closed")
	return true, nil
}
