package instrument

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Laser speaks the 19200 8N1 ASCII protocol: commands terminated by CR,
// responses terminated by CRLF, a null byte in the response means
// CommandUnknown, an empty response means ConnectionLost.
type Laser struct {
	*Port
}

// NewLaser builds a Laser bound to the given port name. Open must be
// called before use.
func NewLaser(name string) *Laser {
	return &Laser{Port: newPort("Laser", name, 19200, 500*time.Millisecond, false)}
}

// Open opens the underlying port and sends the required initialization
// sequence that switches the device into the numeric protocol mode every
// other command assumes (laser_controller.py: self.send_command(">=0")).
func (l *Laser) Open() error {
	if err := l.Port.Open(); err != nil {
		return err
	}
	if _, err := l.Send(">=0"); err != nil {
		l.Port.Close()
		return err
	}
	return nil
}

// Send writes a command and returns the trimmed response, or an
// *Error on protocol failure.
func (l *Laser) Send(cmd string) (string, error) {
	if err := l.writeLine(cmd); err != nil {
		return "", err
	}
	resp := l.readUntil([]byte("\r\n"))
	if resp == "" {
		log.Printf("Laser: connection lost sending %q", cmd)
		return "", &Error{Kind: ConnectionLost, Device: "Laser"}
	}
	if strings.ContainsRune(resp, 0) {
		log.Printf("Laser: command %q unknown", cmd)
		return "", &Error{Kind: CommandUnknown, Device: "Laser", Reason: cmd}
	}
	log.Printf("Laser: sent %q, response %q", cmd, resp)
	return strings.TrimRight(resp, "\r\n"), nil
}

// ConnectionCheck sends an empty command and expects the bare CRLF.
func (l *Laser) ConnectionCheck() bool {
	if err := l.writeLine(""); err != nil {
		return false
	}
	resp := l.readUntil([]byte("\r\n"))
	ok := resp == "\r\n"
	if ok {
		log.Println("Laser: connection check successful")
	} else {
		log.Println("Laser: connection check failed")
	}
	return ok
}

// SetPower sets the laser power in mW (OpticalActuator capability).
func (l *Laser) SetPower(mW int) error {
	_, err := l.Send(fmt.Sprintf("P=%d", mW))
	return err
}

// Enable turns lasing on (1) or off (0) (OpticalActuator capability).
func (l *Laser) Enable(on bool) error {
	v := 0
	if on {
		v = 1
	}
	_, err := l.Send(fmt.Sprintf("L=%d", v))
	return err
}
