package instrument

import (
	"bufio"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is the LineProtocol capability shared by every instrument: open a
// fixed configuration, write a CR-terminated command, read a
// device-specific terminator, close on every exit path.
//
// conn is an io.ReadWriteCloser rather than *serial.Port so tests can
// substitute an in-memory pipe for the physical device (see newPipePort in
// testutil_test.go).
type Port struct {
	device string
	conf   *serial.Config
	conn   io.ReadWriteCloser
	r      *bufio.Reader
}

func newPort(device, name string, baud int, timeout time.Duration, rtsCts bool) *Port {
	return &Port{
		device: device,
		conf: &serial.Config{
			Name:           name,
			Baud:           baud,
			ReadTimeout:    timeout,
			Size:           8,
			Parity:         serial.ParityNone,
			StopBits:       serial.Stop1,
			RTSFlowControl: rtsCts,
			CTSFlowControl: rtsCts,
		},
	}
}

// Open dials the serial device. It is a no-op if already open.
func (p *Port) Open() error {
	if p.conn != nil {
		return nil
	}
	conn, err := serial.OpenPort(p.conf)
	if err != nil {
		return &Error{Kind: ConnectionLost, Device: p.device, Reason: err.Error()}
	}
	p.setConn(conn)
	return nil
}

// setConn installs a connection (real or fake) and wraps it for line
// reads. Exported to the package for test doubles.
func (p *Port) setConn(conn io.ReadWriteCloser) {
	p.conn = conn
	p.r = bufio.NewReader(conn)
}

// Close flushes and releases the port. Safe to call more than once.
func (p *Port) Close() error {
	if p.conn == nil {
		return nil
	}
	if f, ok := p.conn.(interface{ Flush() error }); ok {
		f.Flush()
	}
	err := p.conn.Close()
	p.conn = nil
	p.r = nil
	return err
}

// writeLine sends a CR-terminated command, the framing every device in
// this system's protocol set uses on the write side (esp_controller.py,
// laser_controller.py, shutter_controller.py all encode f"...\r").
func (p *Port) writeLine(cmd string) error {
	_, err := p.conn.Write([]byte(cmd + "\r"))
	if err != nil {
		return &Error{Kind: ConnectionLost, Device: p.device, Reason: err.Error()}
	}
	return nil
}

// readUntil reads until the given terminator has been seen (inclusive) or
// the port's read timeout elapses. A timeout or short read is reported as
// an empty string, matching pyserial's read_until semantics that the
// original controllers depend on for "empty response == ConnectionLost".
func (p *Port) readUntil(terminator []byte) string {
	var buf []byte
	for {
		b, err := p.r.ReadByte()
		if err != nil {
			// Timeout or EOF: whatever was read so far is discarded per
			// the protocol's empty-response convention.
			return ""
		}
		buf = append(buf, b)
		if hasSuffix(buf, terminator) {
			return string(buf)
		}
	}
}

func hasSuffix(buf, suffix []byte) bool {
	if len(buf) < len(suffix) {
		return false
	}
	for i, b := range suffix {
		if buf[len(buf)-len(suffix)+i] != b {
			return false
		}
	}
	return true
}
