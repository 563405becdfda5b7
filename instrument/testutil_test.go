package instrument

import (
	"bufio"
	"fmt"
	"net"
)

// newPipePort wires a Port to one end of an in-memory pipe and hands the
// test the other end, wrapped in a bufio.Reader for convenient command
// scripting. This replaces a real serial.Port in every instrument test.
func newPipePort(device string) (*Port, net.Conn, *bufio.Reader) {
	client, server := net.Pipe()
	p := &Port{device: device}
	p.setConn(client)
	return p, server, bufio.NewReader(server)
}

// readCommand reads one CR-terminated command as the device side would.
// Background goroutines can't call t.Fatal, so failures are reported as
// an error string instead.
func readCommand(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\r')
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}

func unexpected(cmd string) error {
	return fmt.Errorf("unexpected command %q", cmd)
}
