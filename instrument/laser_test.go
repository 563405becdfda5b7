package instrument

import (
	"bufio"
	"errors"
	"net"
	"testing"
)

func newTestLaser() (*Laser, *bufio.Reader, net.Conn) {
	p, server, r := newPipePort("Laser")
	return &Laser{Port: p}, r, server
}

func TestLaserSetPower(t *testing.T) {
	l, r, server := newTestLaser()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		cmd, err := readCommand(r)
		if err != nil {
			done <- err
			return
		}
		if cmd != "P=150" {
			done <- unexpected(cmd)
			return
		}
		server.Write([]byte("150\r\n"))
		done <- nil
	}()

	if err := l.SetPower(150); err != nil {
		t.Fatalf("SetPower: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestLaserEnable(t *testing.T) {
	l, r, server := newTestLaser()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		cmd, err := readCommand(r)
		if err != nil {
			done <- err
			return
		}
		if cmd != "L=1" {
			done <- unexpected(cmd)
			return
		}
		server.Write([]byte("1\r\n"))
		done <- nil
	}()
	if err := l.Enable(true); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestLaserCommandUnknown(t *testing.T) {
	l, r, server := newTestLaser()
	defer server.Close()

	go func() {
		readCommand(r)
		server.Write([]byte{0, '\r', '\n'})
	}()

	_, err := l.Send("BOGUS")
	var ie *Error
	if !errors.As(err, &ie) || ie.Kind != CommandUnknown {
		t.Fatalf("expected CommandUnknown, got %v", err)
	}
}

func TestLaserConnectionLost(t *testing.T) {
	l, r, server := newTestLaser()
	defer server.Close()

	go func() {
		readCommand(r)
		server.Close()
	}()

	_, err := l.Send("P=1")
	var ie *Error
	if !errors.As(err, &ie) || ie.Kind != ConnectionLost {
		t.Fatalf("expected ConnectionLost, got %v", err)
	}
}
