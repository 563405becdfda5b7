package instrument

import (
	"bufio"
	"net"
	"strconv"
	"testing"
)

func newTestMotion() (*Motion, *bufio.Reader, net.Conn) {
	p, server, r := newPipePort("Motion")
	return &Motion{Port: p, MaxSpeed: 1000}, r, server
}

// TestMotionMoveAbsoluteSequence verifies the EP/VA/PA/WS/VA(restore)/QP/
// EX/XX command program and its single TE-based completion check.
func TestMotionMoveAbsoluteSequence(t *testing.T) {
	m, r, server := newTestMotion()
	defer server.Close()

	want := []string{
		"TB",
		"1VA?",
		"1EP",
		"1VA500",
		"1PA10",
		"1WS",
		"1VA400",
		"1QP",
		"1EX",
		"1XX",
		"TE",
	}
	resp := map[string]string{
		"TB":     "NO ERROR DETECTED",
		"1VA?":   "400",
		"1EP":    "",
		"1VA500": "",
		"1PA10":  "",
		"1WS":    "",
		"1VA400": "",
		"1QP":    "",
		"1EX":    "",
		"1XX":    "",
		"TE":     "0",
	}

	done := make(chan error, 1)
	go func() {
		for i, w := range want {
			cmd, err := readCommand(r)
			if err != nil {
				done <- err
				return
			}
			if cmd != w {
				done <- unexpected(cmd + " (wanted " + w + " at step " + itoaTest(i) + ")")
				return
			}
			server.Write([]byte(resp[cmd] + "\r\r\n"))
		}
		done <- nil
	}()

	if err := m.MoveAbsolute(1, 10, 500); err != nil {
		t.Fatalf("MoveAbsolute: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestMotionMoveAbsoluteRejectsExcessiveSpeed(t *testing.T) {
	m, _, server := newTestMotion()
	defer server.Close()
	m.MaxSpeed = 200

	err := m.MoveAbsolute(1, 10, 500)
	ie, ok := err.(*Error)
	if !ok || ie.Kind != InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestMotionMoveAbsoluteRejectsOutOfRangePosition(t *testing.T) {
	m, _, server := newTestMotion()
	defer server.Close()

	err := m.MoveAbsolute(1, 30, 10)
	ie, ok := err.(*Error)
	if !ok || ie.Kind != InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	err = m.MoveAbsolute(3, 400, 10)
	ie, ok = err.(*Error)
	if !ok || ie.Kind != InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestMotionMoveRelativeRejectsOutOfRangeTarget(t *testing.T) {
	m, r, server := newTestMotion()
	defer server.Close()

	go func() {
		for {
			cmd, err := readCommand(r)
			if err != nil {
				return
			}
			switch cmd {
			case "TP":
				server.Write([]byte("24,0,0\r\r\n"))
			case "TE":
				server.Write([]byte("0\r\r\n"))
			default:
				return
			}
		}
	}()

	err := m.MoveRelative(1, 5, 10)
	ie, ok := err.(*Error)
	if !ok || ie.Kind != InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestMotionWaitForMovementClearsImmediately(t *testing.T) {
	m, r, server := newTestMotion()
	defer server.Close()

	go func() {
		for {
			cmd, err := readCommand(r)
			if err != nil {
				return
			}
			switch cmd {
			case "TS":
				server.Write([]byte("0\r\r\n"))
			case "TE":
				server.Write([]byte("0\r\r\n"))
			default:
				return
			}
		}
	}()

	if err := m.WaitForMovement(); err != nil {
		t.Fatalf("WaitForMovement: %v", err)
	}
}

func itoaTest(i int) string {
	return strconv.Itoa(i)
}
