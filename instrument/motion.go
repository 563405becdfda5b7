package instrument

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// Motion speaks the Newport-ESP-style 19200 8N1 RTS/CTS protocol:
// a canonical {axis}{mnemonic}{argument} triplet terminated by CR,
// responses terminated by the three-byte sequence CR CR LF.
type Motion struct {
	*Port
	// MaxSpeed bounds the speed argument validated in MoveAbsolute /
	// MoveRelative. Some firmware exposes a per-axis velocity-upper-limit
	// query ("VU"); here it's treated as a single fixed safety ceiling
	// instead.
	MaxSpeed float64
}

// NewMotion builds a Motion controller bound to the given port name.
func NewMotion(name string) *Motion {
	return &Motion{
		Port:     newPort("Motion", name, 19200, 500*time.Millisecond, true),
		MaxSpeed: 1000,
	}
}

// SendNoCheck issues the command triplet and returns the raw response
// without consulting the device's error channel. Used internally when
// several commands are queued and errors are checked once at the end.
func (m *Motion) SendNoCheck(axis int, mnemonic string, arg string) (string, error) {
	cmd := mnemonic
	if axis > 0 {
		cmd = strconv.Itoa(axis) + cmd
	}
	cmd += arg
	if err := m.writeLine(cmd); err != nil {
		return "", err
	}
	resp := m.readUntil([]byte("\r\r\n"))
	log.Printf("Motion: sent %q, response %q", cmd, resp)
	return resp, nil
}

// Send issues the command triplet and checks the device's error channel
// (TE) immediately afterward, translating a non-zero count into
// DeviceError with the decoded buffer.
func (m *Motion) Send(axis int, mnemonic string, arg string) (string, error) {
	resp, err := m.SendNoCheck(axis, mnemonic, arg)
	if err != nil {
		return "", err
	}
	if err := m.errorCheck(); err != nil {
		return "", err
	}
	return resp, nil
}

// errorCheck issues a single TE and translates a non-zero error count
// into DeviceError with the TB buffer decoded, the same completion check
// Send and program share so a command program ends with exactly one TE.
func (m *Motion) errorCheck() error {
	errCode, err := m.SendNoCheck(0, "TE", "")
	if err != nil {
		return err
	}
	errCode = strings.TrimSpace(errCode)
	if errCode == "" {
		return &Error{Kind: ConnectionLost, Device: "Motion"}
	}
	n, convErr := strconv.Atoi(errCode)
	if convErr != nil {
		return &Error{Kind: ProtocolTimeout, Device: "Motion", Reason: "unreadable error code " + errCode}
	}
	if n == 0 {
		return nil
	}
	buf, _ := m.SendNoCheck(0, "TB", "")
	return &Error{Kind: DeviceError, Device: "Motion", Reason: strings.TrimSpace(buf)}
}

// ConnectionCheck sends a parameterless TE and expects any response.
func (m *Motion) ConnectionCheck() bool {
	resp, err := m.SendNoCheck(0, "TE", "")
	ok := err == nil && resp != ""
	if ok {
		log.Println("Motion: connection check successful")
	} else {
		log.Println("Motion: connection check failed")
	}
	return ok
}

// ClearErrorBuffer drains TB until the sentinel "NO ERROR DETECTED" is
// observed. Called before any movement to flush stale controller errors.
func (m *Motion) ClearErrorBuffer() error {
	for {
		resp, err := m.SendNoCheck(0, "TB", "")
		if err != nil {
			return err
		}
		if strings.Contains(resp, "NO ERROR DETECTED") {
			return nil
		}
	}
}

// PowerOn sends MO (Motor On) for the given axis.
func (m *Motion) PowerOn(axis int) error {
	_, err := m.Send(axis, "MO", "")
	return err
}

// Home sends OR (Origin Search) for the given axis.
func (m *Motion) Home(axis int) error {
	_, err := m.Send(axis, "OR", "")
	return err
}

// MotionStatus reports, per axis 1..3, whether the axis is currently in
// motion. Grounded on esp_controller.py's get_motion_status: TS returns a
// byte whose low 3 bits are the per-axis motion bitmap.
func (m *Motion) MotionStatus() ([3]bool, error) {
	var status [3]bool
	resp, err := m.Send(0, "TS", "")
	if err != nil {
		return status, err
	}
	resp = strings.TrimRight(resp, "\r\n")
	if len(resp) == 0 {
		return status, &Error{Kind: ProtocolTimeout, Device: "Motion", Reason: "empty TS response"}
	}
	bitmap := resp[0]
	for i := 0; i < 3; i++ {
		status[i] = bitmap&(1<<uint(i)) != 0
	}
	return status, nil
}

// Position reports the current position of all three axes (TP).
func (m *Motion) Position() ([3]float64, error) {
	return m.queryTriplet("TP")
}

// Speed reports the current velocity of all three axes (TV, queried per
// axis since the device has no combined form).
func (m *Motion) Speed() ([3]float64, error) {
	var out [3]float64
	for axis := 1; axis <= 3; axis++ {
		resp, err := m.Send(axis, "TV", "")
		if err != nil {
			return out, err
		}
		v, convErr := strconv.ParseFloat(strings.TrimSpace(resp), 64)
		if convErr != nil {
			return out, &Error{Kind: ProtocolTimeout, Device: "Motion", Reason: "unreadable TV " + resp}
		}
		out[axis-1] = v
	}
	return out, nil
}

func (m *Motion) queryTriplet(mnemonic string) ([3]float64, error) {
	var out [3]float64
	resp, err := m.Send(0, mnemonic, "")
	if err != nil {
		return out, err
	}
	parts := strings.Split(strings.TrimSpace(resp), ",")
	if len(parts) != 3 {
		return out, &Error{Kind: ProtocolTimeout, Device: "Motion", Reason: "unexpected " + mnemonic + " response " + resp}
	}
	for i, p := range parts {
		v, convErr := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if convErr != nil {
			return out, &Error{Kind: ProtocolTimeout, Device: "Motion", Reason: "unreadable " + mnemonic + " component " + p}
		}
		out[i] = v
	}
	return out, nil
}

// axisTravelRange returns the valid absolute position range for axis:
// 0-25 for the two translation axes, 0-360 for the rotation axis.
func axisTravelRange(axis int) (min, max float64, err error) {
	switch axis {
	case 1, 2:
		return 0, 25, nil
	case 3:
		return 0, 360, nil
	default:
		return 0, 0, &Error{Kind: InvalidArgument, Device: "Motion", Reason: fmt.Sprintf("axis %d out of range", axis)}
	}
}

// positionEpsilon tolerates the small deviation between a commanded
// target and where the hardware actually reports sitting.
const positionEpsilon = 1e-3

// MoveAbsolute composes EP/VA/PA/WS/VA(restore)/QP/EX/XX on the given
// axis.
func (m *Motion) MoveAbsolute(axis int, position, speed float64) error {
	if speed > m.MaxSpeed {
		return &Error{Kind: InvalidArgument, Device: "Motion", Reason: fmt.Sprintf("speed %v exceeds max %v", speed, m.MaxSpeed)}
	}
	min, max, err := axisTravelRange(axis)
	if err != nil {
		return err
	}
	if position < min-positionEpsilon || position > max+positionEpsilon {
		return &Error{Kind: InvalidArgument, Device: "Motion", Reason: fmt.Sprintf("axis %d position %v outside [%v, %v]", axis, position, min, max)}
	}
	return m.program(axis, "PA", position, speed)
}

// MoveRelative composes the same sequence with PR in place of PA, after
// confirming the resulting absolute position stays within the axis's
// travel range.
func (m *Motion) MoveRelative(axis int, distance, speed float64) error {
	if speed > m.MaxSpeed {
		return &Error{Kind: InvalidArgument, Device: "Motion", Reason: fmt.Sprintf("speed %v exceeds max %v", speed, m.MaxSpeed)}
	}
	min, max, err := axisTravelRange(axis)
	if err != nil {
		return err
	}
	current, err := m.Position()
	if err != nil {
		return err
	}
	target := current[axis-1] + distance
	if target < min-positionEpsilon || target > max+positionEpsilon {
		return &Error{Kind: InvalidArgument, Device: "Motion", Reason: fmt.Sprintf("axis %d target %v outside [%v, %v]", axis, target, min, max)}
	}
	return m.program(axis, "PR", distance, speed)
}

func (m *Motion) program(axis int, moveMnemonic string, amount, speed float64) error {
	if err := m.ClearErrorBuffer(); err != nil {
		return err
	}
	current, err := m.SendNoCheck(axis, "VA", "?")
	if err != nil {
		return err
	}
	current = strings.TrimSpace(current)
	if _, err := m.SendNoCheck(1, "EP", ""); err != nil {
		return err
	}
	if _, err := m.SendNoCheck(axis, "VA", fmt.Sprintf("%v", speed)); err != nil {
		return err
	}
	if _, err := m.SendNoCheck(axis, moveMnemonic, fmt.Sprintf("%v", amount)); err != nil {
		return err
	}
	if _, err := m.SendNoCheck(axis, "WS", ""); err != nil {
		return err
	}
	if _, err := m.SendNoCheck(axis, "VA", current); err != nil {
		return err
	}
	if _, err := m.SendNoCheck(1, "QP", ""); err != nil {
		return err
	}
	if _, err := m.SendNoCheck(1, "EX", ""); err != nil {
		return err
	}
	if _, err := m.SendNoCheck(1, "XX", ""); err != nil {
		return err
	}
	return m.errorCheck()
}

// WaitForMovement polls TS until all three motion bits are clear, then
// confirms stability across an additional ~300ms window; motion resuming
// inside that window restarts the wait.
func (m *Motion) WaitForMovement() error {
	for {
		status, err := m.MotionStatus()
		if err != nil {
			return err
		}
		if !anyTrue(status) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		status, err := m.MotionStatus()
		if err != nil {
			return err
		}
		if anyTrue(status) {
			return m.WaitForMovement()
		}
	}
	return nil
}

func anyTrue(s [3]bool) bool {
	return s[0] || s[1] || s[2]
}

// EmergencyStop sends AB (immediate abort) and waits for all motion to
// cease.
func (m *Motion) EmergencyStop() error {
	log.Println("Motion: emergency stop")
	if _, err := m.SendNoCheck(0, "AB", ""); err != nil {
		return err
	}
	return m.waitClear()
}

// StopMovement sends ST (soft stop, error-checked) and waits for all
// motion to cease.
func (m *Motion) StopMovement() error {
	if _, err := m.Send(0, "ST", ""); err != nil {
		return err
	}
	return m.waitClear()
}

func (m *Motion) waitClear() error {
	for {
		status, err := m.MotionStatus()
		if err != nil {
			return err
		}
		if !anyTrue(status) {
			return nil
		}
	}
}
