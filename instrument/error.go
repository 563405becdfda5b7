// Package instrument implements the line-oriented RS-232 protocols spoken
// by the laser, shutter, and motion controller.
package instrument

import "fmt"

// Kind classifies an instrument failure so callers can dispatch on it
// without string matching.
type Kind int

const (
	// ConnectionLost means the device produced an empty read where the
	// protocol requires a response (a timed-out read is interpreted the
	// same way).
	ConnectionLost Kind = iota
	// CommandUnknown means the device rejected the command as unrecognized.
	CommandUnknown
	// DeviceError means the device accepted the command but reported a
	// fault through its own error channel.
	DeviceError
	// InvalidArgument means the caller passed a value outside the
	// device's or the domain's valid range. Never retried.
	InvalidArgument
	// ProtocolTimeout means a device reply was empty where a value was
	// expected or could not be parsed as the expected value.
	ProtocolTimeout
)

func (k Kind) String() string {
	switch k {
	case ConnectionLost:
		return "connection lost"
	case CommandUnknown:
		return "command unknown"
	case DeviceError:
		return "device error"
	case InvalidArgument:
		return "invalid argument"
	case ProtocolTimeout:
		return "protocol timeout"
	default:
		return "unknown"
	}
}

// Error is the taxonomy required by callers that must branch on failure
// kind (retry policy, UI error dialog) rather than on error text.
type Error struct {
	Kind   Kind
	Device string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Device, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Device, e.Kind, e.Reason)
}

// Is lets errors.Is(err, instrument.Sentinel(instrument.ConnectionLost))
// work by matching on Kind instead of identity.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && e.Kind == k.kind
}

type kindSentinel struct{ kind Kind }

func (kindSentinel) Error() string { return "" }

// Sentinel returns a value usable with errors.Is to test an error's Kind,
// e.g. errors.Is(err, instrument.Sentinel(instrument.ConnectionLost)).
func Sentinel(k Kind) error { return kindSentinel{kind: k} }
