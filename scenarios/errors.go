package scenarios

import (
	"errors"
	"fmt"

	"github.com/sandarsh/moq-interop-runner/supervise"
)

// ConnectError reports that a session to the relay could not be established.
type ConnectError struct {
	Role string // "publisher", "subscriber" or empty for single-session scenarios
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("failed to connect: %v", e.Err)
	}
	return fmt.Sprintf("%s failed to connect: %v", e.Role, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ProtocolError reports an announcement or subscription event that signalled
// an unexpected condition.
type ProtocolError struct {
	Msg string
	Err error // underlying cause, may be nil
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Failure classes reported alongside failed scenarios.
const (
	FailureTimeout  = "timeout"
	FailureConnect  = "connect"
	FailureProtocol = "protocol"
	FailureOther    = "other"
)

// ClassifyFailure buckets a scenario error. A deadline wins over whatever the
// scenario was doing when it expired.
func ClassifyFailure(err error) string {
	switch {
	case supervise.IsTimeout(err):
		return FailureTimeout
	case IsConnectFailure(err):
		return FailureConnect
	case IsProtocolFailure(err):
		return FailureProtocol
	default:
		return FailureOther
	}
}

// IsConnectFailure checks if the error is or wraps a ConnectError
func IsConnectFailure(err error) bool {
	var connectErr *ConnectError
	return err != nil && errors.As(err, &connectErr)
}

// IsProtocolFailure checks if the error is or wraps a ProtocolError
func IsProtocolFailure(err error) bool {
	var protocolErr *ProtocolError
	return err != nil && errors.As(err, &protocolErr)
}
