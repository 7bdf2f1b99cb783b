package client

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Connect, SendCommand and Disconnect. Check
// with errors.Is; returned values may wrap a lower-level cause.
var (
	// ErrNotConnected indicates a command was sent outside the Ready state.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect was called on a live session.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrAuthFailed indicates the server rejected the password, or no
	// auth response arrived within the handshake deadline.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrCommandTimeout indicates no reassembled response arrived within
	// the command deadline. The session itself stays usable.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrConnectionLost indicates the transport failed after Ready.
	ErrConnectionLost = errors.New("connection lost")

	// ErrProtocol indicates the server violated the wire protocol:
	// malformed framing, or a non-empty response to the end-of-response
	// probe. The session faults; truncated output is never returned.
	ErrProtocol = errors.New("protocol violation")

	// ErrCancelled indicates the caller aborted the command or
	// disconnected while it was outstanding.
	ErrCancelled = errors.New("cancelled")
)

// ConnectError wraps a socket or DNS failure during Connect.
type ConnectError struct {
	Host  string
	Port  int
	Cause error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s:%d: %v", e.Host, e.Port, e.Cause)
}

func (e *ConnectError) Unwrap() error {
	return e.Cause
}
