package client

// State is the lifecycle position of one RCON session.
//
//	Disconnected → Connecting → Authenticating → Ready → Closing → Disconnected
//
// Any non-terminal state may transition to Faulted on a transport or
// protocol failure. Faulted is terminal; a clean close returns the client
// to Disconnected, from which it may connect again.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateReady
	StateClosing
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// terminal reports whether no further transitions can occur from s,
// other than Disconnected accepting a fresh connect.
func (s State) terminal() bool {
	return s == StateDisconnected || s == StateFaulted
}
