package client

// StateChange is one observed transition of the session state machine.
// Err is non-nil only when To is StateFaulted.
type StateChange struct {
	From State
	To   State
	Err  error
}

// eventBuffer is the capacity of the Events channel. Transitions are sent
// in the order they occur; if the owner stops draining, newer events are
// dropped rather than blocking the session.
const eventBuffer = 16

// Events returns the channel of state transitions. The channel is owned by
// the client and never closed; drain it from a dedicated goroutine.
func (c *Client) Events() <-chan StateChange {
	return c.events
}

// setStateLocked transitions to next and publishes the change. Caller
// holds c.mu, which serializes transitions and keeps delivery in
// transition order.
func (c *Client) setStateLocked(next State, err error) {
	prev := c.state
	if prev == next {
		return
	}
	c.state = next
	c.log.Debug("state change", "from", prev.String(), "to", next.String(), "err", err)

	select {
	case c.events <- StateChange{From: prev, To: next, Err: err}:
	default:
	}
}
