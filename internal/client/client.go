// Package client implements the Source RCON client: one authenticated TCP
// session per Client, with request/response correlation and multi-packet
// response reassembly.
//
// A single reader goroutine drains the transport while the session is
// Ready. Connect and SendCommand block their callers; neither ever blocks
// the reader. Commands may be issued concurrently; each gets its own
// request id and receives only its own response fragments.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"cs2ctl/internal/protocol"
	"cs2ctl/internal/transport"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultCommandTimeout = 5 * time.Second
)

// discardHandler is a no-op slog handler that discards all log records.
// Used when the host supplies no logger, with zero overhead.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Config holds the connection parameters for one session. The password is
// held in memory only; nothing in this package persists it.
type Config struct {
	Host     string
	Port     int
	Password string

	// ConnectTimeout bounds the dial plus the auth handshake.
	// Defaults to 5s.
	ConnectTimeout time.Duration

	// CommandTimeout bounds each SendCommand unless its context expires
	// first. Defaults to 5s.
	CommandTimeout time.Duration

	// Logger receives debug diagnostics. Nil discards everything.
	Logger *slog.Logger
}

// Client is one RCON session. Construct with New, drive with Connect /
// SendCommand / Disconnect. A Client that reaches Faulted is finished;
// reconnect policy belongs to the owner, which constructs a new Client.
//
// Client is safe for concurrent use.
type Client struct {
	cfg Config
	log *slog.Logger

	mu         sync.Mutex
	state      State
	faultErr   error
	conn       *transport.Conn
	nextID     int32
	pending    map[int32]*pendingResponse
	probes     map[int32]int32 // probe id → command id it completes
	readerDone chan struct{}

	events chan StateChange
}

// pendingResponse accumulates the fragments of one in-flight command.
type pendingResponse struct {
	fragments [][]byte
	done      chan commandResult // capacity 1, receives exactly one result
}

type commandResult struct {
	text string
	err  error
}

// New creates a disconnected client. Call Connect to open the session.
func New(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &Client{
		cfg:     cfg,
		log:     logger,
		state:   StateDisconnected,
		nextID:  1,
		pending: make(map[int32]*pendingResponse),
		probes:  make(map[int32]int32),
		events:  make(chan StateChange, eventBuffer),
	}
}

// State returns the current session state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the server and authenticates. On success the session is
// Ready and the reader goroutine is running. On failure the session is
// Faulted and the error is a *ConnectError, ErrAuthFailed or ErrProtocol.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateDisconnected:
	case StateFaulted:
		err := c.faultErr
		c.mu.Unlock()
		return fmt.Errorf("session faulted: %w", err)
	default:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, err := transport.Dial(dialCtx, c.cfg.Host, c.cfg.Port)
	if err != nil {
		cerr := &ConnectError{Host: c.cfg.Host, Port: c.cfg.Port, Cause: err}
		c.mu.Lock()
		if c.state == StateConnecting {
			c.faultErr = cerr
			c.setStateLocked(StateFaulted, cerr)
		}
		c.mu.Unlock()
		return cerr
	}

	c.mu.Lock()
	if c.state != StateConnecting { // Disconnect raced the dial
		c.mu.Unlock()
		conn.Close()
		return ErrCancelled
	}
	c.conn = conn
	authID := c.allocIDLocked()
	c.setStateLocked(StateAuthenticating, nil)
	c.mu.Unlock()

	if err := c.authenticate(conn, authID); err != nil {
		conn.Close()
		c.mu.Lock()
		if c.state == StateAuthenticating {
			c.conn = nil
			c.faultErr = err
			c.setStateLocked(StateFaulted, err)
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.state != StateAuthenticating { // Disconnect raced the handshake
		c.mu.Unlock()
		conn.Close()
		return ErrCancelled
	}
	done := make(chan struct{})
	c.readerDone = done
	c.setStateLocked(StateReady, nil)
	c.mu.Unlock()

	go c.readLoop(conn, done)

	c.log.Info("session ready", "host", c.cfg.Host, "port", c.cfg.Port)
	return nil
}

// authenticate performs the serial auth handshake. The reader goroutine is
// not running yet, so reads here are deadline-bounded and exclusive.
func (c *Client) authenticate(conn *transport.Conn, authID int32) error {
	if err := conn.WritePacket(&protocol.Packet{
		ID:   authID,
		Type: protocol.TypeAuth,
		Body: []byte(c.cfg.Password),
	}); err != nil {
		return &ConnectError{Host: c.cfg.Host, Port: c.cfg.Port, Cause: err}
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.ConnectTimeout))
	defer conn.SetReadDeadline(time.Time{})

	for {
		pkt, err := conn.ReadPacket()
		if err != nil {
			if transport.IsTimeout(err) {
				return fmt.Errorf("%w: no auth response within %v", ErrAuthFailed, c.cfg.ConnectTimeout)
			}
			if isFramingError(err) {
				return fmt.Errorf("%w: %v", ErrProtocol, err)
			}
			return &ConnectError{Host: c.cfg.Host, Port: c.cfg.Port, Cause: err}
		}

		if pkt.Type != protocol.TypeAuthResponse {
			// Servers commonly echo an empty ResponseValue ahead of the
			// auth response. Skip until the real verdict arrives.
			continue
		}

		switch pkt.ID {
		case authID:
			return nil
		case protocol.AuthDeniedID:
			return ErrAuthFailed
		default:
			return fmt.Errorf("%w: auth response for unknown id %d", ErrProtocol, pkt.ID)
		}
	}
}

// SendCommand executes one console command and returns its fully
// reassembled response text. Valid only while the session is Ready.
//
// The command is followed on the wire by an empty probe packet with its
// own id; the server answers packets in order, so the probe's (empty)
// echo marks the end of the command's possibly-fragmented response.
func (c *Client) SendCommand(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	if c.state != StateReady {
		var err error
		if c.state == StateFaulted {
			err = fmt.Errorf("%w: %v", ErrConnectionLost, c.faultErr)
		} else {
			err = ErrNotConnected
		}
		c.mu.Unlock()
		return "", err
	}
	conn := c.conn
	cmdID := c.allocIDLocked()
	probeID := c.allocIDLocked()
	p := &pendingResponse{done: make(chan commandResult, 1)}
	c.pending[cmdID] = p
	c.probes[probeID] = cmdID
	c.mu.Unlock()

	c.log.Debug("send command", "id", cmdID, "probe", probeID, "len", len(text))

	if err := conn.WritePacket(&protocol.Packet{ID: cmdID, Type: protocol.TypeExecCommand, Body: []byte(text)}); err != nil {
		return "", c.failSend(p, cmdID, probeID, err)
	}
	if err := conn.WritePacket(&protocol.Packet{ID: probeID, Type: protocol.TypeExecCommand, Body: nil}); err != nil {
		return "", c.failSend(p, cmdID, probeID, err)
	}

	timer := time.NewTimer(c.cfg.CommandTimeout)
	defer timer.Stop()

	select {
	case res := <-p.done:
		return res.text, res.err
	case <-timer.C:
		c.forget(cmdID, probeID)
		select {
		case res := <-p.done: // completion raced the timer
			return res.text, res.err
		default:
		}
		return "", fmt.Errorf("%w: no response within %v", ErrCommandTimeout, c.cfg.CommandTimeout)
	case <-ctx.Done():
		c.forget(cmdID, probeID)
		select {
		case res := <-p.done:
			return res.text, res.err
		default:
		}
		return "", fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// Disconnect closes the session. Outstanding commands resolve with
// ErrCancelled. Safe to call from any state and more than once; after a
// clean close the client may Connect again.
func (c *Client) Disconnect() {
	c.mu.Lock()
	switch c.state {
	case StateDisconnected, StateFaulted, StateClosing:
		c.mu.Unlock()
		return
	case StateConnecting, StateAuthenticating:
		// Connect is in flight on another goroutine; closing the socket
		// fails its pending read or dial check.
		conn := c.conn
		c.conn = nil
		c.setStateLocked(StateDisconnected, nil)
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	c.setStateLocked(StateClosing, nil)
	c.failPendingLocked(ErrCancelled)
	conn := c.conn
	c.conn = nil
	done := c.readerDone
	c.readerDone = nil
	c.setStateLocked(StateDisconnected, nil)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
}

// readLoop is the session's single reader. It drains the transport and
// hands every packet to the correlator until the connection fails or is
// closed by Disconnect.
func (c *Client) readLoop(conn *transport.Conn, done chan struct{}) {
	defer close(done)
	for {
		pkt, err := conn.ReadPacket()
		if err != nil {
			c.fault(err)
			return
		}
		if err := c.dispatch(pkt); err != nil {
			c.fault(err)
			return
		}
	}
}

// dispatch routes one inbound packet. Fragments for a pending command are
// appended in arrival order; a probe echo completes its command; anything
// else is read and discarded so correlation state stays clean. A non-nil
// return faults the session.
func (c *Client) dispatch(pkt *protocol.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cmdID, ok := c.probes[pkt.ID]; ok {
		delete(c.probes, pkt.ID)
		p, outstanding := c.pending[cmdID]
		if len(pkt.Body) != 0 {
			err := fmt.Errorf("%w: %d-byte body on end-of-response probe %d", ErrProtocol, len(pkt.Body), pkt.ID)
			if outstanding {
				delete(c.pending, cmdID)
				p.done <- commandResult{err: err}
			}
			return err
		}
		if !outstanding {
			// The command already timed out; drop its completion.
			c.log.Debug("probe for abandoned command", "probe", pkt.ID, "cmd", cmdID)
			return nil
		}
		delete(c.pending, cmdID)
		p.done <- commandResult{text: string(bytes.Join(p.fragments, nil))}
		return nil
	}

	if p, ok := c.pending[pkt.ID]; ok {
		if pkt.Type != protocol.TypeResponseValue {
			c.log.Debug("ignoring non-response packet for pending id", "id", pkt.ID, "type", int32(pkt.Type))
			return nil
		}
		p.fragments = append(p.fragments, pkt.Body)
		return nil
	}

	c.log.Debug("discarding unmatched packet", "id", pkt.ID, "type", int32(pkt.Type), "len", len(pkt.Body))
	return nil
}

// fault moves the session to Faulted, failing all pending commands with
// ErrConnectionLost. No-op when the session is closing or already down,
// so a read error caused by Disconnect's own Close is not a fault.
func (c *Client) fault(cause error) {
	c.mu.Lock()
	if c.state.terminal() || c.state == StateClosing {
		c.mu.Unlock()
		return
	}

	err := classify(cause)
	c.log.Warn("session fault", "err", err)

	c.failPendingLocked(fmt.Errorf("%w: %v", ErrConnectionLost, cause))
	conn := c.conn
	c.conn = nil
	c.faultErr = err
	c.setStateLocked(StateFaulted, err)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// classify maps a reader failure to the session-level error kind:
// framing violations become ErrProtocol, everything else ErrConnectionLost.
func classify(cause error) error {
	switch {
	case errors.Is(cause, ErrProtocol):
		return cause
	case isFramingError(cause):
		return fmt.Errorf("%w: %v", ErrProtocol, cause)
	default:
		return fmt.Errorf("%w: %v", ErrConnectionLost, cause)
	}
}

func isFramingError(err error) bool {
	return errors.Is(err, protocol.ErrMalformedSize) ||
		errors.Is(err, protocol.ErrPacketTooLarge) ||
		errors.Is(err, protocol.ErrMissingTerminator)
}

// failPendingLocked resolves every outstanding command with err and clears
// the correlation maps. Caller holds c.mu.
func (c *Client) failPendingLocked(err error) {
	for id, p := range c.pending {
		delete(c.pending, id)
		p.done <- commandResult{err: err}
	}
	clear(c.probes)
}

// failSend cleans up after a packet write failure mid-SendCommand. The
// write error faults the session unless a concurrent Disconnect already
// resolved the command, in which case that result wins.
func (c *Client) failSend(p *pendingResponse, cmdID, probeID int32, err error) error {
	c.forget(cmdID, probeID)
	c.fault(err)
	select {
	case res := <-p.done: // Disconnect or fault resolved us first
		return res.err
	default:
	}
	return fmt.Errorf("%w: %v", ErrConnectionLost, err)
}

// forget drops a command's correlation entries after a timeout or write
// failure. A response arriving later is discarded by dispatch.
func (c *Client) forget(cmdID, probeID int32) {
	c.mu.Lock()
	delete(c.pending, cmdID)
	delete(c.probes, probeID)
	c.mu.Unlock()
}

// allocIDLocked returns the next request id. Ids stay in [1, MaxInt32]
// since 0 and -1 are reserved on the wire, and an id is never handed out
// while still outstanding. Caller holds c.mu.
func (c *Client) allocIDLocked() int32 {
	for {
		id := c.nextID
		if c.nextID == math.MaxInt32 {
			c.nextID = 1
		} else {
			c.nextID++
		}
		if _, busy := c.pending[id]; busy {
			continue
		}
		if _, busy := c.probes[id]; busy {
			continue
		}
		return id
	}
}
