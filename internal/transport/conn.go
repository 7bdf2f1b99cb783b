package transport

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"cs2ctl/internal/protocol"
)

// Conn owns one TCP connection and frames RCON packets over it.
//
// Exactly one goroutine may call ReadPacket at a time; writes from multiple
// goroutines are serialized by an internal mutex. Close is idempotent and
// unblocks a pending ReadPacket.
type Conn struct {
	conn      net.Conn
	br        *bufio.Reader
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		conn: c,
		br:   bufio.NewReaderSize(c, 4096),
	}
}

// WritePacket frames and writes one packet, serialized with other writers.
func (c *Conn) WritePacket(p *protocol.Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WritePacket(c.conn, p)
}

// ReadPacket blocks until one full packet has been read, the read deadline
// expires, or the connection fails.
func (c *Conn) ReadPacket() (*protocol.Packet, error) {
	return protocol.ReadPacket(c.br)
}

// SetReadDeadline bounds subsequent ReadPacket calls. A zero time clears it.
// Only safe while reads are serial (the handshake phase).
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// RemoteAddr reports the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying socket, unblocking any pending read.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// IsDisconnect reports whether err indicates the peer or the local side
// tore the connection down, as opposed to a framing or timeout failure.
func IsDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// IsTimeout reports whether err is a read/write deadline expiry.
func IsTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
