package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// Dial opens a TCP connection to an RCON endpoint. The context bounds the
// dial only; read/write deadlines are managed by the caller afterwards.
func Dial(ctx context.Context, host string, port int) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if tc, ok := raw.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}

	return newConn(raw), nil
}
