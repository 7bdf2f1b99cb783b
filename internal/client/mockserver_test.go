package client

import (
	"errors"
	"net"
	"testing"
	"time"

	"cs2ctl/internal/protocol"
)

// rconServer is a loopback fixture speaking the Source RCON wire protocol.
// Each accepted connection is authenticated against password and then
// handed to serve, which scripts the server side of the exchange.
type rconServer struct {
	t        *testing.T
	ln       net.Listener
	password string
	serve    func(s *rconConn)
}

// rconConn is one accepted fixture connection.
type rconConn struct {
	t    *testing.T
	conn net.Conn
}

// startRCONServer listens on 127.0.0.1:0, performing the auth handshake on
// every accepted connection before invoking serve. A nil serve uses
// echoServe. Cleanup closes the listener when the test finishes.
func startRCONServer(t *testing.T, password string, serve func(s *rconConn)) (port int) {
	t.Helper()

	if serve == nil {
		serve = echoServe
	}
	srv := &rconServer{t: t, password: password, serve: serve}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv.ln = ln
	t.Cleanup(func() { ln.Close() })

	go srv.acceptLoop()
	return ln.Addr().(*net.TCPAddr).Port
}

// startRawServer skips the fixture's auth handling entirely; handle owns
// the connection from the first byte.
func startRawServer(t *testing.T, handle func(s *rconConn)) (port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(&rconConn{t: t, conn: conn})
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func (srv *rconServer) acceptLoop() {
	for {
		conn, err := srv.ln.Accept()
		if err != nil {
			return
		}
		go srv.handle(&rconConn{t: srv.t, conn: conn})
	}
}

func (srv *rconServer) handle(s *rconConn) {
	defer s.conn.Close()

	pkt, err := s.read()
	if err != nil || pkt.Type != protocol.TypeAuth {
		return
	}

	// Real servers emit an empty ResponseValue ahead of the auth verdict;
	// the fixture does too so the handshake's skip path is exercised.
	s.send(pkt.ID, protocol.TypeResponseValue, "")
	if string(pkt.Body) != srv.password {
		s.send(protocol.AuthDeniedID, protocol.TypeAuthResponse, "")
		return
	}
	s.send(pkt.ID, protocol.TypeAuthResponse, "")

	srv.serve(s)
}

func (s *rconConn) read() (*protocol.Packet, error) {
	return protocol.ReadPacket(s.conn)
}

func (s *rconConn) send(id int32, typ protocol.PacketType, body string) {
	if err := protocol.WritePacket(s.conn, &protocol.Packet{ID: id, Type: typ, Body: []byte(body)}); err != nil {
		s.t.Logf("fixture write: %v", err)
	}
}

// respond sends one ResponseValue fragment.
func (s *rconConn) respond(id int32, body string) {
	s.send(id, protocol.TypeResponseValue, body)
}

// echoServe answers every command with "echo:<body>" in a single packet
// and every empty probe with an empty echo.
func echoServe(s *rconConn) {
	for {
		pkt, err := s.read()
		if err != nil {
			return
		}
		if len(pkt.Body) == 0 {
			s.respond(pkt.ID, "")
			continue
		}
		s.respond(pkt.ID, "echo:"+string(pkt.Body))
	}
}

// waitState polls until the client reaches want or the deadline expires.
func waitState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state %v, want %v", c.State(), want)
}

// nextEvent receives one state change or fails the test.
func nextEvent(t *testing.T, ch <-chan StateChange) StateChange {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for state change event")
		return StateChange{}
	}
}

// isOneOf reports whether err matches any of the given sentinels.
func isOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
