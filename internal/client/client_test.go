package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"cs2ctl/internal/protocol"
)

func testClient(port int, password string) *Client {
	return New(Config{
		Host:           "127.0.0.1",
		Port:           port,
		Password:       password,
		ConnectTimeout: 2 * time.Second,
		CommandTimeout: 2 * time.Second,
	})
}

func TestConnectAndDisconnect(t *testing.T) {
	port := startRCONServer(t, "secret", nil)

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state %v, want ready", got)
	}

	c.Disconnect()
	if got := c.State(); got != StateDisconnected {
		t.Fatalf("state %v, want disconnected", got)
	}
}

func TestConnectBadPassword(t *testing.T) {
	port := startRCONServer(t, "secret", nil)

	c := testClient(port, "wrong")
	err := c.Connect(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if got := c.State(); got != StateFaulted {
		t.Fatalf("state %v, want faulted", got)
	}
}

func TestConnectAuthDeadline(t *testing.T) {
	// Accepts the auth packet and never answers.
	port := startRawServer(t, func(s *rconConn) {
		s.read()
		time.Sleep(10 * time.Second)
	})

	c := New(Config{
		Host:           "127.0.0.1",
		Port:           port,
		Password:       "secret",
		ConnectTimeout: 200 * time.Millisecond,
	})
	err := c.Connect(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed on deadline, got %v", err)
	}
	if got := c.State(); got != StateFaulted {
		t.Fatalf("state %v, want faulted", got)
	}
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := testClient(port, "secret")
	err = c.Connect(context.Background())

	var cerr *ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConnectError, got %v", err)
	}
	if got := c.State(); got != StateFaulted {
		t.Fatalf("state %v, want faulted", got)
	}
}

func TestConnectWhileConnected(t *testing.T) {
	port := startRCONServer(t, "secret", nil)

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	if err := c.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestSendCommandNotConnected(t *testing.T) {
	c := testClient(1, "secret")
	if _, err := c.SendCommand(context.Background(), "status"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendCommandSinglePacket(t *testing.T) {
	port := startRCONServer(t, "secret", func(s *rconConn) {
		for {
			pkt, err := s.read()
			if err != nil {
				return
			}
			if len(pkt.Body) == 0 {
				s.respond(pkt.ID, "")
				continue
			}
			s.respond(pkt.ID, "Unknown command: bogus_cvar\n")
		}
	})

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	got, err := c.SendCommand(context.Background(), "bogus_cvar")
	if err != nil {
		t.Fatal(err)
	}
	if want := "Unknown command: bogus_cvar\n"; got != want {
		t.Fatalf("response %q, want %q", got, want)
	}
}

func TestSendCommandReassemblesFragments(t *testing.T) {
	fragments := []string{"hostname: cs2 #1\n", "players : 12 humans\n", "map     : de_dust2\n"}

	port := startRCONServer(t, "secret", func(s *rconConn) {
		for {
			pkt, err := s.read()
			if err != nil {
				return
			}
			if len(pkt.Body) == 0 {
				s.respond(pkt.ID, "")
				continue
			}
			for _, f := range fragments {
				s.respond(pkt.ID, f)
			}
		}
	})

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	got, err := c.SendCommand(context.Background(), "status")
	if err != nil {
		t.Fatal(err)
	}
	want := fragments[0] + fragments[1] + fragments[2]
	if got != want {
		t.Fatalf("response %q, want %q", got, want)
	}
}

func TestInterleavedCommands(t *testing.T) {
	// Collect both commands and both probes, then answer with the two
	// responses interleaved fragment by fragment.
	port := startRCONServer(t, "secret", func(s *rconConn) {
		var cmds, probes []*protocol.Packet
		for len(cmds) < 2 || len(probes) < 2 {
			pkt, err := s.read()
			if err != nil {
				return
			}
			if len(pkt.Body) == 0 {
				probes = append(probes, pkt)
			} else {
				cmds = append(cmds, pkt)
			}
		}
		for _, part := range []string{":one;", ":two;"} {
			for _, cmd := range cmds {
				s.respond(cmd.ID, string(cmd.Body)+part)
			}
		}
		for _, probe := range probes {
			s.respond(probe.ID, "")
		}
	})

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	var wg sync.WaitGroup
	for _, name := range []string{"alpha", "beta"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			got, err := c.SendCommand(context.Background(), name)
			if err != nil {
				t.Errorf("%s: %v", name, err)
				return
			}
			want := name + ":one;" + name + ":two;"
			if got != want {
				t.Errorf("%s: response %q, want %q", name, got, want)
			}
		}(name)
	}
	wg.Wait()
}

func TestCommandTimeoutKeepsSessionAlive(t *testing.T) {
	// "slow" gets no answer until "fast" arrives; then the stale answer
	// for "slow" is written first, followed by the answer for "fast".
	port := startRCONServer(t, "secret", func(s *rconConn) {
		var stale []*protocol.Packet
		for i := 0; i < 2; i++ { // slow command + its probe
			pkt, err := s.read()
			if err != nil {
				return
			}
			stale = append(stale, pkt)
		}
		for {
			pkt, err := s.read()
			if err != nil {
				return
			}
			for _, old := range stale {
				if len(old.Body) == 0 {
					s.respond(old.ID, "")
				} else {
					s.respond(old.ID, "late response\n")
				}
			}
			stale = nil
			if len(pkt.Body) == 0 {
				s.respond(pkt.ID, "")
				continue
			}
			s.respond(pkt.ID, "fast response\n")
		}
	})

	c := New(Config{
		Host:           "127.0.0.1",
		Port:           port,
		Password:       "secret",
		ConnectTimeout: 2 * time.Second,
		CommandTimeout: 200 * time.Millisecond,
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	if _, err := c.SendCommand(context.Background(), "slow"); !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("expected ErrCommandTimeout, got %v", err)
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state %v after command timeout, want ready", got)
	}

	// The late answer for "slow" must be discarded, not merged into this.
	got, err := c.SendCommand(context.Background(), "fast")
	if err != nil {
		t.Fatal(err)
	}
	if want := "fast response\n"; got != want {
		t.Fatalf("response %q, want %q", got, want)
	}
}

func TestDisconnectCancelsPending(t *testing.T) {
	// Reads everything, answers nothing.
	port := startRCONServer(t, "secret", func(s *rconConn) {
		for {
			if _, err := s.read(); err != nil {
				return
			}
		}
	})

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := c.SendCommand(context.Background(), "hang")
			errs <- err
		}()
	}

	time.Sleep(100 * time.Millisecond)
	c.Disconnect()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			// A command racing Disconnect's socket close may see the
			// write fail instead of its pending entry being cancelled.
			if !isOneOf(err, ErrCancelled, ErrConnectionLost) {
				t.Fatalf("expected ErrCancelled, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("pending command did not resolve after disconnect")
		}
	}
}

func TestNonEmptyProbeResponseFaults(t *testing.T) {
	port := startRCONServer(t, "secret", func(s *rconConn) {
		for {
			pkt, err := s.read()
			if err != nil {
				return
			}
			if len(pkt.Body) == 0 {
				s.respond(pkt.ID, "unexpected probe payload")
				continue
			}
			s.respond(pkt.ID, "partial output")
		}
	})

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := c.SendCommand(context.Background(), "status"); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	waitState(t, c, StateFaulted)

	if _, err := c.SendCommand(context.Background(), "status"); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost after fault, got %v", err)
	}
}

func TestServerCloseFaultsSession(t *testing.T) {
	port := startRCONServer(t, "secret", func(s *rconConn) {
		s.read()
		s.conn.Close()
	})

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := c.SendCommand(context.Background(), "status"); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	waitState(t, c, StateFaulted)
}

func TestMalformedFrameFaultsWithProtocolError(t *testing.T) {
	port := startRCONServer(t, "secret", func(s *rconConn) {
		if _, err := s.read(); err != nil {
			return
		}
		s.conn.Write([]byte{0xff, 0xff, 0xff, 0xff}) // negative declared size
		time.Sleep(time.Second)
	})

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	events := c.Events()
	if _, err := c.SendCommand(context.Background(), "status"); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost for pending command, got %v", err)
	}
	waitState(t, c, StateFaulted)

	for {
		ev := nextEvent(t, events)
		if ev.To != StateFaulted {
			continue
		}
		if !errors.Is(ev.Err, ErrProtocol) {
			t.Fatalf("fault event error %v, want ErrProtocol", ev.Err)
		}
		break
	}
}

func TestEventsFollowTransitionOrder(t *testing.T) {
	port := startRCONServer(t, "secret", nil)

	c := testClient(port, "secret")
	events := c.Events()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SendCommand(context.Background(), "status"); err != nil {
		t.Fatal(err)
	}
	c.Disconnect()

	want := []State{StateConnecting, StateAuthenticating, StateReady, StateClosing, StateDisconnected}
	prev := StateDisconnected
	for _, state := range want {
		ev := nextEvent(t, events)
		if ev.From != prev || ev.To != state {
			t.Fatalf("event %v→%v, want %v→%v", ev.From, ev.To, prev, state)
		}
		if ev.Err != nil {
			t.Fatalf("unexpected error on %v: %v", state, ev.Err)
		}
		prev = state
	}
}

func TestReconnectAfterCleanClose(t *testing.T) {
	port := startRCONServer(t, "secret", nil)

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	defer c.Disconnect()

	got, err := c.SendCommand(context.Background(), "status")
	if err != nil {
		t.Fatal(err)
	}
	if want := "echo:status"; got != want {
		t.Fatalf("response %q, want %q", got, want)
	}
}

func TestContextCancelDuringCommand(t *testing.T) {
	port := startRCONServer(t, "secret", func(s *rconConn) {
		for {
			if _, err := s.read(); err != nil {
				return
			}
		}
	})

	c := testClient(port, "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if _, err := c.SendCommand(ctx, "hang"); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state %v after cancelled command, want ready", got)
	}
}
