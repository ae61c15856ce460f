package main

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"time"

	"github.com/lanternops/display-helper-core/internal/cancel"
	"github.com/lanternops/display-helper-core/internal/config"
	"github.com/lanternops/display-helper-core/internal/ipc"
	"github.com/lanternops/display-helper-core/internal/router"
)

// rateLimitWindow and rateLimitMaxAttempts bound how many handshake
// attempts a single peer identity may make before being turned away,
// protecting the accept loop from a wedged or hostile local peer.
const (
	rateLimitWindow      = 10 * time.Second
	rateLimitMaxAttempts = 5
)

// serverTiming bundles the IPC construction-time bounds config carries
// (spec §5) that the accept loop and every connection it spawns need:
// the handshake ACK wait, the data-pipe accept/connect wait, and the
// per-frame send/shutdown bounds passed into each *ipc.Conn.
type serverTiming struct {
	ackTimeout      time.Duration
	dataPipeTimeout time.Duration
	sendTimeout     time.Duration
	shutdownTimeout time.Duration
}

func serverTimingFromConfig(cfg *config.Config) serverTiming {
	return serverTiming{
		ackTimeout:      time.Duration(cfg.HandshakeACKTimeoutMS) * time.Millisecond,
		dataPipeTimeout: time.Duration(cfg.IPCConnectTimeoutSec) * time.Second,
		sendTimeout:     time.Duration(cfg.IPCSendTimeoutSec) * time.Second,
		shutdownTimeout: time.Duration(cfg.IPCShutdownTimeoutMS) * time.Millisecond,
	}
}

// acceptLoop accepts one control connection at a time, completes the
// anonymous-pipe handshake, and runs the Router over the resulting data
// connection until the peer disconnects. The Session it feeds is
// long-lived across every cycle; only the transport is rebuilt.
//
// This is the server side of the spec's handshake (§4.1, §6): the
// Session survives reconnects, so swappable rebinds the reply path each
// time a new connection completes its handshake.
func acceptLoop(ctx context.Context, ln net.Listener, gen *cancel.Source, swappable *swappableReplier, timing serverTiming, postCmd func(router.Command)) {
	limiter := ipc.NewRateLimiter(rateLimitMaxAttempts, rateLimitWindow)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		control, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("accept failed", "error", err)
			continue
		}

		go serveConnection(ctx, control, limiter, gen, swappable, timing, postCmd)
	}
}

func serveConnection(ctx context.Context, control net.Conn, limiter *ipc.RateLimiter, gen *cancel.Source, swappable *swappableReplier, timing serverTiming, postCmd func(router.Command)) {
	defer control.Close()

	if identity, err := ipc.QueryPeerIdentity(control); err == nil {
		if !limiter.Allow(identity.RateLimitKey()) {
			log.Warn("rejecting control connection, rate limit exceeded", "peer", identity.RateLimitKey())
			return
		}
	} else {
		log.Debug("peer identity unavailable, skipping rate limit check", "error", err)
	}

	pipeName, fallbackFrame, err := ipc.ServerHandshakeTimeout(control, timing.ackTimeout)
	if err != nil {
		log.Warn("handshake failed", "error", err)
		return
	}

	var conn *ipc.Conn
	if fallbackFrame != nil {
		conn = ipc.NewConnWithTimeouts(newPrefixedConn(control, *fallbackFrame), timing.sendTimeout, timing.shutdownTimeout)
	} else {
		data, err := acceptDataPipe(ctx, pipeName, timing.dataPipeTimeout)
		if err != nil {
			log.Warn("failed to accept data pipe", "error", err)
			return
		}
		conn = ipc.NewConnWithTimeouts(data, timing.sendTimeout, timing.shutdownTimeout)
	}
	defer conn.Disconnect()

	swappable.Rebind(ipc.NewReplier(conn))
	defer swappable.Rebind(nil)

	r := router.New(conn, gen, postCmd)
	r.Run(ctx)
}

// prefixedConn replays a single already-decoded Frame (captured during
// ServerHandshake's fallback path) as the first bytes a fresh ipc.Conn
// reads, then falls through to the underlying connection. ipc.NewConn
// starts reading raw bytes immediately, so without this the frame
// ServerHandshake already consumed off the wire would be lost.
type prefixedConn struct {
	net.Conn
	prefix []byte
}

func newPrefixedConn(underlying net.Conn, frame ipc.Frame) *prefixedConn {
	payload := append([]byte{byte(frame.Type)}, frame.Body...)
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, uint32(len(payload)))
	return &prefixedConn{Conn: underlying, prefix: append(header, payload...)}
}

func (c *prefixedConn) Read(p []byte) (int, error) {
	if len(c.prefix) == 0 {
		return c.Conn.Read(p)
	}
	n := copy(p, c.prefix)
	c.prefix = c.prefix[n:]
	return n, nil
}

// acceptDataPipe opens the anonymous data pipe/socket the handshake just
// announced and accepts the client's single connection to it, bounded by
// timeout (spec §5 IPC connect bound, cfg.IPCConnectTimeoutSec).
func acceptDataPipe(ctx context.Context, pipeName string, timeout time.Duration) (net.Conn, error) {
	if pipeName == "" {
		return nil, errors.New("display-helper: empty data pipe name")
	}
	ln, err := ipc.Listen(dataPipePath(pipeName))
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		return r.conn, r.err
	case <-time.After(timeout):
		return nil, errors.New("display-helper: timed out waiting for data pipe connection")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
