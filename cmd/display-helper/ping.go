package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lanternops/display-helper-core/internal/ipc"
)

// dialTimeout returns the client pipe connect retry budget (spec §4.1/§5),
// injected from config rather than a fixed constant.
func dialTimeout(retrySec int) time.Duration {
	return time.Duration(retrySec) * time.Second
}

// runPing dials the supervisor's control socket, completes the client side
// of the anonymous-pipe handshake, and sends one Ping frame, printing
// whatever Pong diagnostics come back. It is the only client-role code path
// in this binary and exists to give cfg.ClientConnectRetrySec a real
// consumer: every other command in this binary only ever accepts
// connections, never dials one.
func runPing() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	control, err := ipc.DialWithRetryBudget(cfg.SocketPath, dialTimeout(cfg.ClientConnectRetrySec))
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.SocketPath, err)
	}
	defer control.Close()

	pipeName, err := ipc.ClientHandshake(control)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	dataCtx, cancel := context.WithTimeout(context.Background(), dialTimeout(cfg.ClientConnectRetrySec))
	defer cancel()
	data, err := ipc.Dial(dataCtx, dataPipePath(pipeName))
	if err != nil {
		return fmt.Errorf("dial data pipe: %w", err)
	}

	conn := ipc.NewConnWithTimeouts(data,
		time.Duration(cfg.IPCSendTimeoutSec)*time.Second,
		time.Duration(cfg.IPCShutdownTimeoutMS)*time.Millisecond,
	)
	defer conn.Disconnect()

	if err := conn.Send(ipc.Frame{Type: ipc.MsgPing}); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}

	reply, err := conn.Receive(dialTimeout(cfg.ClientConnectRetrySec))
	if err != nil {
		return fmt.Errorf("receive pong: %w", err)
	}
	if reply.Type != ipc.MsgPong {
		return fmt.Errorf("unexpected reply frame type %s", reply.Type)
	}

	var body ipc.PongBody
	if len(reply.Body) > 0 {
		if err := json.Unmarshal(reply.Body, &body); err != nil {
			return fmt.Errorf("decode pong body: %w", err)
		}
	}
	fmt.Printf("pong: host=%s os=%s/%s kernel=%s arch=%s uptime=%ds\n",
		body.Hostname, body.OSType, body.OSVersion, body.KernelVer, body.Architecture, body.UptimeSecs)
	return nil
}
