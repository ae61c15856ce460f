//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// pipeSecurity restricts the control pipe to SYSTEM (full control) and
// interactive users (read/write) — grounded on the teacher's broker pipe
// SDDL, which serves the same "privileged helper, untrusted local client"
// threat model.
const pipeSecurity = "D:P(A;;GA;;;SY)(A;;GRGW;;;IU)"

// Listen opens the named-pipe control listener at path.
func Listen(path string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	listener, err := winio.ListenPipe(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen pipe %s: %w", path, err)
	}
	return listener, nil
}

// Dial makes a single attempt to connect to a named pipe; it does not
// retry. DialWithRetryBudget adds the client pipe connect retry budget.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}

// DialWithRetryBudget dials path, retrying on failure until budget
// elapses.
func DialWithRetryBudget(path string, budget time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	var lastErr error
	const retryInterval = 250 * time.Millisecond
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		conn, err := Dial(ctx, path)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ipc: dial %s: %w", path, ctx.Err())
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("ipc: dial %s exhausted retry budget: %w", path, lastErr)
}
