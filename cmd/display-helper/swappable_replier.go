package main

import (
	"errors"
	"sync"

	"github.com/lanternops/display-helper-core/internal/backend"
)

// errNoActiveConnection is returned when a reply is attempted while no
// client is currently connected (between accept cycles).
var errNoActiveConnection = errors.New("display-helper: no active IPC connection")

// swappableReplier lets the long-lived Session keep a single
// statemachine.Replier across many IPC reconnect cycles, even though the
// concrete *ipc.Replier underneath is rebuilt on every accepted
// connection. Session.New fixes its Replier at construction time with no
// setter, so this wrapper is what actually gets passed in, and Rebind is
// called each time the accept loop finishes a handshake.
type swappableReplier struct {
	mu      sync.Mutex
	current replier
}

// replier mirrors statemachine.Replier so this file doesn't need to
// import that package just to name the interface.
type replier interface {
	ApplyResult(statusName string) error
	VerifyResult(ok bool) error
	Pong(diag backend.HostDiagnostics) error
}

// Rebind swaps in the replier for a newly accepted connection. Passing
// nil clears it, so replies sent while disconnected fail fast instead of
// silently going to a stale, closed connection.
func (s *swappableReplier) Rebind(r replier) {
	s.mu.Lock()
	s.current = r
	s.mu.Unlock()
}

func (s *swappableReplier) active() replier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *swappableReplier) ApplyResult(statusName string) error {
	r := s.active()
	if r == nil {
		return errNoActiveConnection
	}
	return r.ApplyResult(statusName)
}

func (s *swappableReplier) VerifyResult(ok bool) error {
	r := s.active()
	if r == nil {
		return errNoActiveConnection
	}
	return r.VerifyResult(ok)
}

func (s *swappableReplier) Pong(diag backend.HostDiagnostics) error {
	r := s.active()
	if r == nil {
		return errNoActiveConnection
	}
	return r.Pong(diag)
}
