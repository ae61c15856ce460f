package ipc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Creator builds a fresh Conn, e.g. by re-dialing the data pipe. Used by
// SelfHealingConn to rebuild the channel after a broken-pipe error.
type Creator func() (*Conn, error)

// SelfHealingConn wraps a Conn and transparently rebuilds it once when
// the underlying channel reports disconnection, per spec §4.1: "when the
// underlying channel reports BrokenPipe, Error, or Disconnected, the
// wrapper rebuilds the channel via its creator closure and retries the
// operation once. Construction failure is surfaced unchanged."
type SelfHealingConn struct {
	create Creator

	mu   sync.Mutex
	conn *Conn
}

// NewSelfHealingConn wraps an already-established conn with the given
// rebuild closure.
func NewSelfHealingConn(conn *Conn, create Creator) *SelfHealingConn {
	return &SelfHealingConn{conn: conn, create: create}
}

func (s *SelfHealingConn) current() *Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *SelfHealingConn) rebuild() error {
	fresh, err := s.create()
	if err != nil {
		return fmt.Errorf("ipc: rebuild failed: %w", err)
	}
	s.mu.Lock()
	s.conn = fresh
	s.mu.Unlock()
	return nil
}

// isRecoverable reports whether err reflects a broken channel (worth
// rebuilding) as opposed to a semantic/protocol error like ErrTimeout or
// ErrFrameTooLarge, which say nothing about the channel's health.
func isRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrFrameTooLarge) {
		return false
	}
	return true
}

// Send retries once through a rebuilt connection if the first attempt
// fails with a recoverable error. A second-attempt failure (including a
// failed rebuild) is returned unchanged.
func (s *SelfHealingConn) Send(frame Frame) error {
	err := s.current().Send(frame)
	if err == nil || !isRecoverable(err) {
		return err
	}
	if rebuildErr := s.rebuild(); rebuildErr != nil {
		return rebuildErr
	}
	return s.current().Send(frame)
}

// Receive retries once through a rebuilt connection if the first attempt
// fails with a recoverable error (ErrTimeout is not retried — it is not a
// failure of the channel).
func (s *SelfHealingConn) Receive(timeout time.Duration) (Frame, error) {
	frame, err := s.current().Receive(timeout)
	if err == nil || errors.Is(err, ErrTimeout) || !isRecoverable(err) {
		return frame, err
	}
	if rebuildErr := s.rebuild(); rebuildErr != nil {
		return Frame{}, rebuildErr
	}
	return s.current().Receive(timeout)
}

// Disconnect tears down the current underlying connection.
func (s *SelfHealingConn) Disconnect() error {
	return s.current().Disconnect()
}

// IsConnected reports the current underlying connection's link health.
func (s *SelfHealingConn) IsConnected() bool {
	return s.current().IsConnected()
}
