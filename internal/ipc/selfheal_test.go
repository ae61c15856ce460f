package ipc

import (
	"errors"
	"net"
	"testing"
)

func TestSelfHealingConnRebuildsOnDisconnect(t *testing.T) {
	raw1, peer1 := net.Pipe()
	peer1.Close() // immediately break raw1

	raw2, peer2 := net.Pipe()
	defer peer2.Close()

	rebuildCount := 0
	conn1 := NewConn(raw1)
	healer := NewSelfHealingConn(conn1, func() (*Conn, error) {
		rebuildCount++
		return NewConn(raw2), nil
	})

	// First Send on the already-broken conn1 should fail and trigger a
	// rebuild onto conn2, through which the retried Send succeeds.
	recvErrCh := make(chan error, 1)
	go func() {
		_, err := NewConn(peer2).Receive(0)
		recvErrCh <- err
	}()

	err := healer.Send(Frame{Type: MsgPing})
	if err != nil {
		t.Fatalf("Send after rebuild: %v", err)
	}
	if rebuildCount != 1 {
		t.Fatalf("expected exactly one rebuild, got %d", rebuildCount)
	}
}

func TestSelfHealingConnSurfacesRebuildFailure(t *testing.T) {
	raw1, peer1 := net.Pipe()
	peer1.Close()

	conn1 := NewConn(raw1)
	wantErr := errors.New("dial refused")
	healer := NewSelfHealingConn(conn1, func() (*Conn, error) {
		return nil, wantErr
	})

	err := healer.Send(Frame{Type: MsgPing})
	if err == nil {
		t.Fatal("expected rebuild failure to surface")
	}
}

func TestIsRecoverableClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrTimeout, false},
		{ErrFrameTooLarge, false},
		{ErrDisconnected, true},
		{errors.New("some other transport error"), true},
	}
	for _, tc := range cases {
		if got := isRecoverable(tc.err); got != tc.want {
			t.Errorf("isRecoverable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
