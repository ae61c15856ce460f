package ipc

import (
	"encoding/binary"
	"net"
	"testing"
	"time"
)

func TestHandshakeRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	serverErrCh := make(chan error, 1)
	var serverName string
	go func() {
		name, fallback, err := ServerHandshake(serverConn)
		if fallback != nil {
			serverErrCh <- errUnexpectedFallback
			return
		}
		serverName = name
		serverErrCh <- err
	}()

	clientName, err := ClientHandshake(clientConn)
	if err != nil {
		t.Fatalf("ClientHandshake: %v", err)
	}

	select {
	case err := <-serverErrCh:
		if err != nil {
			t.Fatalf("ServerHandshake: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ServerHandshake")
	}

	if clientName != serverName {
		t.Fatalf("name mismatch: server=%q client=%q", serverName, clientName)
	}
	if len(clientName) == 0 {
		t.Fatal("expected non-empty pipe name")
	}
}

func TestServerHandshakeTimesOutWithNoAck(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()

	go func() {
		buf := make([]byte, HandshakeNameLen)
		clientConn.Read(buf) // drain the name, never ACK
	}()

	_, _, err := ServerHandshake(serverConn)
	if err != ErrHandshakeTimeout {
		t.Fatalf("expected ErrHandshakeTimeout, got %v", err)
	}
}

func TestServerHandshakeFallsBackToFramedProtocol(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		buf := make([]byte, HandshakeNameLen)
		clientConn.Read(buf)

		frame := Frame{Type: MsgPing, Body: nil}
		payload := []byte{byte(frame.Type)}
		header := make([]byte, 4)
		binary.LittleEndian.PutUint32(header, uint32(len(payload)))
		clientConn.Write(header)
		clientConn.Write(payload)
	}()

	name, fallback, err := ServerHandshake(serverConn)
	if err != nil {
		t.Fatalf("ServerHandshake: %v", err)
	}
	if name != "" {
		t.Fatalf("expected empty name on fallback, got %q", name)
	}
	if fallback == nil || fallback.Type != MsgPing {
		t.Fatalf("expected fallback Ping frame, got %+v", fallback)
	}
}

func TestEncodeDecodeHandshakeNameRoundTrip(t *testing.T) {
	name, err := randomPipeName()
	if err != nil {
		t.Fatalf("randomPipeName: %v", err)
	}
	encoded, err := encodeHandshakeName(name)
	if err != nil {
		t.Fatalf("encodeHandshakeName: %v", err)
	}
	if len(encoded) != HandshakeNameLen {
		t.Fatalf("expected %d bytes, got %d", HandshakeNameLen, len(encoded))
	}
	decoded, err := decodeHandshakeName(encoded)
	if err != nil {
		t.Fatalf("decodeHandshakeName: %v", err)
	}
	if decoded != name {
		t.Fatalf("round trip mismatch: %q != %q", decoded, name)
	}
}

var errUnexpectedFallback = &fallbackError{}

type fallbackError struct{}

func (*fallbackError) Error() string { return "unexpected fallback frame" }
