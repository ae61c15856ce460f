package ipc

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
	"unicode/utf16"
)

// HandshakeNameLen is the fixed width of the handshake message: 40
// UTF-16LE code units (80 bytes), null-terminated (spec §4.1, §6).
const HandshakeNameLen = 80

// DefaultAckTimeout is how long ServerHandshake waits for the client's
// one-byte ACK after sending the pipe name, when the caller has no
// configured override.
const DefaultAckTimeout = 1200 * time.Millisecond

// ackByte is the single-byte acknowledgement the client sends back.
const ackByte = 0x02

// ErrHandshakeTimeout means the ACK did not arrive within the ACK timeout and
// no framed message was buffered either.
var ErrHandshakeTimeout = errors.New("ipc: handshake ACK timeout")

// randomPipeName generates a short random name suitable for embedding in
// a platform pipe path (e.g. \\.\pipe\display-helper-<name> or an
// abstract unix socket suffix).
func randomPipeName() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ipc: generate pipe name: %w", err)
	}
	const hex = "0123456789abcdef"
	out := make([]byte, len(buf)*2)
	for i, b := range buf {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0x0f]
	}
	return string(out), nil
}

// encodeHandshakeName packs name into the fixed 80-byte UTF-16LE
// null-terminated wire representation.
func encodeHandshakeName(name string) ([]byte, error) {
	units := utf16.Encode([]rune(name))
	// +1 for the null terminator.
	if (len(units)+1)*2 > HandshakeNameLen {
		return nil, fmt.Errorf("ipc: pipe name too long for handshake slot")
	}
	buf := make([]byte, HandshakeNameLen)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	// Remaining bytes are already zero, which doubles as the UTF-16
	// null terminator and padding.
	return buf, nil
}

// decodeHandshakeName unpacks the fixed 80-byte UTF-16LE representation
// back into a name, stopping at the null terminator.
func decodeHandshakeName(buf []byte) (string, error) {
	if len(buf) != HandshakeNameLen {
		return "", fmt.Errorf("ipc: handshake name must be %d bytes, got %d", HandshakeNameLen, len(buf))
	}
	units := make([]uint16, 0, HandshakeNameLen/2)
	for i := 0; i+1 < len(buf); i += 2 {
		u := binary.LittleEndian.Uint16(buf[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), nil
}

// ServerHandshake runs the anonymous-pipe handshake on the server side of
// an already-accepted control connection with the spec default ACK
// timeout: send the 80-byte pipe name, then wait up to DefaultAckTimeout
// for either a one-byte ACK or a framed message arriving directly.
// Callers with a configured Config should use ServerHandshakeTimeout
// instead.
func ServerHandshake(control net.Conn) (pipeName string, fallbackFrame *Frame, err error) {
	return ServerHandshakeTimeout(control, DefaultAckTimeout)
}

// ServerHandshakeTimeout is ServerHandshake with ackTimeout injected from
// config (spec §4.1/§6 ACK wait) rather than fixed. It returns the
// generated pipe name (for the caller to open as the data pipe) and, if
// the peer instead spoke the framed protocol directly, the
// already-buffered Frame.
func ServerHandshakeTimeout(control net.Conn, ackTimeout time.Duration) (pipeName string, fallbackFrame *Frame, err error) {
	name, err := randomPipeName()
	if err != nil {
		return "", nil, err
	}
	encoded, err := encodeHandshakeName(name)
	if err != nil {
		return "", nil, err
	}
	if _, err := control.Write(encoded); err != nil {
		return "", nil, fmt.Errorf("ipc: write handshake name: %w", err)
	}

	if err := control.SetReadDeadline(time.Now().Add(ackTimeout)); err != nil {
		log.Warn("handshake: set read deadline failed", "error", err)
	}
	defer control.SetReadDeadline(time.Time{})

	first := make([]byte, 1)
	if _, err := io.ReadFull(control, first); err != nil {
		return "", nil, ErrHandshakeTimeout
	}

	if first[0] == ackByte {
		return name, nil, nil
	}

	// Peer spoke the framed protocol directly: first[0] is the start of
	// a length-prefixed frame header. Reassemble the 4-byte header and
	// decode the frame, falling back to treating the control pipe as
	// the data pipe.
	rest := make([]byte, 3)
	if _, err := io.ReadFull(control, rest); err != nil {
		return "", nil, fmt.Errorf("ipc: handshake fallback: read header: %w", err)
	}
	header := append([]byte{first[0]}, rest...)
	length := binary.LittleEndian.Uint32(header)
	if length == 0 || length > MaxFrameSize {
		return "", nil, fmt.Errorf("ipc: handshake fallback: invalid frame length %d", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(control, payload); err != nil {
		return "", nil, fmt.Errorf("ipc: handshake fallback: read payload: %w", err)
	}
	frame := &Frame{Type: MsgType(payload[0]), Body: payload[1:]}
	return "", frame, nil
}

// ClientHandshake reads the 80-byte pipe name from an already-dialed
// control connection and sends the one-byte ACK.
func ClientHandshake(control net.Conn) (pipeName string, err error) {
	buf := make([]byte, HandshakeNameLen)
	if _, err := io.ReadFull(control, buf); err != nil {
		return "", fmt.Errorf("ipc: read handshake name: %w", err)
	}
	name, err := decodeHandshakeName(buf)
	if err != nil {
		return "", err
	}
	if _, err := control.Write([]byte{ackByte}); err != nil {
		return "", fmt.Errorf("ipc: write ACK: %w", err)
	}
	return name, nil
}
