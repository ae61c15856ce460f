//go:build windows

package ipc

import (
	"fmt"
	"net"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// PeerIdentity holds the verified identity of a named-pipe IPC peer,
// satisfying C1's "client-identity query" responsibility (spec §2).
type PeerIdentity struct {
	PID        int
	BinaryPath string
	SID        string
}

var (
	modkernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	procGetNamedPipeClientProcessId = modkernel32.NewProc("GetNamedPipeClientProcessId")
)

// QueryPeerIdentity resolves the verified identity of a named-pipe
// client via GetNamedPipeClientProcessId + OpenProcessToken +
// GetTokenUser.
func QueryPeerIdentity(conn net.Conn) (*PeerIdentity, error) {
	type handleConn interface {
		Fd() uintptr
	}
	hc, ok := conn.(handleConn)
	if !ok {
		return nil, fmt.Errorf("ipc: connection type %T exposes no pipe handle", conn)
	}
	handle := hc.Fd()

	var clientPID uint32
	r1, _, err := procGetNamedPipeClientProcessId.Call(handle, uintptr(unsafe.Pointer(&clientPID)))
	if r1 == 0 {
		return nil, fmt.Errorf("ipc: GetNamedPipeClientProcessId: %w", err)
	}

	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, clientPID)
	if err != nil {
		return nil, fmt.Errorf("ipc: OpenProcess(%d): %w", clientPID, err)
	}
	defer windows.CloseHandle(proc)

	var pathBuf [windows.MAX_PATH]uint16
	pathLen := uint32(len(pathBuf))
	if err := windows.QueryFullProcessImageName(proc, 0, &pathBuf[0], &pathLen); err != nil {
		return nil, fmt.Errorf("ipc: QueryFullProcessImageName: %w", err)
	}
	binaryPath := syscall.UTF16ToString(pathBuf[:pathLen])

	var token windows.Token
	if err := windows.OpenProcessToken(proc, windows.TOKEN_QUERY, &token); err != nil {
		return nil, fmt.Errorf("ipc: OpenProcessToken: %w", err)
	}
	defer token.Close()

	tokenUser, err := token.GetTokenUser()
	if err != nil {
		return nil, fmt.Errorf("ipc: GetTokenUser: %w", err)
	}

	return &PeerIdentity{
		PID:        int(clientPID),
		BinaryPath: binaryPath,
		SID:        tokenUser.User.Sid.String(),
	}, nil
}

// RateLimitKey returns the key this identity should be rate-limited
// under: the Windows SID (there is no UID on this platform).
func (p *PeerIdentity) RateLimitKey() string {
	return p.SID
}

// DefaultSocketPath returns the default named-pipe base path used to
// derive the handshake's control pipe name on Windows.
func DefaultSocketPath() string {
	return `\\.\pipe\display-helper-core-control`
}
