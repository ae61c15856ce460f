//go:build linux

package ipc

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// PeerIdentity holds the kernel-verified identity of the IPC peer,
// satisfying C1's "client-identity query" responsibility (spec §2).
type PeerIdentity struct {
	PID        int
	UID        uint32
	GID        uint32
	BinaryPath string
}

// QueryPeerIdentity returns the kernel-verified PID/UID/GID of the peer
// via SO_PEERCRED and resolves the binary path from /proc/<pid>/exe.
func QueryPeerIdentity(conn net.Conn) (*PeerIdentity, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("ipc: not a unix connection")
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("ipc: get syscall conn: %w", err)
	}

	var cred *unix.Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return nil, fmt.Errorf("ipc: control: %w", err)
	}
	if credErr != nil {
		return nil, fmt.Errorf("ipc: getsockopt SO_PEERCRED: %w", credErr)
	}

	exePath, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", cred.Pid))
	if err != nil {
		return nil, fmt.Errorf("ipc: readlink /proc/%d/exe: %w", cred.Pid, err)
	}

	return &PeerIdentity{
		PID:        int(cred.Pid),
		UID:        cred.Uid,
		GID:        cred.Gid,
		BinaryPath: exePath,
	}, nil
}

// RateLimitKey returns the key this identity should be rate-limited
// under: the kernel-verified UID.
func (p *PeerIdentity) RateLimitKey() string {
	return strconv.FormatUint(uint64(p.UID), 10)
}

// DefaultSocketPath returns the default IPC control-socket path on Linux.
func DefaultSocketPath() string {
	return "/var/run/display-helper-core/control.sock"
}
