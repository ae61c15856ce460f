package ipc

import "fmt"

// MsgType is the first payload byte of every frame (spec §6).
type MsgType byte

const (
	MsgApply           MsgType = 0x01
	MsgRevert          MsgType = 0x02
	MsgReset           MsgType = 0x03 // deprecated, permanently reserved no-op
	MsgExportGolden    MsgType = 0x04
	MsgSnapshotCurrent MsgType = 0x05
	MsgPing            MsgType = 0xFE
	MsgStop            MsgType = 0xFF

	// MsgApplyResult and MsgVerifyResult are server-to-client-only reply
	// frames. §6's frame table only enumerates the client-to-server
	// request types; the channel is bidirectional and the state machine
	// owes the caller exactly one apply-result reply per Apply command
	// plus a separately reportable verification result (§7, §8), so these
	// two values extend the byte space rather than overload a
	// request type's meaning across both directions.
	MsgApplyResult  MsgType = 0x81
	MsgVerifyResult MsgType = 0x82

	// MsgPong answers MsgPing, optionally carrying host diagnostics for
	// support triage (see internal/backend.HostDiagnostics). Purely
	// additive: the state machine's Ping handling never depends on it.
	MsgPong MsgType = 0x83
)

func (t MsgType) String() string {
	switch t {
	case MsgApply:
		return "Apply"
	case MsgRevert:
		return "Revert"
	case MsgReset:
		return "Reset"
	case MsgExportGolden:
		return "ExportGolden"
	case MsgSnapshotCurrent:
		return "SnapshotCurrent"
	case MsgPing:
		return "Ping"
	case MsgStop:
		return "Stop"
	case MsgApplyResult:
		return "ApplyResult"
	case MsgVerifyResult:
		return "VerifyResult"
	case MsgPong:
		return "Pong"
	default:
		return fmt.Sprintf("MsgType(0x%02x)", byte(t))
	}
}

// MaxFrameSize is the maximum payload size (type byte + body), per §4.1.
// Frames larger than this are protocol errors that disconnect the
// channel.
const MaxFrameSize = 2 * 1024 * 1024

// Frame is one decoded wire message: a type tag plus its type-specific
// body.
type Frame struct {
	Type MsgType
	Body []byte
}

// ExcludeDevicesBody is the optional JSON body of ExportGolden and
// SnapshotCurrent frames.
type ExcludeDevicesBody struct {
	ExcludeDevices []string `json:"exclude_devices,omitempty"`
}
