package ipc

import (
	"encoding/json"

	"github.com/lanternops/display-helper-core/internal/backend"
)

// ApplyResultBody is the JSON body of an outbound MsgApplyResult frame.
type ApplyResultBody struct {
	Status string `json:"status"`
}

// VerifyResultBody is the JSON body of an outbound MsgVerifyResult frame.
type VerifyResultBody struct {
	Ok bool `json:"ok"`
}

// PongBody is the JSON body of an outbound MsgPong frame. Diagnostics is
// omitted when the caller chose not to attach host facts.
type PongBody struct {
	Hostname     string `json:"hostname,omitempty"`
	OSType       string `json:"osType,omitempty"`
	OSVersion    string `json:"osVersion,omitempty"`
	KernelVer    string `json:"kernelVersion,omitempty"`
	Architecture string `json:"architecture,omitempty"`
	UptimeSecs   uint64 `json:"uptimeSeconds,omitempty"`
}

// Sender is the subset of Conn a Replier needs.
type Sender interface {
	Send(frame Frame) error
}

// Replier sends the state machine's apply-result and verification-result
// replies as frames over the transport, satisfying the two server-to-client
// reply types this transport adds beyond §6's request-only frame table.
type Replier struct {
	conn Sender
}

// NewReplier wraps conn for sending result replies.
func NewReplier(conn Sender) *Replier {
	return &Replier{conn: conn}
}

// ApplyResult sends one apply-result reply, carrying the final status kind
// by name (matching the error taxonomy in spec §7).
func (r *Replier) ApplyResult(statusName string) error {
	body, err := json.Marshal(ApplyResultBody{Status: statusName})
	if err != nil {
		return err
	}
	return r.conn.Send(Frame{Type: MsgApplyResult, Body: body})
}

// VerifyResult sends one verification-result reply.
func (r *Replier) VerifyResult(ok bool) error {
	body, err := json.Marshal(VerifyResultBody{Ok: ok})
	if err != nil {
		return err
	}
	return r.conn.Send(Frame{Type: MsgVerifyResult, Body: body})
}

// Pong answers a Ping, attaching host diagnostics for support triage.
func (r *Replier) Pong(diag backend.HostDiagnostics) error {
	body, err := json.Marshal(PongBody{
		Hostname:     diag.Hostname,
		OSType:       diag.OSType,
		OSVersion:    diag.OSVersion,
		KernelVer:    diag.KernelVer,
		Architecture: diag.Architecture,
		UptimeSecs:   diag.UptimeSecs,
	})
	if err != nil {
		return err
	}
	return r.conn.Send(Frame{Type: MsgPong, Body: body})
}
