package ipc

import (
	"encoding/json"
	"testing"

	"github.com/lanternops/display-helper-core/internal/backend"
)

type fakeSender struct {
	sent []Frame
}

func (f *fakeSender) Send(frame Frame) error {
	f.sent = append(f.sent, frame)
	return nil
}

func TestReplierApplyResult(t *testing.T) {
	s := &fakeSender{}
	r := NewReplier(s)
	if err := r.ApplyResult("Ok"); err != nil {
		t.Fatalf("ApplyResult: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].Type != MsgApplyResult {
		t.Fatalf("unexpected sent frames: %+v", s.sent)
	}
	var body ApplyResultBody
	if err := json.Unmarshal(s.sent[0].Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Status != "Ok" {
		t.Fatalf("expected status Ok, got %q", body.Status)
	}
}

func TestReplierVerifyResult(t *testing.T) {
	s := &fakeSender{}
	r := NewReplier(s)
	if err := r.VerifyResult(true); err != nil {
		t.Fatalf("VerifyResult: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].Type != MsgVerifyResult {
		t.Fatalf("unexpected sent frames: %+v", s.sent)
	}
	var body VerifyResultBody
	if err := json.Unmarshal(s.sent[0].Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if !body.Ok {
		t.Fatal("expected Ok=true")
	}
}

func TestReplierPong(t *testing.T) {
	s := &fakeSender{}
	r := NewReplier(s)
	if err := r.Pong(backend.HostDiagnostics{Hostname: "host-1", Architecture: "amd64"}); err != nil {
		t.Fatalf("Pong: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].Type != MsgPong {
		t.Fatalf("unexpected sent frames: %+v", s.sent)
	}
	var body PongBody
	if err := json.Unmarshal(s.sent[0].Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Hostname != "host-1" || body.Architecture != "amd64" {
		t.Fatalf("unexpected pong body: %+v", body)
	}
}
