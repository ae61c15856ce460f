package router

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lanternops/display-helper-core/internal/cancel"
	"github.com/lanternops/display-helper-core/internal/ipc"
)

type fakeReceiver struct {
	frames []ipc.Frame
	idx    int
	err    error
}

func (f *fakeReceiver) Receive(timeout time.Duration) (ipc.Frame, error) {
	if f.idx >= len(f.frames) {
		if f.err != nil {
			return ipc.Frame{}, f.err
		}
		return ipc.Frame{}, ipc.ErrTimeout
	}
	frame := f.frames[f.idx]
	f.idx++
	return frame, nil
}

func TestParseEachFrameType(t *testing.T) {
	gen := &cancel.Source{}
	r := New(&fakeReceiver{}, gen, func(Command) {})

	applyBody, _ := json.Marshal(struct {
		Configuration struct {
			DeviceID string `json:"deviceId"`
		} `json:"configuration"`
	}{})

	cases := []struct {
		name    string
		frame   ipc.Frame
		wantErr bool
		check   func(t *testing.T, cmd Command)
	}{
		{"apply", ipc.Frame{Type: ipc.MsgApply, Body: applyBody}, false, func(t *testing.T, cmd Command) {
			if _, ok := cmd.(ApplyCommand); !ok {
				t.Fatalf("expected ApplyCommand, got %T", cmd)
			}
		}},
		{"revert", ipc.Frame{Type: ipc.MsgRevert}, false, func(t *testing.T, cmd Command) {
			if _, ok := cmd.(RevertCommand); !ok {
				t.Fatalf("expected RevertCommand, got %T", cmd)
			}
		}},
		{"reset", ipc.Frame{Type: ipc.MsgReset}, false, func(t *testing.T, cmd Command) {
			if _, ok := cmd.(ResetCommand); !ok {
				t.Fatalf("expected ResetCommand, got %T", cmd)
			}
		}},
		{"export golden", ipc.Frame{Type: ipc.MsgExportGolden, Body: []byte(`{"exclude_devices":["A"]}`)}, false, func(t *testing.T, cmd Command) {
			eg, ok := cmd.(ExportGoldenCommand)
			if !ok {
				t.Fatalf("expected ExportGoldenCommand, got %T", cmd)
			}
			if len(eg.ExcludeDevices) != 1 || eg.ExcludeDevices[0] != "A" {
				t.Fatalf("unexpected exclude devices: %v", eg.ExcludeDevices)
			}
		}},
		{"snapshot current", ipc.Frame{Type: ipc.MsgSnapshotCurrent}, false, func(t *testing.T, cmd Command) {
			if _, ok := cmd.(SnapshotCurrentCommand); !ok {
				t.Fatalf("expected SnapshotCurrentCommand, got %T", cmd)
			}
		}},
		{"ping", ipc.Frame{Type: ipc.MsgPing}, false, func(t *testing.T, cmd Command) {
			if _, ok := cmd.(PingCommand); !ok {
				t.Fatalf("expected PingCommand, got %T", cmd)
			}
		}},
		{"stop", ipc.Frame{Type: ipc.MsgStop}, false, func(t *testing.T, cmd Command) {
			if _, ok := cmd.(StopCommand); !ok {
				t.Fatalf("expected StopCommand, got %T", cmd)
			}
		}},
		{"unknown", ipc.Frame{Type: ipc.MsgType(0x77)}, true, nil},
		{"malformed apply json", ipc.Frame{Type: ipc.MsgApply, Body: []byte("{not json")}, true, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := r.parse(tc.frame)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, cmd)
		})
	}
}

func TestParseStampsCurrentGeneration(t *testing.T) {
	gen := &cancel.Source{}
	gen.Bump()
	gen.Bump()
	r := New(&fakeReceiver{}, gen, func(Command) {})

	cmd, err := r.parse(ipc.Frame{Type: ipc.MsgPing})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.Generation() != gen.Current() {
		t.Fatalf("expected generation %d, got %d", gen.Current(), cmd.Generation())
	}
}

func TestRunPostsEachParsedCommandInOrder(t *testing.T) {
	recv := &fakeReceiver{frames: []ipc.Frame{
		{Type: ipc.MsgPing},
		{Type: ipc.MsgRevert},
		{Type: ipc.MsgStop},
	}, err: ipc.ErrDisconnected}

	var posted []Command
	gen := &cancel.Source{}
	r := New(recv, gen, func(cmd Command) { posted = append(posted, cmd) })

	ctx, cancelFn := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelFn()
	r.Run(ctx)

	if len(posted) != 4 { // ping, revert, stop, then synthesized disarm
		t.Fatalf("expected 4 posted commands, got %d: %#v", len(posted), posted)
	}
	if _, ok := posted[0].(PingCommand); !ok {
		t.Fatalf("posted[0] = %T, want PingCommand", posted[0])
	}
	if _, ok := posted[1].(RevertCommand); !ok {
		t.Fatalf("posted[1] = %T, want RevertCommand", posted[1])
	}
	if _, ok := posted[2].(StopCommand); !ok {
		t.Fatalf("posted[2] = %T, want StopCommand", posted[2])
	}
	if _, ok := posted[3].(DisarmCommand); !ok {
		t.Fatalf("posted[3] = %T, want DisarmCommand (synthesized on disconnect)", posted[3])
	}
}

func TestMalformedFrameDoesNotBlockSubsequentFrames(t *testing.T) {
	recv := &fakeReceiver{frames: []ipc.Frame{
		{Type: ipc.MsgApply, Body: []byte("{bad json")},
		{Type: ipc.MsgPing},
	}, err: ipc.ErrDisconnected}

	var posted []Command
	gen := &cancel.Source{}
	r := New(recv, gen, func(cmd Command) { posted = append(posted, cmd) })

	ctx, cancelFn := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelFn()
	r.Run(ctx)

	if len(posted) != 2 { // ping, then synthesized disarm — malformed apply dropped
		t.Fatalf("expected 2 posted commands, got %d: %#v", len(posted), posted)
	}
	if _, ok := posted[0].(PingCommand); !ok {
		t.Fatalf("posted[0] = %T, want PingCommand", posted[0])
	}
}
