package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lanternops/display-helper-core/internal/cancel"
	"github.com/lanternops/display-helper-core/internal/ipc"
	"github.com/lanternops/display-helper-core/internal/logging"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

var log = logging.L("router")

// pollInterval bounds how long a single Receive call blocks, so Run can
// observe ctx cancellation promptly without busy-looping.
const pollInterval = 500 * time.Millisecond

// Receiver is the subset of the IPC transport the router consumes.
type Receiver interface {
	Receive(timeout time.Duration) (ipc.Frame, error)
}

// Router pulls frames off the IPC transport, parses them into Commands,
// and posts each to the state machine mailbox via post.
type Router struct {
	conn Receiver
	gen  *cancel.Source
	post func(Command)
}

// New builds a Router over conn, sharing gen with the state machine so
// every parsed command carries the live generation, and posting parsed
// commands via post.
func New(conn Receiver, gen *cancel.Source, post func(Command)) *Router {
	return &Router{conn: conn, gen: gen, post: post}
}

// Run blocks, parsing and posting frames until ctx is cancelled or the
// transport reports disconnection, at which point it synthesizes a
// DisarmCommand (see SPEC_FULL.md's Open Question Decisions) and returns.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := r.conn.Receive(pollInterval)
		if err != nil {
			if errors.Is(err, ipc.ErrTimeout) {
				continue
			}
			if errors.Is(err, ipc.ErrDisconnected) {
				log.Warn("transport disconnected, synthesizing disarm")
				r.post(NewDisarmCommand(r.gen.Current()))
				return
			}
			log.Warn("receive failed", "error", err)
			continue
		}

		cmd, err := r.parse(frame)
		if err != nil {
			log.Warn("dropping malformed frame", "type", frame.Type, "error", err)
			continue
		}
		r.post(cmd)
	}
}

func (r *Router) parse(frame ipc.Frame) (Command, error) {
	gen := r.gen.Current()

	switch frame.Type {
	case ipc.MsgApply:
		var req displayapi.ApplyRequest
		if len(frame.Body) > 0 {
			if err := json.Unmarshal(frame.Body, &req); err != nil {
				return nil, fmt.Errorf("router: decode Apply body: %w", err)
			}
		}
		return NewApplyCommand(gen, req), nil

	case ipc.MsgRevert:
		return NewRevertCommand(gen), nil

	case ipc.MsgReset:
		return NewResetCommand(gen), nil

	case ipc.MsgExportGolden:
		exclude, err := parseExcludeDevices(frame.Body)
		if err != nil {
			return nil, fmt.Errorf("router: decode ExportGolden body: %w", err)
		}
		return NewExportGoldenCommand(gen, exclude), nil

	case ipc.MsgSnapshotCurrent:
		exclude, err := parseExcludeDevices(frame.Body)
		if err != nil {
			return nil, fmt.Errorf("router: decode SnapshotCurrent body: %w", err)
		}
		return NewSnapshotCurrentCommand(gen, exclude), nil

	case ipc.MsgPing:
		return NewPingCommand(gen), nil

	case ipc.MsgStop:
		return NewStopCommand(gen), nil

	default:
		return nil, fmt.Errorf("router: unrecognized frame type 0x%02x", byte(frame.Type))
	}
}

func parseExcludeDevices(body []byte) ([]string, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var b ipc.ExcludeDevicesBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, err
	}
	return b.ExcludeDevices, nil
}
