// Package router parses inbound IPC frames into the closed set of typed
// commands the state machine mailbox accepts, stamping each with the
// generation live at parse time (spec §4.2).
package router

import "github.com/lanternops/display-helper-core/pkg/displayapi"

// Command is implemented by every router-produced command. Generation
// returns the session generation snapshot taken when the command was
// parsed, used by the state machine's staleness check.
type Command interface {
	Generation() uint64
}

type baseCommand struct {
	gen uint64
}

// Generation returns the snapshot generation.
func (b baseCommand) Generation() uint64 { return b.gen }

// ApplyCommand starts (or restarts) an apply cycle.
type ApplyCommand struct {
	baseCommand
	Request displayapi.ApplyRequest
}

// NewApplyCommand builds an ApplyCommand stamped with gen.
func NewApplyCommand(gen uint64, req displayapi.ApplyRequest) ApplyCommand {
	return ApplyCommand{baseCommand: baseCommand{gen: gen}, Request: req}
}

// RevertCommand begins recovery.
type RevertCommand struct {
	baseCommand
}

// NewRevertCommand builds a RevertCommand stamped with gen.
func NewRevertCommand(gen uint64) RevertCommand {
	return RevertCommand{baseCommand: baseCommand{gen: gen}}
}

// DisarmCommand disarms recovery/heartbeat and returns to Waiting. Never
// arrives over the wire (no frame type is assigned to it); the router
// synthesizes it when the transport reports disconnection — see
// SPEC_FULL.md's Open Question Decisions.
type DisarmCommand struct {
	baseCommand
}

// NewDisarmCommand builds a DisarmCommand stamped with gen.
func NewDisarmCommand(gen uint64) DisarmCommand {
	return DisarmCommand{baseCommand: baseCommand{gen: gen}}
}

// ExportGoldenCommand captures and saves the Golden tier.
type ExportGoldenCommand struct {
	baseCommand
	ExcludeDevices []string
}

// NewExportGoldenCommand builds an ExportGoldenCommand stamped with gen.
func NewExportGoldenCommand(gen uint64, excludeDevices []string) ExportGoldenCommand {
	return ExportGoldenCommand{baseCommand: baseCommand{gen: gen}, ExcludeDevices: excludeDevices}
}

// SnapshotCurrentCommand rotates Current into Previous, then saves a
// fresh Current snapshot.
type SnapshotCurrentCommand struct {
	baseCommand
	ExcludeDevices []string
}

// NewSnapshotCurrentCommand builds a SnapshotCurrentCommand stamped with gen.
func NewSnapshotCurrentCommand(gen uint64, excludeDevices []string) SnapshotCurrentCommand {
	return SnapshotCurrentCommand{baseCommand: baseCommand{gen: gen}, ExcludeDevices: excludeDevices}
}

// ResetCommand is the deprecated, permanently-reserved no-op.
type ResetCommand struct {
	baseCommand
}

// NewResetCommand builds a ResetCommand stamped with gen.
func NewResetCommand(gen uint64) ResetCommand {
	return ResetCommand{baseCommand: baseCommand{gen: gen}}
}

// PingCommand is a heartbeat beat from the controller.
type PingCommand struct {
	baseCommand
}

// NewPingCommand builds a PingCommand stamped with gen.
func NewPingCommand(gen uint64) PingCommand {
	return PingCommand{baseCommand: baseCommand{gen: gen}}
}

// StopCommand requests graceful process exit.
type StopCommand struct {
	baseCommand
}

// NewStopCommand builds a StopCommand stamped with gen.
func NewStopCommand(gen uint64) StopCommand {
	return StopCommand{baseCommand: baseCommand{gen: gen}}
}
