package statemachine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lanternops/display-helper-core/internal/audit"
	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/cancel"
	"github.com/lanternops/display-helper-core/internal/dispatcher"
	"github.com/lanternops/display-helper-core/internal/logging"
	"github.com/lanternops/display-helper-core/internal/policy"
	"github.com/lanternops/display-helper-core/internal/snapshot"
	"github.com/lanternops/display-helper-core/internal/snapshot/archive"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

var log = logging.L("statemachine")

// mailboxCapacity bounds how many unprocessed messages may queue behind
// the one the session is currently handling.
const mailboxCapacity = 64

// Timing bundles the session-level delays that have no Dispatcher
// operation to live on, injected at construction per spec §9 rather
// than referenced from module-level constants. VirtualEventDebounce and
// VirtualRetryDelay flow from config (VirtualEventDebounceMS,
// VirtualRetryDelayMS); HDRBlankDelay flows from HDRBlankDelayMS.
type Timing struct {
	HDRBlankDelay        time.Duration
	VirtualEventDebounce time.Duration
	VirtualRetryDelay    time.Duration
}

// DefaultTiming returns the spec's own default constants.
func DefaultTiming() Timing {
	return Timing{
		HDRBlankDelay:        1000 * time.Millisecond,
		VirtualEventDebounce: 250 * time.Millisecond,
		VirtualRetryDelay:    100 * time.Millisecond,
	}
}

// Session is the single-consumer state machine described in spec §4.3:
// one goroutine drains the mailbox and applies the transition table,
// everything else in the process only ever calls Post.
type Session struct {
	gen *cancel.Source

	stateMu sync.Mutex
	state   State

	currentRequest     *displayapi.ApplyRequest
	expectedTopology    displayapi.Topology
	recoverySnapshot    *displayapi.Snapshot
	applyAttempt        int
	applyResultSent     bool
	recoveryArmed       bool
	preferGoldenFirst   bool
	lastVirtualRestart  time.Time

	ledger      *snapshot.Ledger
	dispatcher  *dispatcher.Dispatcher
	applyPolicy *policy.ApplyPolicy
	heartbeat   *policy.HeartbeatMonitor
	restoreTask backend.RestoreTaskRegistrar
	vd          backend.VirtualDisplayDriver
	replier     Replier
	clock       policy.Clock
	timing      Timing

	archiveMirror archive.Mirror
	installID     string

	auditLog *audit.Logger

	mailbox chan Message

	exitOnce sync.Once
	doneCh   chan struct{}
	exitCode int
}

// New builds a Session wired to its collaborators. heartbeatTimeout <= 0
// uses policy.DefaultHeartbeatTimeout.
func New(
	ledger *snapshot.Ledger,
	disp *dispatcher.Dispatcher,
	applyPolicy *policy.ApplyPolicy,
	heartbeatTimeout time.Duration,
	clock policy.Clock,
	restoreTask backend.RestoreTaskRegistrar,
	vd backend.VirtualDisplayDriver,
	replier Replier,
	timing Timing,
) *Session {
	s := &Session{
		gen:         &cancel.Source{},
		state:       Waiting,
		ledger:      ledger,
		dispatcher:  disp,
		applyPolicy: applyPolicy,
		restoreTask: restoreTask,
		vd:          vd,
		replier:     replier,
		clock:       clock,
		timing:      timing,
		mailbox:     make(chan Message, mailboxCapacity),
		doneCh:      make(chan struct{}),
	}
	s.heartbeat = policy.NewHeartbeatMonitor(clock, heartbeatTimeout, func() {
		s.Post(HeartbeatTimeoutMsg{Gen: s.gen.Current()})
	})
	return s
}

// Post enqueues msg for processing by Run's goroutine. Non-blocking: a
// full mailbox drops the message and logs rather than stalling whichever
// producer (router, dispatcher, event source) called Post.
func (s *Session) Post(msg Message) {
	select {
	case s.mailbox <- msg:
	default:
		log.Warn("mailbox full, dropping message", "type", fmt.Sprintf("%T", msg))
	}
}

// Run drains the mailbox until ctx is cancelled or the session exits
// (Stop command or a successful RecoverValidate). It is the only
// goroutine that ever reads or mutates session state.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.mailbox:
			s.handle(ctx, msg)
			select {
			case <-s.doneCh:
				return
			default:
			}
		}
	}
}

// Done returns a channel closed once the session has requested process
// exit (Stop command, or RecoverValidate(ok)).
func (s *Session) Done() <-chan struct{} { return s.doneCh }

// ExitCode is only meaningful after Done() has fired.
func (s *Session) ExitCode() int { return s.exitCode }

// State returns the current state. Safe to call from any goroutine.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Generation returns the live cancellation generation.
func (s *Session) Generation() uint64 { return s.gen.Current() }

// GenSource returns the session's cancellation generation source, shared
// with the Router and Event Source Adapter so every command/event they
// produce carries the generation live when it was observed.
func (s *Session) GenSource() *cancel.Source { return s.gen }

// SetArchiveMirror wires an optional remote golden-snapshot mirror,
// keyed by installID. Without this call, ExportGolden only persists
// locally. Safe to call once before Run starts.
func (s *Session) SetArchiveMirror(mirror archive.Mirror, installID string) {
	s.archiveMirror = mirror
	s.installID = installID
}

// SetAuditLogger wires the tamper-evident transition log. Without this
// call, transitions are not audited (Log is also nil-receiver safe, so
// this is optional for tests). Safe to call once before Run starts.
func (s *Session) SetAuditLogger(l *audit.Logger) {
	s.auditLog = l
}

// SetPreferGoldenFirst overrides the tier search order Recover uses, for
// callers that dispatch recovery without an Apply request having set it
// first (the boot-time restore pass has no ApplyRequest to read
// PreferGoldenFirst from). Safe to call once before Run starts.
func (s *Session) SetPreferGoldenFirst(v bool) {
	s.preferGoldenFirst = v
}

func (s *Session) setState(next State) {
	s.stateMu.Lock()
	prev := s.state
	s.state = next
	s.stateMu.Unlock()

	if prev != next {
		s.auditLog.Log(audit.EventStateTransition, next.String(), map[string]any{
			"from": prev.String(),
			"to":   next.String(),
		})
	}
}

func (s *Session) exit(code int) {
	s.exitCode = code
	s.exitOnce.Do(func() { close(s.doneCh) })
}

func (s *Session) handle(ctx context.Context, msg Message) {
	if msg.Generation() != s.gen.Current() {
		log.Debug("discarding stale mailbox message",
			"type", fmt.Sprintf("%T", msg), "msgGen", msg.Generation(), "currentGen", s.gen.Current())
		return
	}
	s.dispatch(ctx, msg)
}

func (s *Session) cancelOperations() {
	s.gen.Bump()
}

// onPing updates the heartbeat and best-effort replies with host
// diagnostics (spec's "supplemented feature" #4). A reply failure only
// logs: Ping/Pong never affects a state transition.
func (s *Session) onPing() {
	s.heartbeat.Ping()
	if err := s.replier.Pong(backend.CollectHostDiagnostics()); err != nil {
		log.Debug("send pong failed", "error", err)
	}
}
