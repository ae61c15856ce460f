package statemachine

import (
	"context"

	"github.com/lanternops/display-helper-core/internal/audit"
	"github.com/lanternops/display-helper-core/internal/dispatcher"
	"github.com/lanternops/display-helper-core/internal/router"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

func (s *Session) dispatchRecover(ctx context.Context) {
	token := s.gen.Token()
	s.dispatcher.DispatchRecover(ctx, token, s.preferGoldenFirst)
}

func (s *Session) dispatchRecoverValidate(ctx context.Context, snap displayapi.Snapshot) {
	token := s.gen.Token()
	s.dispatcher.DispatchRecoverValidate(ctx, token, snap)
}

// onRevert always cancels whatever is in flight and moves to Recovery;
// bumping the generation with no outstanding work in flight (Waiting,
// EventLoop, VirtualDisplayMonitoring) is harmless.
func (s *Session) onRevert(ctx context.Context, cmd router.RevertCommand) {
	s.auditLog.Log(audit.EventRevertReceived, "", nil)
	s.cancelOperations()
	s.recoveryArmed = true
	s.heartbeat.Arm()
	if err := s.restoreTask.Delete(ctx); err != nil {
		log.Warn("restore task delete failed", "error", err)
	}
	s.dispatchRecover(ctx)
	s.setState(Recovery)
}

// onDisarm returns to Waiting from any state. It is never parsed from the
// wire; the router synthesizes it on transport disconnect.
func (s *Session) onDisarm(ctx context.Context, cmd router.DisarmCommand) {
	s.auditLog.Log(audit.EventDisarm, "", nil)
	s.cancelOperations()
	s.recoveryArmed = false
	s.heartbeat.Disarm()
	if err := s.restoreTask.Delete(ctx); err != nil {
		log.Warn("restore task delete failed", "error", err)
	}
	s.currentRequest = nil
	s.expectedTopology = nil
	s.recoverySnapshot = nil
	s.applyAttempt = 0
	s.applyResultSent = false
	s.setState(Waiting)
}

// onRecoverCompleted is only meaningful while Recovery.
func (s *Session) onRecoverCompleted(ctx context.Context, m dispatcher.RecoverCompleted) {
	if s.State() != Recovery {
		return
	}
	if !m.Outcome.Success {
		s.setState(EventLoop)
		return
	}
	snap := m.Outcome.Snapshot
	s.recoverySnapshot = &snap
	s.dispatchRecoverValidate(ctx, snap)
	s.setState(RecoveryValidation)
}

// onRecoverValidateCompleted is only meaningful while RecoveryValidation.
// A match is the one condition that ends the process (spec §4.3); a
// mismatch falls back to EventLoop to wait for the next trigger.
func (s *Session) onRecoverValidateCompleted(ctx context.Context, m dispatcher.RecoverValidateCompleted) {
	if s.State() != RecoveryValidation {
		return
	}
	s.auditLog.Log(audit.EventRecoveryOutcome, "", map[string]any{"matched": m.Ok})
	if !m.Ok {
		s.setState(EventLoop)
		return
	}
	s.recoveryArmed = false
	s.heartbeat.Disarm()
	if err := s.restoreTask.Delete(ctx); err != nil {
		log.Warn("restore task delete failed", "error", err)
	}
	s.exit(0)
}
