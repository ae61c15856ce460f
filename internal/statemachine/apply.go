package statemachine

import (
	"context"
	"time"

	"github.com/lanternops/display-helper-core/internal/audit"
	"github.com/lanternops/display-helper-core/internal/dispatcher"
	"github.com/lanternops/display-helper-core/internal/policy"
	"github.com/lanternops/display-helper-core/internal/router"
)

// onApply starts (or restarts) an apply cycle. Ignored while recovering
// (Recovery, RecoveryValidation): a new display request doesn't interrupt
// an in-flight recovery from a broken state.
func (s *Session) onApply(ctx context.Context, cmd router.ApplyCommand) {
	switch s.State() {
	case Recovery, RecoveryValidation:
		return
	case InProgress, Verification:
		s.cancelOperations()
	}

	req := cmd.Request
	s.currentRequest = &req
	s.expectedTopology = nil
	s.applyAttempt = 1
	s.applyResultSent = false
	s.preferGoldenFirst = req.PreferGoldenFirst

	s.auditLog.Log(audit.EventApplyReceived, "", map[string]any{
		"topology":      req.Topology,
		"virtualLayout": req.VirtualLayout,
	})

	if err := s.restoreTask.Install(ctx); err != nil {
		log.Warn("restore task install failed", "error", err)
	}

	s.dispatchApply(ctx, 0, false)
	s.setState(InProgress)
}

func (s *Session) dispatchApply(ctx context.Context, delay time.Duration, resetVirtualDisplay bool) {
	token := s.gen.Token()
	s.dispatcher.DispatchApply(ctx, token, *s.currentRequest, delay, resetVirtualDisplay)
}

// onApplyCompleted is only meaningful while InProgress; a completion that
// arrives after the session has moved on (Revert, Disarm, a fresher
// Apply) is silently irrelevant rather than stale-by-generation, because
// the generation check already filtered those cases upstream.
func (s *Session) onApplyCompleted(ctx context.Context, m dispatcher.ApplyCompleted) {
	if s.State() != InProgress {
		return
	}

	switch m.Outcome.Status {
	case policy.StatusOk:
		s.expectedTopology = m.Outcome.ExpectedTopology
		s.auditLog.Log(audit.EventApplyCompleted, "", map[string]any{"attempt": s.applyAttempt})
		s.sendApplyResultOnce(policy.StatusOk)
		s.dispatchVerify(ctx)
		s.setState(Verification)

	case policy.StatusNeedsVirtualDisplayReset:
		if s.applyPolicy.MaybeResetVirtualDisplay(policy.StatusNeedsVirtualDisplayReset, m.Outcome.VirtualDisplayRequested) == policy.ResetVirtualDisplay {
			s.dispatchApply(ctx, 0, true)
			s.setState(InProgress)
			return
		}
		s.sendApplyResultOnce(policy.StatusNeedsVirtualDisplayReset)
		s.setState(Waiting)

	case policy.StatusRetryable, policy.StatusVerificationFailed:
		if s.applyPolicy.CanRetryApply(s.applyAttempt) {
			s.applyAttempt++
			s.dispatchApply(ctx, s.applyPolicy.RetryDelay(), false)
			s.setState(InProgress)
			return
		}
		s.sendApplyResultOnce(m.Outcome.Status)
		s.setState(Waiting)

	default: // HelperUnavailable, InvalidRequest, Fatal
		s.sendApplyResultOnce(m.Outcome.Status)
		s.setState(Waiting)
	}
}

// sendApplyResultOnce enforces "at most one apply-result reply per Apply
// command" (spec §8): later retries of the same cycle never send a
// second reply.
func (s *Session) sendApplyResultOnce(status policy.Status) {
	if s.applyResultSent {
		return
	}
	s.applyResultSent = true
	if err := s.replier.ApplyResult(statusName(status)); err != nil {
		log.Warn("send apply result failed", "error", err)
	}
}
