package statemachine

import (
	"context"

	"github.com/lanternops/display-helper-core/internal/dispatcher"
)

func (s *Session) dispatchVerify(ctx context.Context) {
	token := s.gen.Token()
	s.dispatcher.DispatchVerify(ctx, token, *s.currentRequest, s.expectedTopology)
}

// onVerifyCompleted is only meaningful while Verification. A verification
// result is always separately reportable (spec §7), independent of
// whether it passed.
func (s *Session) onVerifyCompleted(ctx context.Context, m dispatcher.VerifyCompleted) {
	if s.State() != Verification {
		return
	}

	if err := s.replier.VerifyResult(m.Ok); err != nil {
		log.Warn("send verify result failed", "error", err)
	}

	if !m.Ok {
		s.setState(Waiting)
		return
	}

	s.recoveryArmed = true
	s.heartbeat.Arm()
	s.dispatcher.DispatchRefreshShell(ctx)

	req := s.currentRequest
	if req != nil && req.HDRBlank && req.Configuration != nil {
		s.dispatcher.DispatchHDRBlank(ctx, s.timing.HDRBlankDelay, req.Configuration.DeviceID)
	}

	if req != nil && req.TargetsVirtualDisplay() {
		s.setState(VirtualDisplayMonitoring)
		return
	}
	s.setState(Waiting)
}
