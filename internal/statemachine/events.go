package statemachine

import "context"

// onDisplayEvent reacts to a raw backend display/power event. Behavior
// varies sharply by state (spec §4.3):
//   - Waiting, Recovery, RecoveryValidation: ignored, nothing to retarget
//     or re-apply mid-recovery.
//   - EventLoop: if recovery is armed, a display change is the trigger to
//     try recovery again.
//   - VirtualDisplayMonitoring: any event re-targets the virtual device
//     (its id can change across a cycle) and re-applies.
//   - InProgress, Verification: only acted on when the current request
//     targets a virtual display; a spurious event (device id unchanged)
//     or one inside the debounce window is ignored, otherwise the
//     in-flight work is cancelled and the request re-dispatched against
//     the new device id.
func (s *Session) onDisplayEvent(ctx context.Context, m DisplayEventMsg) {
	switch s.State() {
	case Waiting, Recovery, RecoveryValidation:
		return

	case EventLoop:
		if !s.recoveryArmed {
			return
		}
		s.dispatchRecover(ctx)
		s.setState(Recovery)

	case VirtualDisplayMonitoring:
		s.retargetVirtualDevice(ctx)
		s.applyAttempt = 1
		s.dispatchApply(ctx, 0, false)
		s.setState(InProgress)

	case InProgress, Verification:
		s.maybeRetargetDuringApply(ctx)
	}
}

func (s *Session) maybeRetargetDuringApply(ctx context.Context) {
	req := s.currentRequest
	if req == nil || !req.TargetsVirtualDisplay() || req.Configuration == nil {
		return
	}

	currentID, err := s.vd.CurrentDeviceID(ctx)
	if err != nil {
		log.Warn("query virtual device id failed", "error", err)
		return
	}
	if currentID == req.Configuration.DeviceID {
		return // spurious: device id unchanged
	}
	if s.clock.Now().Sub(s.lastVirtualRestart) < s.timing.VirtualEventDebounce {
		return
	}

	s.lastVirtualRestart = s.clock.Now()
	s.cancelOperations()
	s.expectedTopology = nil
	req.Configuration.DeviceID = currentID
	s.applyAttempt = 1
	s.dispatchApply(ctx, s.timing.VirtualRetryDelay, false)
	s.setState(InProgress)
}

func (s *Session) retargetVirtualDevice(ctx context.Context) {
	req := s.currentRequest
	if req == nil || req.Configuration == nil {
		return
	}
	currentID, err := s.vd.CurrentDeviceID(ctx)
	if err != nil {
		log.Warn("query virtual device id failed", "error", err)
		return
	}
	if currentID != "" && currentID != req.Configuration.DeviceID {
		req.Configuration.DeviceID = currentID
	}
}

// onHeartbeatTimeout fires recovery when the peer has gone silent while
// armed. Waiting/Recovery/RecoveryValidation ignore it: there is nothing
// to interrupt, or recovery is already underway.
func (s *Session) onHeartbeatTimeout(ctx context.Context, m HeartbeatTimeoutMsg) {
	switch s.State() {
	case Waiting, Recovery, RecoveryValidation:
		return
	default: // InProgress, Verification, EventLoop, VirtualDisplayMonitoring
		if !s.recoveryArmed {
			return
		}
		s.dispatchRecover(ctx)
		s.setState(Recovery)
	}
}
