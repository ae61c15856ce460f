package dispatcher

import (
	"context"
	"time"

	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/cancel"
	"github.com/lanternops/display-helper-core/internal/policy"
	"github.com/lanternops/display-helper-core/internal/snapshot"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// Timing bundles the operation-level delays and retry bounds a
// Dispatcher needs, injected at construction per spec §9 rather than
// referenced from module-level constants. VerifySettleDelay,
// RecoverRetryDelay, and MaxRecoverAttempts flow from config
// (VerifySettleDelayMS, RecoverRetryDelayMS, RecoverMaxAttempts); the
// remaining settle delays have no tunable config knob and keep the
// spec's fixed values in DefaultTiming.
type Timing struct {
	VDDisableSettle      time.Duration
	VDEnableSettle       time.Duration
	VerifySettleDelay    time.Duration
	RecoverApplySettle   time.Duration
	RecoverRetryDelay    time.Duration
	RecoverValidateDelay time.Duration
	MaxRecoverAttempts   int
}

// DefaultTiming returns the spec's own default constants.
func DefaultTiming() Timing {
	return Timing{
		VDDisableSettle:      500 * time.Millisecond,
		VDEnableSettle:       1000 * time.Millisecond,
		VerifySettleDelay:    250 * time.Millisecond,
		RecoverApplySettle:   250 * time.Millisecond,
		RecoverRetryDelay:    300 * time.Millisecond,
		RecoverValidateDelay: 250 * time.Millisecond,
		MaxRecoverAttempts:   2,
	}
}

// sleepCancellable blocks for d (or returns immediately if d <= 0),
// reporting false if token was already stale before sleeping, ctx was
// cancelled during the sleep, or token went stale while sleeping — every
// suspension point in §4.4's operations is followed (and, for Verify,
// preceded) by this check.
func sleepCancellable(ctx context.Context, d time.Duration, token cancel.Token) bool {
	if token.Stale() {
		return false
	}
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return false
		}
	}
	return !token.Stale()
}

// mapApplyStatus collapses the backend's fine-grained ApplyStatus into the
// coarser policy.Status the retry/cooldown policy and the state machine's
// transition table operate on (spec §4.4 step 7). NeedsVirtualDisplayReset,
// HelperUnavailable, and InvalidRequest are preserved as their own
// outcomes — the state table dispatches on them individually — rather than
// folded into the prose's "anything else" bucket, which describes a
// non-exhaustive source enum; any status this function doesn't recognize
// maps to Fatal.
func mapApplyStatus(status backend.ApplyStatus) policy.Status {
	switch status {
	case backend.ApplyOk:
		return policy.StatusOk
	case backend.ApplyAPITemporarilyUnavailable, backend.ApplyPersistenceSaveFailed:
		return policy.StatusRetryable
	case backend.ApplyDevicePrepFailed, backend.ApplyPrimaryDevicePrepFailed,
		backend.ApplyDisplayModePrepFailed, backend.ApplyHdrStatePrepFailed:
		return policy.StatusVerificationFailed
	case backend.ApplyNeedsVirtualDisplayReset:
		return policy.StatusNeedsVirtualDisplayReset
	case backend.ApplyHelperUnavailable:
		return policy.StatusHelperUnavailable
	case backend.ApplyInvalidRequest:
		return policy.StatusInvalidRequest
	default:
		return policy.StatusFatal
	}
}

// statusOrFatal maps a backend call's (status, error) pair: a non-nil
// error from the backend is always Fatal, matching §7's "no exception
// ever crosses the dispatcher/state-machine boundary."
func statusOrFatal(status backend.ApplyStatus, err error) policy.Status {
	if err != nil {
		return policy.StatusFatal
	}
	return mapApplyStatus(status)
}

func (d *Dispatcher) applyOp(ctx context.Context, token cancel.Token, req displayapi.ApplyRequest, delay time.Duration, resetVirtualDisplay bool) ApplyOutcome {
	virtualRequested := req.TargetsVirtualDisplay()
	fatal := func() ApplyOutcome {
		return ApplyOutcome{Status: policy.StatusFatal, VirtualDisplayRequested: virtualRequested}
	}

	if delay > 0 && !sleepCancellable(ctx, delay, token) {
		return fatal()
	}

	if resetVirtualDisplay {
		if err := d.vd.Disable(ctx); err != nil {
			return fatal()
		}
		if !sleepCancellable(ctx, d.timing.VDDisableSettle, token) {
			return fatal()
		}
		if err := d.vd.Enable(ctx); err != nil {
			return fatal()
		}
		if !sleepCancellable(ctx, d.timing.VDEnableSettle, token) {
			return fatal()
		}
	}

	if token.Stale() {
		return fatal()
	}

	if req.Configuration == nil {
		return ApplyOutcome{Status: policy.StatusInvalidRequest, VirtualDisplayRequested: virtualRequested}
	}

	expected, err := d.resolveExpectedTopology(ctx, req)
	if err != nil {
		return fatal()
	}

	if len(req.Topology) > 0 {
		topoStatus, topoErr := d.backend.ApplyTopology(ctx, req.Topology)
		mapped := statusOrFatal(topoStatus, topoErr)
		if mapped != policy.StatusOk {
			return ApplyOutcome{Status: mapped, ExpectedTopology: expected, VirtualDisplayRequested: virtualRequested}
		}
	}

	applyStatus, applyErr := d.backend.Apply(ctx, *req.Configuration)
	mapped := statusOrFatal(applyStatus, applyErr)

	for _, mp := range req.MonitorPositions {
		if mp.DeviceID == "" {
			continue
		}
		_ = d.backend.SetDisplayOrigin(ctx, mp.DeviceID, mp.Origin.X, mp.Origin.Y)
	}

	return ApplyOutcome{Status: mapped, ExpectedTopology: expected, VirtualDisplayRequested: virtualRequested}
}

func (d *Dispatcher) resolveExpectedTopology(ctx context.Context, req displayapi.ApplyRequest) (displayapi.Topology, error) {
	if len(req.Topology) > 0 {
		return req.Topology, nil
	}
	return d.backend.CurrentTopology(ctx)
}

func (d *Dispatcher) verifyOp(ctx context.Context, token cancel.Token, req displayapi.ApplyRequest, expectedTopology displayapi.Topology) bool {
	if !sleepCancellable(ctx, d.timing.VerifySettleDelay, token) {
		return false
	}

	if len(expectedTopology) > 0 {
		same, err := d.backend.IsTopologySame(ctx, expectedTopology)
		if err != nil || !same {
			return false
		}
	}

	if req.Configuration != nil {
		matches, err := d.backend.ConfigurationMatches(ctx, *req.Configuration)
		if err != nil || !matches {
			return false
		}
	}

	return !token.Stale()
}

func (d *Dispatcher) recoverOp(ctx context.Context, token cancel.Token, preferGoldenFirst bool) RecoveryOutcome {
	available, err := d.backend.AvailableDevices(ctx)
	if err != nil {
		return RecoveryOutcome{Success: false}
	}

	for _, tier := range snapshot.RecoveryOrder(preferGoldenFirst) {
		if token.Stale() {
			return RecoveryOutcome{Success: false}
		}

		snap, ok := d.ledger.Load(tier, available)
		if !ok {
			continue
		}

		valid, err := d.backend.ValidateSnapshot(ctx, snap)
		if err != nil || !valid {
			continue
		}

		if succeeded := d.attemptApplySnapshot(ctx, token, snap); succeeded {
			return RecoveryOutcome{Success: true, Snapshot: snap}
		}
		if token.Stale() {
			return RecoveryOutcome{Success: false}
		}
	}

	return RecoveryOutcome{Success: false}
}

// attemptApplySnapshot applies snap up to MaxRecoverAttempts times: a
// Retryable result waits and retries; an Ok result settles and checks for
// a match; anything else (should_skip_tier) gives up on this tier
// immediately.
func (d *Dispatcher) attemptApplySnapshot(ctx context.Context, token cancel.Token, snap displayapi.Snapshot) bool {
	for attempt := 1; attempt <= d.timing.MaxRecoverAttempts; attempt++ {
		if token.Stale() {
			return false
		}

		status, err := d.backend.ApplySnapshot(ctx, snap)
		mapped := statusOrFatal(status, err)

		switch {
		case mapped == policy.StatusOk:
			if !sleepCancellable(ctx, d.timing.RecoverApplySettle, token) {
				return false
			}
			matches, err := d.backend.MatchesSnapshot(ctx, snap)
			return err == nil && matches

		case mapped == policy.StatusRetryable && attempt < d.timing.MaxRecoverAttempts:
			if !sleepCancellable(ctx, d.timing.RecoverRetryDelay, token) {
				return false
			}
			continue

		default:
			return false
		}
	}
	return false
}

func (d *Dispatcher) recoverValidateOp(ctx context.Context, token cancel.Token, snap displayapi.Snapshot) bool {
	if !sleepCancellable(ctx, d.timing.RecoverValidateDelay, token) {
		return false
	}
	matches, err := d.backend.MatchesSnapshot(ctx, snap)
	if err != nil {
		return false
	}
	return matches
}
