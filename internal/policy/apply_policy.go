package policy

import (
	"sync"
	"time"
)

// Outcome status kinds an Apply/Verify/Recover operation can resolve to.
// These mirror the error taxonomy in the spec's §7 and drive ApplyPolicy
// decisions; they are redeclared here (rather than imported from
// displayapi) because the policy package must stay a leaf dependency.
type Status int

const (
	StatusOk Status = iota
	StatusHelperUnavailable
	StatusInvalidRequest
	StatusVerificationFailed
	StatusNeedsVirtualDisplayReset
	StatusRetryable
	StatusFatal
)

const (
	defaultMaxApplyAttempts = 3
	defaultRetryDelay       = 300 * time.Millisecond
	defaultResetCooldown    = 30 * time.Second
)

// VDResetDecision is the verdict of MaybeResetVirtualDisplay.
type VDResetDecision int

const (
	Proceed VDResetDecision = iota
	ResetVirtualDisplay
)

// ApplyPolicy centralizes the apply retry/backoff and virtual-display
// reset-cooldown rules so the dispatcher and state machine never
// hand-roll attempt-counting or cooldown math themselves.
type ApplyPolicy struct {
	clock         Clock
	maxAttempts   int
	retryDelay    time.Duration
	resetCooldown time.Duration

	mu         sync.Mutex
	lastReset  time.Time
	resetPrimed bool
}

// NewApplyPolicy builds an ApplyPolicy with the spec's default constants.
// Pass overrides (e.g. cfg.ApplyMaxAttempts/ApplyRetryDelayMS/
// VirtualResetCooldownSec) to match injected config values; <= 0 keeps
// the spec default for that field.
func NewApplyPolicy(clock Clock, maxAttempts int, retryDelay, resetCooldown time.Duration) *ApplyPolicy {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxApplyAttempts
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	if resetCooldown <= 0 {
		resetCooldown = defaultResetCooldown
	}
	return &ApplyPolicy{clock: clock, maxAttempts: maxAttempts, retryDelay: retryDelay, resetCooldown: resetCooldown}
}

// CanRetryApply reports whether another apply attempt may be scheduled.
// attempt is the 1-based count of the attempt that just completed.
func (p *ApplyPolicy) CanRetryApply(attempt int) bool {
	return attempt < p.maxAttempts
}

// RetryDelay is the fixed pause before the next apply attempt.
func (p *ApplyPolicy) RetryDelay() time.Duration {
	return p.retryDelay
}

// MaybeResetVirtualDisplay decides whether a NeedsVirtualDisplayReset
// status should trigger a reset-and-retry, based on whether the request
// targeted a virtual display and whether the cooldown has elapsed.
func (p *ApplyPolicy) MaybeResetVirtualDisplay(status Status, virtualRequested bool) VDResetDecision {
	if status != StatusNeedsVirtualDisplayReset || !virtualRequested {
		return Proceed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	if p.resetPrimed && now.Sub(p.lastReset) < p.resetCooldown {
		return Proceed
	}
	p.lastReset = now
	p.resetPrimed = true
	return ResetVirtualDisplay
}
