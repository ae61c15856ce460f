package policy

import (
	"sync"
	"time"
)

// DisconnectGrace tracks how long the IPC transport has been down and
// reports, at most once per disconnect episode, that the grace period has
// elapsed — the signal higher layers use to decide a forced revert.
type DisconnectGrace struct {
	clock Clock
	grace time.Duration

	mu           sync.Mutex
	disconnected bool
	at           time.Time
	triggered    bool
}

// NewDisconnectGrace builds a grace timer using the configured window.
func NewDisconnectGrace(clock Clock, grace time.Duration) *DisconnectGrace {
	return &DisconnectGrace{clock: clock, grace: grace}
}

// MarkDisconnected starts (or restarts) the grace window.
func (g *DisconnectGrace) MarkDisconnected() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnected = true
	g.at = g.clock.Now()
	g.triggered = false
}

// MarkConnected clears the disconnect episode.
func (g *DisconnectGrace) MarkConnected() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnected = false
	g.triggered = false
}

// ShouldTrigger reports true exactly once per disconnect episode, the
// first time it is called after the grace window has elapsed.
func (g *DisconnectGrace) ShouldTrigger() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.disconnected || g.triggered {
		return false
	}
	if g.clock.Now().Sub(g.at) < g.grace {
		return false
	}
	g.triggered = true
	return true
}

// DebouncedTrigger accumulates notifications and reports (via ShouldFire)
// that the quiet interval has elapsed since the most recent notification,
// firing at most once per burst.
type DebouncedTrigger struct {
	clock Clock
	quiet time.Duration

	mu       sync.Mutex
	lastSeen time.Time
	pending  bool
	fired    bool
}

// NewDebouncedTrigger builds a debouncer that fires once a quiet interval
// has elapsed since the last Notify call.
func NewDebouncedTrigger(clock Clock, quiet time.Duration) *DebouncedTrigger {
	return &DebouncedTrigger{clock: clock, quiet: quiet}
}

// Notify records an incoming event, resetting the quiet-interval clock.
func (d *DebouncedTrigger) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSeen = d.clock.Now()
	d.pending = true
	d.fired = false
}

// ShouldFire reports true exactly once per burst, once the quiet interval
// has elapsed since the last Notify.
func (d *DebouncedTrigger) ShouldFire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending || d.fired {
		return false
	}
	if d.clock.Now().Sub(d.lastSeen) < d.quiet {
		return false
	}
	d.fired = true
	d.pending = false
	return true
}
