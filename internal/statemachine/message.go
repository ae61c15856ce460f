package statemachine

import "github.com/lanternops/display-helper-core/internal/backend"

// Message is the open interface every mailbox entry satisfies: router
// Commands, dispatcher Completions, and the two kinds declared here. It
// is deliberately open rather than a sealed sum type — router and
// dispatcher are leaf packages this package depends on, and closing the
// interface would need an import cycle back into statemachine.
type Message interface {
	Generation() uint64
}

// DisplayEventMsg wraps a raw backend display event with the generation
// live when the event source adapter observed it.
type DisplayEventMsg struct {
	Gen   uint64
	Event backend.DisplayEvent
}

// Generation returns the snapshot generation.
func (m DisplayEventMsg) Generation() uint64 { return m.Gen }

// HeartbeatTimeoutMsg signals that the armed HeartbeatMonitor's deadline
// elapsed with no intervening Ping.
type HeartbeatTimeoutMsg struct {
	Gen uint64
}

// Generation returns the snapshot generation.
func (m HeartbeatTimeoutMsg) Generation() uint64 { return m.Gen }
