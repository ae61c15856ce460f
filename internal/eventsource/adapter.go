// Package eventsource adapts raw OS display/power signals into
// generation-stamped mailbox messages the state machine consumes (spec
// §4.7). Platform-specific producers (linux.go, windows.go) feed a
// shared backend.DisplayEventSource that the Adapter here coalesces and
// forwards.
package eventsource

import (
	"context"

	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/cancel"
	"github.com/lanternops/display-helper-core/internal/logging"
)

var log = logging.L("eventsource")

// Poster is the subset of the state machine's Session the adapter needs.
type Poster interface {
	Post(msg Message)
}

// Message is satisfied by statemachine.DisplayEventMsg; declared locally
// (mirroring internal/statemachine's Replier pattern) so this package
// doesn't need to import the state machine.
type Message interface {
	Generation() uint64
}

// Adapter drains a backend.DisplayEventSource and posts one Message per
// distinct event, coalescing runs of identical consecutive events so a
// noisy source can't flood the mailbox.
type Adapter struct {
	source backend.DisplayEventSource
	gen    *cancel.Source
	post   func(kind backend.DisplayEventKind, gen uint64)
}

// New builds an Adapter over source, sharing gen with the state machine
// so every posted message carries the live generation. post is called
// for each coalesced event; wiring code (cmd/display-helper) supplies a
// closure that wraps (kind, gen) into a statemachine.DisplayEventMsg and
// calls Session.Post.
func New(source backend.DisplayEventSource, gen *cancel.Source, post func(kind backend.DisplayEventKind, gen uint64)) *Adapter {
	return &Adapter{source: source, gen: gen, post: post}
}

// Run drains source.Events() until ctx is cancelled or the channel
// closes, coalescing identical consecutive events.
func (a *Adapter) Run(ctx context.Context) {
	var (
		havePrev bool
		prevKind backend.DisplayEventKind
	)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.source.Events():
			if !ok {
				return
			}
			if havePrev && evt.Kind == prevKind {
				continue
			}
			havePrev = true
			prevKind = evt.Kind
			a.post(evt.Kind, a.gen.Current())
		}
	}
}
