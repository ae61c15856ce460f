// Package cancel implements generation-stamped cooperative cancellation.
//
// Every in-flight operation or queued message carries a generation snapshot
// taken from a CancellationSource at the moment it was created. A call to
// Bump invalidates every snapshot taken before it; holders compare their
// snapshot against the source's current generation to decide whether their
// work is still live.
package cancel

import "sync/atomic"

// Source is a monotonically increasing generation counter. The zero value
// starts at generation 0 and is ready to use.
type Source struct {
	gen atomic.Uint64
}

// Bump advances the generation by one and returns the new value. Every
// Token captured before this call is now stale.
func (s *Source) Bump() uint64 {
	return s.gen.Add(1)
}

// Current returns the live generation without mutating it.
func (s *Source) Current() uint64 {
	return s.gen.Load()
}

// Token snapshots the current generation.
func (s *Source) Token() Token {
	return Token{gen: s.gen.Load(), source: s}
}

// Token is a point-in-time snapshot of a Source's generation.
type Token struct {
	gen    uint64
	source *Source
}

// Generation returns the snapshotted generation number.
func (t Token) Generation() uint64 {
	return t.gen
}

// Stale reports whether the source has advanced past this token's
// generation, i.e. whether Bump was called after the token was taken.
func (t Token) Stale() bool {
	if t.source == nil {
		return false
	}
	return t.source.Current() != t.gen
}
