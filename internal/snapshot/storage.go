// Package snapshot implements the three-tier (golden/current/previous)
// snapshot ledger: capture, blacklist-filtered save, availability-gated
// load, and current-to-previous rotation.
package snapshot

import (
	"errors"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// Tier identifies one of the three snapshot slots.
type Tier int

const (
	Current Tier = iota
	Previous
	Golden
)

func (t Tier) String() string {
	switch t {
	case Current:
		return "current"
	case Previous:
		return "previous"
	case Golden:
		return "golden"
	default:
		return "unknown"
	}
}

// ErrEmptyAfterFilter is returned by Save when blacklist filtering leaves
// both the topology and the modes map empty.
var ErrEmptyAfterFilter = errors.New("snapshot: empty after blacklist filter")

// Storage is the pluggable persistence back-end a Ledger composes with.
// Implementations must treat a missing tier as "not an error" and must
// reject a torn/unparsable file by reporting it as absent.
type Storage interface {
	// Read returns the persisted snapshot for tier, or ok=false if no
	// usable snapshot exists (absent file, or unparsable/torn contents).
	Read(tier Tier) (snap displayapi.Snapshot, ok bool, err error)
	// Write persists snap for tier, replacing any prior contents.
	Write(tier Tier, snap displayapi.Snapshot) error
	// Delete removes any persisted content for tier. Absence is not an
	// error.
	Delete(tier Tier) error
}
