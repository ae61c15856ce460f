package snapshot

import (
	"context"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// Capturer is the subset of DisplayBackend the ledger needs to take a
// point-in-time snapshot of the live OS state.
type Capturer interface {
	CaptureSnapshot(ctx context.Context) (displayapi.Snapshot, error)
}

// Ledger composes a Storage backend with blacklist filtering, the
// available-devices load precondition, and current->previous rotation.
type Ledger struct {
	storage  Storage
	capturer Capturer
}

// NewLedger builds a Ledger over the given storage and capture source.
func NewLedger(storage Storage, capturer Capturer) *Ledger {
	return &Ledger{storage: storage, capturer: capturer}
}

// Capture asks the backend for the current OS display state.
func (l *Ledger) Capture(ctx context.Context) (displayapi.Snapshot, error) {
	return l.capturer.CaptureSnapshot(ctx)
}

// Save filters snap by blacklist (pruning topology groups, modes, hdr
// states, and primary device) and persists the result to tier. A save
// that would leave both topology and modes empty is rejected.
func (l *Ledger) Save(tier Tier, snap displayapi.Snapshot, blacklist map[string]struct{}) error {
	filtered := snap.Filter(blacklist)
	if filtered.IsEmpty() {
		return ErrEmptyAfterFilter
	}
	return l.storage.Write(tier, filtered)
}

// Load reads tier and returns (snapshot, true) only if every device the
// snapshot references is present in availableDevices. This guarantees
// recovery never asks the OS to configure a physically absent display.
func (l *Ledger) Load(tier Tier, availableDevices map[string]struct{}) (displayapi.Snapshot, bool) {
	snap, ok, err := l.storage.Read(tier)
	if err != nil || !ok {
		return displayapi.Snapshot{}, false
	}
	for id := range snap.DeviceIDs() {
		if _, present := availableDevices[id]; !present {
			return displayapi.Snapshot{}, false
		}
	}
	return snap, true
}

// RotateCurrentToPrevious moves Current into Previous: it writes Current's
// contents to Previous, then deletes Current. Returns false
// (not an error) if Current is absent; calling it twice in a row with no
// intervening save is idempotent — the second call also returns false.
func (l *Ledger) RotateCurrentToPrevious() (bool, error) {
	cur, ok, err := l.storage.Read(Current)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := l.storage.Write(Previous, cur); err != nil {
		return false, err
	}
	if err := l.storage.Delete(Current); err != nil {
		return false, err
	}
	return true, nil
}

// RecoveryOrder returns the tier search order for Recover, per
// preferGoldenFirst.
func RecoveryOrder(preferGoldenFirst bool) []Tier {
	if preferGoldenFirst {
		return []Tier{Golden, Current, Previous}
	}
	return []Tier{Current, Previous, Golden}
}
