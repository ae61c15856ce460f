package snapshot

import (
	"context"
	"testing"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

type fakeCapturer struct {
	snap displayapi.Snapshot
	err  error
}

func (f *fakeCapturer) CaptureSnapshot(ctx context.Context) (displayapi.Snapshot, error) {
	return f.snap, f.err
}

func sampleSnapshot() displayapi.Snapshot {
	return displayapi.Snapshot{
		Topology: displayapi.Topology{{"A"}, {"B", "C"}},
		Modes: map[string]displayapi.Mode{
			"A": {Width: 2560, Height: 1440, Numerator: 120000, Denominator: 1000},
			"B": {Width: 1920, Height: 1080, Numerator: 60000, Denominator: 1000},
			"C": {Width: 1920, Height: 1080, Numerator: 60000, Denominator: 1000},
		},
		HDRStates:     map[string]displayapi.HDRState{"A": displayapi.HDROn},
		PrimaryDevice: "A",
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	l := NewLedger(NewMemStore(), &fakeCapturer{})
	snap := sampleSnapshot()

	if err := l.Save(Current, snap, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	available := map[string]struct{}{"A": {}, "B": {}, "C": {}}
	got, ok := l.Load(Current, available)
	if !ok {
		t.Fatal("expected load to succeed")
	}
	if !got.Equal(snap) {
		t.Fatalf("round-tripped snapshot differs: %+v vs %+v", got, snap)
	}
}

func TestSaveRejectsEmptyAfterFilter(t *testing.T) {
	l := NewLedger(NewMemStore(), &fakeCapturer{})
	snap := sampleSnapshot()
	blacklist := map[string]struct{}{"A": {}, "B": {}, "C": {}}
	err := l.Save(Current, snap, blacklist)
	if err != ErrEmptyAfterFilter {
		t.Fatalf("expected ErrEmptyAfterFilter, got %v", err)
	}
}

func TestSaveFiltersBlacklistedDevices(t *testing.T) {
	l := NewLedger(NewMemStore(), &fakeCapturer{})
	snap := sampleSnapshot()
	blacklist := map[string]struct{}{"B": {}}
	if err := l.Save(Current, snap, blacklist); err != nil {
		t.Fatalf("save: %v", err)
	}
	available := map[string]struct{}{"A": {}, "C": {}}
	got, ok := l.Load(Current, available)
	if !ok {
		t.Fatal("expected load to succeed")
	}
	if _, present := got.Modes["B"]; present {
		t.Fatal("blacklisted device B should have been filtered")
	}
}

func TestLoadRejectsSnapshotWithUnavailableDevice(t *testing.T) {
	l := NewLedger(NewMemStore(), &fakeCapturer{})
	snap := sampleSnapshot()
	if err := l.Save(Current, snap, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	available := map[string]struct{}{"A": {}} // B, C missing
	if _, ok := l.Load(Current, available); ok {
		t.Fatal("expected load to fail when a referenced device is unavailable")
	}
}

func TestRotateCurrentToPreviousIdempotent(t *testing.T) {
	l := NewLedger(NewMemStore(), &fakeCapturer{})
	snap := sampleSnapshot()
	if err := l.Save(Current, snap, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := l.RotateCurrentToPrevious()
	if err != nil || !ok {
		t.Fatalf("expected first rotate to succeed, ok=%v err=%v", ok, err)
	}

	available := map[string]struct{}{"A": {}, "B": {}, "C": {}}
	got, ok := l.Load(Previous, available)
	if !ok || !got.Equal(snap) {
		t.Fatalf("expected previous to hold rotated snapshot")
	}

	ok, err = l.RotateCurrentToPrevious()
	if err != nil {
		t.Fatalf("second rotate errored: %v", err)
	}
	if ok {
		t.Fatal("second rotate with no intervening save must return false")
	}
}

func TestRotateCurrentAbsentReturnsFalse(t *testing.T) {
	l := NewLedger(NewMemStore(), &fakeCapturer{})
	ok, err := l.RotateCurrentToPrevious()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected false when Current is absent")
	}
}

func TestRecoveryOrder(t *testing.T) {
	if got := RecoveryOrder(false); got[0] != Current || got[1] != Previous || got[2] != Golden {
		t.Fatalf("unexpected default order: %v", got)
	}
	if got := RecoveryOrder(true); got[0] != Golden || got[1] != Current || got[2] != Previous {
		t.Fatalf("unexpected golden-first order: %v", got)
	}
}
