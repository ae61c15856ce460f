package archive

import (
	"context"
	"testing"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

func TestLocalMirrorRoundTrips(t *testing.T) {
	m := NewLocalMirror(t.TempDir())
	snap := displayapi.Snapshot{
		Topology:      displayapi.Topology{{"A", "B"}},
		Modes:         map[string]displayapi.Mode{"A": {Width: 1920, Height: 1080, Numerator: 60, Denominator: 1}},
		HDRStates:     map[string]displayapi.HDRState{"A": displayapi.HDROn},
		PrimaryDevice: "A",
	}

	if err := m.Upload(context.Background(), "install-123", snap); err != nil {
		t.Fatalf("upload: %v", err)
	}

	got, err := m.Download(context.Background(), "install-123")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if got.PrimaryDevice != snap.PrimaryDevice {
		t.Fatalf("primary device mismatch: got %q, want %q", got.PrimaryDevice, snap.PrimaryDevice)
	}
	if len(got.Topology) != 1 || len(got.Topology[0]) != 2 {
		t.Fatalf("unexpected topology after round trip: %+v", got.Topology)
	}
}

func TestLocalMirrorRejectsPathTraversal(t *testing.T) {
	m := NewLocalMirror(t.TempDir())
	err := m.Upload(context.Background(), "../../etc/passwd", displayapi.Snapshot{
		Topology: displayapi.Topology{{"A"}},
		Modes:    map[string]displayapi.Mode{"A": {Width: 1, Height: 1, Numerator: 1, Denominator: 1}},
	})
	if err == nil {
		t.Fatal("expected path traversal to be rejected")
	}
}

func TestLocalMirrorDownloadMissingKeyErrors(t *testing.T) {
	m := NewLocalMirror(t.TempDir())
	if _, err := m.Download(context.Background(), "never-uploaded"); err == nil {
		t.Fatal("expected an error downloading a key that was never uploaded")
	}
}
