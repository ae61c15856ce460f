// Package backend declares the OS-collaborator interfaces the Display
// Helper Core consumes: the display device backend, the virtual-display
// driver, the restore-task registrar, and the display event source. Spec
// §1 models these as out-of-scope external collaborators; this package
// pins down the Go interface boundary only. Concrete OS implementations
// live in subpackages (windows/, fake/).
package backend

import (
	"context"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// ApplyStatus is the outcome of a single DisplayBackend.Apply call, using
// the error taxonomy from spec §7.
type ApplyStatus int

const (
	ApplyOk ApplyStatus = iota
	ApplyHelperUnavailable
	ApplyInvalidRequest
	ApplyAPITemporarilyUnavailable
	ApplyPersistenceSaveFailed
	ApplyDevicePrepFailed
	ApplyPrimaryDevicePrepFailed
	ApplyDisplayModePrepFailed
	ApplyHdrStatePrepFailed
	ApplyNeedsVirtualDisplayReset
	ApplyFatal
)

// DisplayBackend is the OS-specific surface that enumerates devices,
// applies mode sets, queries topology, blanks HDR, and refreshes the
// shell. It is the single global resource the Operation Dispatcher
// serializes access to.
type DisplayBackend interface {
	// AvailableDevices returns the device IDs the OS currently reports.
	AvailableDevices(ctx context.Context) (map[string]struct{}, error)

	// CaptureSnapshot reads the live topology, modes, HDR states, and
	// primary device. Satisfies snapshot.Capturer.
	CaptureSnapshot(ctx context.Context) (displayapi.Snapshot, error)

	// CurrentTopology returns the live topology only, used when
	// expected_topology must be derived rather than taken from the
	// request.
	CurrentTopology(ctx context.Context) (displayapi.Topology, error)

	// ApplyTopology fuses/splits devices into groups. Returns ApplyOk or
	// a failure status.
	ApplyTopology(ctx context.Context, topology displayapi.Topology) (ApplyStatus, error)

	// Apply realizes one primary-device Configuration (resolution,
	// refresh rate, HDR, device prep).
	Apply(ctx context.Context, cfg displayapi.Configuration) (ApplyStatus, error)

	// SetDisplayOrigin places one device at (x, y) on the virtual
	// desktop. Individual failures are swallowed by the caller (§4.4
	// step 8), not by the backend.
	SetDisplayOrigin(ctx context.Context, deviceID string, x, y int32) error

	// IsTopologySame reports whether the live topology matches expected.
	IsTopologySame(ctx context.Context, expected displayapi.Topology) (bool, error)

	// ConfigurationMatches reports whether the live OS state matches cfg
	// within the spec's comparison rules (refresh rate to 1e-4 relative
	// tolerance, HDR only checked when requested).
	ConfigurationMatches(ctx context.Context, cfg displayapi.Configuration) (bool, error)

	// ValidateSnapshot reports whether snap's topology is plausible
	// against the live OS (used before attempting to apply it during
	// recovery).
	ValidateSnapshot(ctx context.Context, snap displayapi.Snapshot) (bool, error)

	// MatchesSnapshot reports whether the live OS state matches snap as
	// a whole (used by RecoverValidate).
	MatchesSnapshot(ctx context.Context, snap displayapi.Snapshot) (bool, error)

	// ApplySnapshot attempts to realize a full snapshot during recovery.
	ApplySnapshot(ctx context.Context, snap displayapi.Snapshot) (ApplyStatus, error)

	// RefreshShell nudges the compositor/shell after a successful
	// verified apply.
	RefreshShell(ctx context.Context) error

	// HDRBlank performs the HDR-blank workaround: briefly toggling HDR
	// to force the compositor to rebuild pipelines.
	HDRBlank(ctx context.Context, deviceID string) error
}

// VirtualDisplayDriver opens/closes the software-synthesized display and
// reports its current device ID, which may change across a cycle.
type VirtualDisplayDriver interface {
	// CurrentDeviceID returns the virtual display's device ID, or "" if
	// the driver has not yet produced one.
	CurrentDeviceID(ctx context.Context) (string, error)
	// Disable tears down the virtual display.
	Disable(ctx context.Context) error
	// Enable (re)starts the virtual display.
	Enable(ctx context.Context) error
}

// RestoreTaskRegistrar installs/removes the OS-scheduled task that
// re-invokes the helper at logon to re-assert the snapshot.
type RestoreTaskRegistrar interface {
	Install(ctx context.Context) error
	Delete(ctx context.Context) error
}

// DisplayEventKind enumerates the raw OS signals DisplayEventSource
// reports; the Event Source Adapter (internal/eventsource) wraps these
// into generation-stamped mailbox messages.
type DisplayEventKind int

const (
	EventModeChange DisplayEventKind = iota
	EventDeviceArrival
	EventDeviceRemoval
	EventPowerResume
)

// DisplayEvent is one raw OS notification.
type DisplayEvent struct {
	Kind DisplayEventKind
}

// DisplayEventSource streams raw OS display/power events. Close stops the
// producer and closes Events().
type DisplayEventSource interface {
	Events() <-chan DisplayEvent
	Close() error
}
