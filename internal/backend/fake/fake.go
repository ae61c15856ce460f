// Package fake provides an in-memory DisplayBackend/VirtualDisplayDriver/
// RestoreTaskRegistrar/DisplayEventSource used by state machine and
// dispatcher tests in place of a real OS backend.
package fake

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// Backend is a fully in-memory DisplayBackend. Tests script its behavior
// via the exported fields/queues before invoking the code under test.
type Backend struct {
	mu sync.Mutex

	available map[string]struct{}
	live      displayapi.Snapshot

	// ApplyQueue lets a test script a sequence of outcomes for
	// successive Apply calls; when exhausted, ApplyDefault is used.
	ApplyQueue   []backend.ApplyStatus
	ApplyDefault backend.ApplyStatus
	ApplyErr     error

	ApplyTopologyQueue []backend.ApplyStatus

	HDRBlankCalls   int
	RefreshCalls    int
	OriginCalls     []OriginCall
	SnapshotInvalid bool
}

// OriginCall records one SetDisplayOrigin invocation.
type OriginCall struct {
	DeviceID string
	X, Y     int32
}

// New builds a Backend with the given initially available device IDs and
// the live state snapshot to report.
func New(available []string, live displayapi.Snapshot) *Backend {
	avail := make(map[string]struct{}, len(available))
	for _, id := range available {
		avail[id] = struct{}{}
	}
	return &Backend{available: avail, live: live, ApplyDefault: backend.ApplyOk}
}

// SetAvailable replaces the set of devices the backend reports.
func (b *Backend) SetAvailable(ids ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		b.available[id] = struct{}{}
	}
}

// SetLive replaces the live snapshot the backend reports.
func (b *Backend) SetLive(snap displayapi.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live = snap
}

func (b *Backend) AvailableDevices(ctx context.Context) (map[string]struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]struct{}, len(b.available))
	for id := range b.available {
		out[id] = struct{}{}
	}
	return out, nil
}

func (b *Backend) CaptureSnapshot(ctx context.Context) (displayapi.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live, nil
}

func (b *Backend) CurrentTopology(ctx context.Context) (displayapi.Topology, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live.Topology, nil
}

func (b *Backend) ApplyTopology(ctx context.Context, topology displayapi.Topology) (backend.ApplyStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ApplyTopologyQueue) > 0 {
		status := b.ApplyTopologyQueue[0]
		b.ApplyTopologyQueue = b.ApplyTopologyQueue[1:]
		if status == backend.ApplyOk {
			b.live.Topology = topology
		}
		return status, nil
	}
	b.live.Topology = topology
	return backend.ApplyOk, nil
}

func (b *Backend) Apply(ctx context.Context, cfg displayapi.Configuration) (backend.ApplyStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ApplyErr != nil {
		return backend.ApplyFatal, b.ApplyErr
	}
	status := b.ApplyDefault
	if len(b.ApplyQueue) > 0 {
		status = b.ApplyQueue[0]
		b.ApplyQueue = b.ApplyQueue[1:]
	}
	if status == backend.ApplyOk {
		if b.live.Modes == nil {
			b.live.Modes = map[string]displayapi.Mode{}
		}
		if cfg.Resolution != nil && cfg.RefreshRate != nil {
			b.live.Modes[cfg.DeviceID] = displayapi.Mode{
				Width:       cfg.Resolution.Width,
				Height:      cfg.Resolution.Height,
				Numerator:   cfg.RefreshRate.Numerator,
				Denominator: cfg.RefreshRate.Denominator,
			}
		}
		if cfg.HDRState != displayapi.HDRUnspecified {
			if b.live.HDRStates == nil {
				b.live.HDRStates = map[string]displayapi.HDRState{}
			}
			b.live.HDRStates[cfg.DeviceID] = cfg.HDRState
		}
		b.live.PrimaryDevice = cfg.DeviceID
	}
	return status, nil
}

func (b *Backend) SetDisplayOrigin(ctx context.Context, deviceID string, x, y int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.OriginCalls = append(b.OriginCalls, OriginCall{DeviceID: deviceID, X: x, Y: y})
	return nil
}

func (b *Backend) IsTopologySame(ctx context.Context, expected displayapi.Topology) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live.Topology.Equal(expected), nil
}

func (b *Backend) ConfigurationMatches(ctx context.Context, cfg displayapi.Configuration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	mode, ok := b.live.Modes[cfg.DeviceID]
	if cfg.Resolution != nil {
		if !ok || mode.Width != cfg.Resolution.Width || mode.Height != cfg.Resolution.Height {
			return false, nil
		}
	}
	if cfg.RefreshRate != nil {
		if !ok {
			return false, nil
		}
		want := displayapi.RefreshRate{Numerator: cfg.RefreshRate.Numerator, Denominator: cfg.RefreshRate.Denominator}
		got := displayapi.RefreshRate{Numerator: mode.Numerator, Denominator: mode.Denominator}
		if math.Abs(want.Hz()-got.Hz()) > want.Hz()*1e-4 {
			return false, nil
		}
	}
	if cfg.HDRState != displayapi.HDRUnspecified {
		if b.live.HDRStates[cfg.DeviceID] != cfg.HDRState {
			return false, nil
		}
	}
	return true, nil
}

func (b *Backend) ValidateSnapshot(ctx context.Context, snap displayapi.Snapshot) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.SnapshotInvalid, nil
}

func (b *Backend) MatchesSnapshot(ctx context.Context, snap displayapi.Snapshot) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live.Equal(snap), nil
}

func (b *Backend) ApplySnapshot(ctx context.Context, snap displayapi.Snapshot) (backend.ApplyStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ApplyQueue) > 0 {
		status := b.ApplyQueue[0]
		b.ApplyQueue = b.ApplyQueue[1:]
		if status == backend.ApplyOk {
			b.live = snap
		}
		return status, nil
	}
	b.live = snap
	return backend.ApplyOk, nil
}

func (b *Backend) RefreshShell(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.RefreshCalls++
	return nil
}

func (b *Backend) HDRBlank(ctx context.Context, deviceID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.HDRBlankCalls++
	return nil
}

// VirtualDisplayDriver is an in-memory VirtualDisplayDriver.
type VirtualDisplayDriver struct {
	mu       sync.Mutex
	deviceID string
	enabled  bool
	cycles   int
}

// NewVirtualDisplayDriver builds a driver starting with the given device
// ID (possibly "").
func NewVirtualDisplayDriver(initialID string) *VirtualDisplayDriver {
	return &VirtualDisplayDriver{deviceID: initialID, enabled: initialID != ""}
}

func (v *VirtualDisplayDriver) CurrentDeviceID(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deviceID, nil
}

// Retarget changes the reported device ID, simulating the driver picking
// a new GUID after a cycle or hotplug.
func (v *VirtualDisplayDriver) Retarget(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deviceID = id
}

func (v *VirtualDisplayDriver) Disable(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = false
	return nil
}

func (v *VirtualDisplayDriver) Enable(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = true
	v.cycles++
	return nil
}

// RestoreTaskRegistrar is an in-memory RestoreTaskRegistrar that records
// install/delete calls for assertions.
type RestoreTaskRegistrar struct {
	mu        sync.Mutex
	installed bool
	installs  int
	deletes   int
}

func (r *RestoreTaskRegistrar) Install(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installed = true
	r.installs++
	return nil
}

func (r *RestoreTaskRegistrar) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installed = false
	r.deletes++
	return nil
}

// Installed reports whether the task is currently installed.
func (r *RestoreTaskRegistrar) Installed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installed
}

// Counts returns (installs, deletes) for test assertions.
func (r *RestoreTaskRegistrar) Counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installs, r.deletes
}

// EventSource is an in-memory DisplayEventSource a test can push events
// into directly.
type EventSource struct {
	ch     chan backend.DisplayEvent
	closed bool
	mu     sync.Mutex
}

// NewEventSource builds an EventSource with a small buffered channel.
func NewEventSource() *EventSource {
	return &EventSource{ch: make(chan backend.DisplayEvent, 16)}
}

func (e *EventSource) Events() <-chan backend.DisplayEvent {
	return e.ch
}

func (e *EventSource) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.ch)
	return nil
}

// Push delivers one event, returning an error if the source is closed.
func (e *EventSource) Push(kind backend.DisplayEventKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("fake: event source closed")
	}
	e.ch <- backend.DisplayEvent{Kind: kind}
	return nil
}
