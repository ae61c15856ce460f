//go:build !linux && !windows

package main

import (
	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/backend/fake"
)

// newDisplayEventSource falls back to an event source nothing ever
// pushes to: display hot-plug/power notifications have no portable
// signal outside linux (udev/D-Bus) and windows (WM_DEVICECHANGE), so
// other platforms run with event-driven recovery effectively disabled
// until a native source is added for them.
func newDisplayEventSource() (backend.DisplayEventSource, error) {
	return fake.NewEventSource(), nil
}
