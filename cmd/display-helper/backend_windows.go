//go:build windows

package main

import (
	"context"

	"github.com/lanternops/display-helper-core/internal/backend/fake"
	windowsbackend "github.com/lanternops/display-helper-core/internal/backend/windows"
)

// seedBackendFromHost lists the video controllers WMI currently reports
// and seeds the fake backend's available-device set from their
// PNPDeviceIDs. The reference Windows backend stops at device
// enumeration (see internal/backend/windows's package doc), so mode-set
// and topology operations still run against the fake backend; this only
// grounds its device list in what the host actually reports.
func seedBackendFromHost(ctx context.Context, be *fake.Backend) {
	controllers, err := windowsbackend.NewWMIDeviceEnumerator().EnumerateVideoControllers(ctx)
	if err != nil {
		log.Warn("wmi device enumeration failed, using fake backend defaults", "error", err)
		return
	}
	ids := make([]string, 0, len(controllers))
	for _, c := range controllers {
		if c.PNPDeviceID != "" {
			ids = append(ids, c.PNPDeviceID)
		}
	}
	if len(ids) > 0 {
		be.SetAvailable(ids...)
	}
}
