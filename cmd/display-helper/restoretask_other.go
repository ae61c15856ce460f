//go:build !windows

package main

import (
	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/restoretask"
)

// newRestoreTaskRegistrar ignores exePath: the spec's boot-time restore
// task is a Windows Scheduled Task concept (§4.6); non-windows platforms
// register nothing and rely on the service manager's own restart policy.
func newRestoreTaskRegistrar(exePath string) backend.RestoreTaskRegistrar {
	return restoretask.NewNoopRegistrar()
}
