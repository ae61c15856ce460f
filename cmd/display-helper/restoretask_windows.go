//go:build windows

package main

import (
	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/restoretask"
)

func newRestoreTaskRegistrar(exePath string) backend.RestoreTaskRegistrar {
	return restoretask.NewSchtasksRegistrar(exePath)
}
