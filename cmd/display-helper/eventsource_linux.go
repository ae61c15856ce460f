//go:build linux

package main

import (
	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/eventsource"
)

func newDisplayEventSource() (backend.DisplayEventSource, error) {
	return eventsource.NewLinuxEventSource()
}
