//go:build !windows

package main

import (
	"context"

	"github.com/lanternops/display-helper-core/internal/backend/fake"
)

// seedBackendFromHost is a no-op outside windows: no reference device
// enumerator exists for other platforms, so the fake backend keeps
// whatever available-device set it was constructed with.
func seedBackendFromHost(ctx context.Context, be *fake.Backend) {}
