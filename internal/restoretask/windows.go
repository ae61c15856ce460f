//go:build windows

// Package restoretask implements backend.RestoreTaskRegistrar: installing
// and removing the scheduled task that re-invokes the helper at logon to
// re-assert the last-known-good snapshot (spec's "Restore task", §9
// glossary).
package restoretask

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const taskName = `\DisplayHelperCore\Restore`

// SchtasksRegistrar installs a logon-triggered restore task via the
// schtasks CLI, grounded on the teacher's exec.Command-driven task tools.
type SchtasksRegistrar struct {
	// ExePath is the absolute path to the helper binary, invoked with
	// --restore at logon.
	ExePath string
}

// NewSchtasksRegistrar builds a registrar for the given helper binary
// path.
func NewSchtasksRegistrar(exePath string) *SchtasksRegistrar {
	return &SchtasksRegistrar{ExePath: exePath}
}

// Install creates (or replaces) the logon-triggered restore task.
func (r *SchtasksRegistrar) Install(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "schtasks", "/create", "/f",
		"/tn", taskName,
		"/tr", fmt.Sprintf(`"%s" --restore`, r.ExePath),
		"/sc", "onlogon",
		"/rl", "highest",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("restoretask: create %s: %w (%s)", taskName, err, out)
	}
	return nil
}

// Delete removes the restore task. A task that does not exist is not an
// error.
func (r *SchtasksRegistrar) Delete(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "schtasks", "/delete", "/f", "/tn", taskName)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if bytesContainsNotFound(out) {
			return nil
		}
		return fmt.Errorf("restoretask: delete %s: %w (%s)", taskName, err, out)
	}
	return nil
}

func bytesContainsNotFound(out []byte) bool {
	const marker = "ERROR: The system cannot find the file specified"
	return strings.Contains(string(out), marker)
}
