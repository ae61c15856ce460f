package statemachine

import "github.com/lanternops/display-helper-core/internal/backend"

// Replier is the subset of ipc.Replier the session needs to send its
// apply-result, verification-result, and pong replies. Declared locally
// so this package doesn't need to import the transport.
type Replier interface {
	ApplyResult(statusName string) error
	VerifyResult(ok bool) error
	Pong(diag backend.HostDiagnostics) error
}
