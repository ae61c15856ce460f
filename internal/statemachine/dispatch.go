package statemachine

import (
	"context"
	"fmt"

	"github.com/lanternops/display-helper-core/internal/dispatcher"
	"github.com/lanternops/display-helper-core/internal/router"
)

// dispatch type-switches msg to its handler. The generation check has
// already passed by the time this runs (see handle in session.go).
func (s *Session) dispatch(ctx context.Context, msg Message) {
	switch m := msg.(type) {
	case router.ApplyCommand:
		s.onApply(ctx, m)
	case router.RevertCommand:
		s.onRevert(ctx, m)
	case router.DisarmCommand:
		s.onDisarm(ctx, m)
	case router.ResetCommand:
		log.Debug("reset command received (permanently reserved no-op)")
	case router.PingCommand:
		s.onPing()
	case router.StopCommand:
		s.onStop(ctx)
	case router.ExportGoldenCommand:
		s.onExportGolden(ctx, m)
	case router.SnapshotCurrentCommand:
		s.onSnapshotCurrent(ctx, m)

	case dispatcher.ApplyCompleted:
		s.onApplyCompleted(ctx, m)
	case dispatcher.VerifyCompleted:
		s.onVerifyCompleted(ctx, m)
	case dispatcher.RecoverCompleted:
		s.onRecoverCompleted(ctx, m)
	case dispatcher.RecoverValidateCompleted:
		s.onRecoverValidateCompleted(ctx, m)

	case DisplayEventMsg:
		s.onDisplayEvent(ctx, m)
	case HeartbeatTimeoutMsg:
		s.onHeartbeatTimeout(ctx, m)

	default:
		log.Warn("unrecognized mailbox message", "type", fmt.Sprintf("%T", msg))
	}
}
