package statemachine

import (
	"context"
	"time"

	"github.com/lanternops/display-helper-core/internal/router"
	"github.com/lanternops/display-helper-core/internal/snapshot"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// onExportGolden captures the live state and saves it to the Golden tier.
// Valid in any state: it doesn't touch the apply/recovery lifecycle.
func (s *Session) onExportGolden(ctx context.Context, cmd router.ExportGoldenCommand) {
	snap, err := s.ledger.Capture(ctx)
	if err != nil {
		log.Warn("capture for export golden failed", "error", err)
		return
	}
	blacklist := toBlacklistSet(cmd.ExcludeDevices)
	filtered := snap.Filter(blacklist)
	if err := s.ledger.Save(snapshot.Golden, filtered, nil); err != nil {
		log.Warn("save golden snapshot failed", "error", err)
		return
	}
	s.mirrorGoldenAsync(filtered)
}

// mirrorGoldenAsync best-effort uploads the filtered golden snapshot to
// the configured remote archive, if any. It never blocks or affects the
// ExportGolden reply: a mirror failure only logs.
func (s *Session) mirrorGoldenAsync(snap displayapi.Snapshot) {
	if s.archiveMirror == nil {
		return
	}
	mirror := s.archiveMirror
	installID := s.installID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := mirror.Upload(ctx, installID, snap); err != nil {
			log.Warn("golden snapshot remote mirror upload failed", "error", err)
		}
	}()
}

// onSnapshotCurrent rotates the existing Current into Previous, then
// captures and saves a fresh Current.
func (s *Session) onSnapshotCurrent(ctx context.Context, cmd router.SnapshotCurrentCommand) {
	if _, err := s.ledger.RotateCurrentToPrevious(); err != nil {
		log.Warn("rotate current to previous failed", "error", err)
	}
	snap, err := s.ledger.Capture(ctx)
	if err != nil {
		log.Warn("capture for snapshot current failed", "error", err)
		return
	}
	if err := s.ledger.Save(snapshot.Current, snap, toBlacklistSet(cmd.ExcludeDevices)); err != nil {
		log.Warn("save current snapshot failed", "error", err)
	}
}

// onStop ends the process gracefully: cancel whatever is outstanding,
// disarm the watchdog, exit 0.
func (s *Session) onStop(ctx context.Context) {
	s.cancelOperations()
	s.heartbeat.Disarm()
	s.exit(0)
}
