package main

import (
	"context"
	"time"

	"github.com/lanternops/display-helper-core/internal/router"
	"github.com/lanternops/display-helper-core/internal/snapshot"
	"github.com/lanternops/display-helper-core/internal/statemachine"
)

// restorePollInterval and restoreSettleWindow bound how long runRestore
// waits for a Recover attempt that lands back in EventLoop (recovery
// concluded without a match, see onRecoverValidateCompleted's !m.Ok
// branch) rather than exiting on its own.
const (
	restorePollInterval = 50 * time.Millisecond
	restoreSettleWindow = 10 * time.Second
)

// runRestore performs one boot-time recovery pass with no IPC listener:
// build the same collaborators the normal run path uses, force a Revert
// as if the managed application had asked for one, and exit once the
// session either succeeds (Done, exit code 0) or settles into EventLoop
// having found no usable snapshot (non-zero exit, since nothing will
// ever disarm it in this process).
func runRestore() int {
	cfg, err := loadConfig()
	if err != nil {
		log.Error("restore pass failed", "error", err)
		return 1
	}
	initLogging(cfg)

	ctx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	comp, err := buildComponents(ctx, cfg)
	if err != nil {
		log.Error("restore pass failed", "error", err)
		return 1
	}

	comp.session.SetPreferGoldenFirst(restorePreferGoldenFirst(comp.store, cfg.PreferGoldenFirst))

	go comp.session.Run(ctx)
	comp.session.Post(router.NewRevertCommand(comp.session.Generation()))

	deadline := time.Now().Add(restoreSettleWindow)
	for time.Now().Before(deadline) {
		select {
		case <-comp.session.Done():
			comp.disp.Stop(context.Background())
			return comp.session.ExitCode()
		default:
		}
		if comp.session.State() == statemachine.EventLoop {
			log.Warn("restore pass found no usable snapshot to recover")
			comp.disp.Stop(context.Background())
			return 1
		}
		time.Sleep(restorePollInterval)
	}

	log.Warn("restore pass timed out waiting for recovery to settle")
	comp.disp.Stop(context.Background())
	return 1
}

// restorePreferGoldenFirst decides the tier search order for the
// boot-time restore pass, which has no ApplyRequest to carry the
// client's preferGoldenFirst flag: it honors the configured default,
// except when golden is the only tier with any usable content, in which
// case golden-first is forced since current/previous would never match
// anyway.
func restorePreferGoldenFirst(store *snapshot.JSONStore, configured bool) bool {
	_, hasCurrent, _ := store.Read(snapshot.Current)
	_, hasPrevious, _ := store.Read(snapshot.Previous)
	_, hasGolden, _ := store.Read(snapshot.Golden)
	if hasGolden && !hasCurrent && !hasPrevious {
		return true
	}
	return configured
}
