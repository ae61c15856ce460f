package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lanternops/display-helper-core/internal/audit"
	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/backend/fake"
	"github.com/lanternops/display-helper-core/internal/config"
	"github.com/lanternops/display-helper-core/internal/dispatcher"
	"github.com/lanternops/display-helper-core/internal/eventsource"
	"github.com/lanternops/display-helper-core/internal/ipc"
	"github.com/lanternops/display-helper-core/internal/policy"
	"github.com/lanternops/display-helper-core/internal/router"
	"github.com/lanternops/display-helper-core/internal/snapshot"
	"github.com/lanternops/display-helper-core/internal/statemachine"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// components bundles the collaborators shared by runSupervisor and
// runRestore, mirroring the teacher's agentComponents grouping.
type components struct {
	cfg       *config.Config
	auditLog  *audit.Logger
	be        *fake.Backend
	vd        *fake.VirtualDisplayDriver
	store     *snapshot.JSONStore
	ledger    *snapshot.Ledger
	swappable *swappableReplier
	session   *statemachine.Session
	disp      *dispatcher.Dispatcher
}

// buildComponents wires every collaborator the session needs, stopping
// short of the IPC listener and event source goroutines (those differ
// between the normal run path and the boot-time restore pass).
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	auditLog, err := audit.NewLogger(cfg.DataDir, cfg.AuditMaxSizeMB, cfg.AuditMaxBackups)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	auditLog.Log(audit.EventProcessStart, "", nil)

	be := fake.New(nil, displayapi.Snapshot{})
	seedBackendFromHost(ctx, be)
	vd := fake.NewVirtualDisplayDriver("")

	store := snapshot.NewJSONStore(cfg.DataDir)
	ledger := snapshot.NewLedger(store, be)

	exePath, err := os.Executable()
	if err != nil {
		log.Warn("resolve executable path failed, restore task install will no-op", "error", err)
	}
	restoreTask := newRestoreTaskRegistrar(exePath)

	swappable := &swappableReplier{}

	dispatchTiming := dispatcher.DefaultTiming()
	dispatchTiming.VerifySettleDelay = time.Duration(cfg.VerifySettleDelayMS) * time.Millisecond
	dispatchTiming.RecoverRetryDelay = time.Duration(cfg.RecoverRetryDelayMS) * time.Millisecond
	dispatchTiming.MaxRecoverAttempts = cfg.RecoverMaxAttempts

	var sess *statemachine.Session
	disp := dispatcher.New(be, vd, ledger, dispatchTiming, func(c dispatcher.Completion) { sess.Post(c) })
	applyPolicy := policy.NewApplyPolicy(
		policy.SystemClock{},
		cfg.ApplyMaxAttempts,
		time.Duration(cfg.ApplyRetryDelayMS)*time.Millisecond,
		time.Duration(cfg.VirtualResetCooldownSec)*time.Second,
	)

	sessionTiming := statemachine.DefaultTiming()
	sessionTiming.HDRBlankDelay = time.Duration(cfg.HDRBlankDelayMS) * time.Millisecond
	sessionTiming.VirtualEventDebounce = time.Duration(cfg.VirtualEventDebounceMS) * time.Millisecond
	sessionTiming.VirtualRetryDelay = time.Duration(cfg.VirtualRetryDelayMS) * time.Millisecond

	sess = statemachine.New(
		ledger,
		disp,
		applyPolicy,
		time.Duration(cfg.HeartbeatTimeoutSec)*time.Second,
		policy.SystemClock{},
		restoreTask,
		vd,
		swappable,
		sessionTiming,
	)
	sess.SetAuditLogger(auditLog)

	if cfg.ArchiveProvider != "" {
		mirror, err := buildArchiveMirror(ctx, cfg)
		if err != nil {
			log.Warn("archive mirror unavailable, golden export stays local-only", "error", err)
		} else {
			sess.SetArchiveMirror(mirror, cfg.ArchiveInstallID)
		}
	}

	return &components{
		cfg:       cfg,
		auditLog:  auditLog,
		be:        be,
		vd:        vd,
		store:     store,
		ledger:    ledger,
		swappable: swappable,
		session:   sess,
		disp:      disp,
	}, nil
}

func runSupervisor() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)

	ctx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	comp, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comp.auditLog.Log(audit.EventProcessStop, "", nil)

	source, err := newDisplayEventSource()
	if err != nil {
		return fmt.Errorf("build display event source: %w", err)
	}
	defer source.Close()

	adapter := eventsource.New(source, comp.session.GenSource(), func(kind backend.DisplayEventKind, gen uint64) {
		comp.session.Post(statemachine.DisplayEventMsg{Gen: gen, Event: backend.DisplayEvent{Kind: kind}})
	})
	go adapter.Run(ctx)

	ln, err := ipc.Listen(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.SocketPath, err)
	}
	defer ln.Close()

	go comp.session.Run(ctx)
	timing := serverTimingFromConfig(cfg)
	go acceptLoop(ctx, ln, comp.session.GenSource(), comp.swappable, timing, func(cmd router.Command) { comp.session.Post(cmd) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutdown signal received")
	case <-comp.session.Done():
		log.Info("session exited", "code", comp.session.ExitCode())
	}

	cancelRun()
	comp.disp.Stop(context.Background())
	return nil
}
