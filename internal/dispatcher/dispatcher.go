// Package dispatcher runs the Apply/Verify/Recover/RecoverValidate
// operations (spec §4.4) on a single FIFO worker: the display backend is a
// single global resource, and the dispatcher's queue is the serialization
// mechanism that keeps at most one operation touching it at a time.
package dispatcher

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/cancel"
	"github.com/lanternops/display-helper-core/internal/logging"
	"github.com/lanternops/display-helper-core/internal/snapshot"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

var log = logging.L("dispatcher")

// queueCapacity bounds how many dispatched operations may be pending
// behind the one currently running; the state machine never dispatches
// faster than operations complete, so this is generous headroom rather
// than a throughput knob.
const queueCapacity = 16

// Dispatcher is grounded on the teacher's workerpool.Pool, forced down to
// exactly one worker goroutine: the spec requires the backend be held by
// at most one operation at a time, which the teacher's pool generalizes
// away but a single queue naturally enforces.
type Dispatcher struct {
	backend backend.DisplayBackend
	vd      backend.VirtualDisplayDriver
	ledger  *snapshot.Ledger
	timing  Timing
	post    func(Completion)

	queue     chan func()
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
}

// New builds a Dispatcher and starts its single worker goroutine. post is
// invoked from that worker for every completed operation — it must not
// block (it should only enqueue into the state machine mailbox).
func New(be backend.DisplayBackend, vd backend.VirtualDisplayDriver, ledger *snapshot.Ledger, timing Timing, post func(Completion)) *Dispatcher {
	d := &Dispatcher{
		backend: be,
		vd:      vd,
		ledger:  ledger,
		timing:  timing,
		post:    post,
		queue:   make(chan func(), queueCapacity),
		stopCh:  make(chan struct{}),
	}
	go d.worker()
	return d
}

// DispatchApply queues an Apply operation, stamped with token's
// generation at dispatch time.
func (d *Dispatcher) DispatchApply(ctx context.Context, token cancel.Token, req displayapi.ApplyRequest, delay time.Duration, resetVirtualDisplay bool) {
	gen := token.Generation()
	d.submit(func() {
		outcome := d.applyOp(ctx, token, req, delay, resetVirtualDisplay)
		d.post(ApplyCompleted{baseCompletion: baseCompletion{gen: gen}, Outcome: outcome})
	})
}

// DispatchVerify queues a Verify operation.
func (d *Dispatcher) DispatchVerify(ctx context.Context, token cancel.Token, req displayapi.ApplyRequest, expectedTopology displayapi.Topology) {
	gen := token.Generation()
	d.submit(func() {
		ok := d.verifyOp(ctx, token, req, expectedTopology)
		d.post(VerifyCompleted{baseCompletion: baseCompletion{gen: gen}, Ok: ok})
	})
}

// DispatchRecover queues a Recover operation.
func (d *Dispatcher) DispatchRecover(ctx context.Context, token cancel.Token, preferGoldenFirst bool) {
	gen := token.Generation()
	d.submit(func() {
		outcome := d.recoverOp(ctx, token, preferGoldenFirst)
		d.post(RecoverCompleted{baseCompletion: baseCompletion{gen: gen}, Outcome: outcome})
	})
}

// DispatchRecoverValidate queues a RecoverValidate operation.
func (d *Dispatcher) DispatchRecoverValidate(ctx context.Context, token cancel.Token, snap displayapi.Snapshot) {
	gen := token.Generation()
	d.submit(func() {
		ok := d.recoverValidateOp(ctx, token, snap)
		d.post(RecoverValidateCompleted{baseCompletion: baseCompletion{gen: gen}, Ok: ok})
	})
}

// DispatchRefreshShell queues a post-verification shell refresh. It posts
// no completion: the state machine fires it and moves on, same as the
// HDR-blank workaround below.
func (d *Dispatcher) DispatchRefreshShell(ctx context.Context) {
	d.submit(func() {
		if err := d.backend.RefreshShell(ctx); err != nil {
			log.Warn("refresh shell failed", "error", err)
		}
	})
}

// DispatchHDRBlank queues the HDR-blank workaround after delay, serialized
// behind whatever else is already queued on the single worker.
func (d *Dispatcher) DispatchHDRBlank(ctx context.Context, delay time.Duration, deviceID string) {
	d.submit(func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}
		if err := d.backend.HDRBlank(ctx, deviceID); err != nil {
			log.Warn("hdr blank failed", "error", err)
		}
	})
}

func (d *Dispatcher) submit(task func()) {
	d.wg.Add(1)
	select {
	case d.queue <- task:
	default:
		d.wg.Done()
		log.Warn("dispatcher queue full, task dropped")
	}
}

// Stop drains queued and in-flight work, respecting ctx's deadline, then
// closes the queue so the worker goroutine exits.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.stopOnce.Do(func() { close(d.stopCh) })

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("dispatcher drained")
	case <-ctx.Done():
		log.Warn("dispatcher drain timed out")
	}

	d.closeOnce.Do(func() { close(d.queue) })
}

func (d *Dispatcher) worker() {
	for {
		select {
		case task, ok := <-d.queue:
			if !ok {
				return
			}
			d.runTask(task)
		case <-d.stopCh:
			for {
				select {
				case task, ok := <-d.queue:
					if !ok {
						return
					}
					d.runTask(task)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) runTask(task func()) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatcher task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
