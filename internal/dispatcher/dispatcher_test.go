package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lanternops/display-helper-core/internal/backend"
	"github.com/lanternops/display-helper-core/internal/backend/fake"
	"github.com/lanternops/display-helper-core/internal/cancel"
	"github.com/lanternops/display-helper-core/internal/policy"
	"github.com/lanternops/display-helper-core/internal/snapshot"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

func waitForCompletion(t *testing.T, ch <-chan Completion) Completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dispatcher completion")
		return nil
	}
}

func newTestDispatcher(be *fake.Backend, vd *fake.VirtualDisplayDriver) (*Dispatcher, chan Completion) {
	ch := make(chan Completion, 8)
	ledger := snapshot.NewLedger(snapshot.NewMemStore(), be)
	d := New(be, vd, ledger, DefaultTiming(), func(c Completion) { ch <- c })
	return d, ch
}

func applyRequest(deviceID string) displayapi.ApplyRequest {
	return displayapi.ApplyRequest{
		Configuration: &displayapi.Configuration{
			DeviceID:    deviceID,
			Resolution:  &displayapi.Resolution{Width: 1920, Height: 1080},
			RefreshRate: &displayapi.RefreshRate{Numerator: 60, Denominator: 1},
		},
	}
}

func TestDispatchApplySuccess(t *testing.T) {
	be := fake.New([]string{"A"}, displayapi.Snapshot{})
	vd := fake.NewVirtualDisplayDriver("")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	token := gen.Token()
	d.DispatchApply(context.Background(), token, applyRequest("A"), 0, false)

	completion := waitForCompletion(t, ch)
	ac, ok := completion.(ApplyCompleted)
	if !ok {
		t.Fatalf("expected ApplyCompleted, got %T", completion)
	}
	if ac.Outcome.Status != policy.StatusOk {
		t.Fatalf("expected StatusOk, got %v", ac.Outcome.Status)
	}
	if ac.Generation() != token.Generation() {
		t.Fatalf("expected generation %d, got %d", token.Generation(), ac.Generation())
	}
}

func TestDispatchApplyInvalidRequestWhenConfigurationMissing(t *testing.T) {
	be := fake.New([]string{"A"}, displayapi.Snapshot{})
	vd := fake.NewVirtualDisplayDriver("")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	d.DispatchApply(context.Background(), gen.Token(), displayapi.ApplyRequest{}, 0, false)

	completion := waitForCompletion(t, ch)
	ac := completion.(ApplyCompleted)
	if ac.Outcome.Status != policy.StatusInvalidRequest {
		t.Fatalf("expected StatusInvalidRequest, got %v", ac.Outcome.Status)
	}
}

func TestDispatchApplyMapsRetryableStatus(t *testing.T) {
	be := fake.New([]string{"A"}, displayapi.Snapshot{})
	be.ApplyQueue = []backend.ApplyStatus{backend.ApplyAPITemporarilyUnavailable}
	vd := fake.NewVirtualDisplayDriver("")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	d.DispatchApply(context.Background(), gen.Token(), applyRequest("A"), 0, false)

	completion := waitForCompletion(t, ch)
	ac := completion.(ApplyCompleted)
	if ac.Outcome.Status != policy.StatusRetryable {
		t.Fatalf("expected StatusRetryable, got %v", ac.Outcome.Status)
	}
}

func TestDispatchApplyDiscardsStaleTokenBeforeDispatch(t *testing.T) {
	be := fake.New([]string{"A"}, displayapi.Snapshot{})
	vd := fake.NewVirtualDisplayDriver("")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	token := gen.Token()
	gen.Bump() // token is now stale

	d.DispatchApply(context.Background(), token, applyRequest("A"), 50*time.Millisecond, false)

	completion := waitForCompletion(t, ch)
	ac := completion.(ApplyCompleted)
	if ac.Outcome.Status != policy.StatusFatal {
		t.Fatalf("expected StatusFatal for stale token, got %v", ac.Outcome.Status)
	}
}

func TestDispatchApplyResetsVirtualDisplay(t *testing.T) {
	be := fake.New([]string{"A"}, displayapi.Snapshot{})
	vd := fake.NewVirtualDisplayDriver("old-guid")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	start := time.Now()
	d.DispatchApply(context.Background(), gen.Token(), applyRequest("A"), 0, true)
	completion := waitForCompletion(t, ch)
	elapsed := time.Since(start)

	if elapsed < DefaultTiming().VDDisableSettle+DefaultTiming().VDEnableSettle {
		t.Fatalf("expected reset settle delays to elapse, took %v", elapsed)
	}
	ac := completion.(ApplyCompleted)
	if ac.Outcome.Status != policy.StatusOk {
		t.Fatalf("expected StatusOk after reset, got %v", ac.Outcome.Status)
	}
}

func TestDispatchVerifySuccess(t *testing.T) {
	live := displayapi.Snapshot{
		Topology: displayapi.Topology{{"A"}},
		Modes:    map[string]displayapi.Mode{"A": {Width: 1920, Height: 1080, Numerator: 60, Denominator: 1}},
	}
	be := fake.New([]string{"A"}, live)
	vd := fake.NewVirtualDisplayDriver("")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	req := applyRequest("A")
	d.DispatchVerify(context.Background(), gen.Token(), req, live.Topology)

	completion := waitForCompletion(t, ch)
	vc := completion.(VerifyCompleted)
	if !vc.Ok {
		t.Fatal("expected verify to succeed")
	}
}

func TestDispatchVerifyFailsOnTopologyMismatch(t *testing.T) {
	live := displayapi.Snapshot{Topology: displayapi.Topology{{"A"}}}
	be := fake.New([]string{"A"}, live)
	vd := fake.NewVirtualDisplayDriver("")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	req := applyRequest("A")
	d.DispatchVerify(context.Background(), gen.Token(), req, displayapi.Topology{{"B"}})

	completion := waitForCompletion(t, ch)
	vc := completion.(VerifyCompleted)
	if vc.Ok {
		t.Fatal("expected verify to fail on topology mismatch")
	}
}

func TestDispatchRecoverFindsApplicableTier(t *testing.T) {
	be := fake.New([]string{"A"}, displayapi.Snapshot{})
	vd := fake.NewVirtualDisplayDriver("")
	ledger := snapshot.NewLedger(snapshot.NewMemStore(), be)

	golden := displayapi.Snapshot{
		Topology: displayapi.Topology{{"A"}},
		Modes:    map[string]displayapi.Mode{"A": {Width: 1920, Height: 1080, Numerator: 60, Denominator: 1}},
	}
	if err := ledger.Save(snapshot.Golden, golden, nil); err != nil {
		t.Fatalf("seed golden: %v", err)
	}

	ch := make(chan Completion, 8)
	d := New(be, vd, ledger, DefaultTiming(), func(c Completion) { ch <- c })
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	d.DispatchRecover(context.Background(), gen.Token(), true)

	completion := waitForCompletion(t, ch)
	rc := completion.(RecoverCompleted)
	if !rc.Outcome.Success {
		t.Fatal("expected recovery to succeed from golden tier")
	}
	if !rc.Outcome.Snapshot.Equal(golden) {
		t.Fatalf("expected recovered snapshot to equal golden, got %+v", rc.Outcome.Snapshot)
	}
}

func TestDispatchRecoverSkipsTierWithUnavailableDevice(t *testing.T) {
	be := fake.New([]string{"A"}, displayapi.Snapshot{}) // "B" not available
	vd := fake.NewVirtualDisplayDriver("")
	ledger := snapshot.NewLedger(snapshot.NewMemStore(), be)

	unreachable := displayapi.Snapshot{
		Topology: displayapi.Topology{{"B"}},
		Modes:    map[string]displayapi.Mode{"B": {Width: 1920, Height: 1080, Numerator: 60, Denominator: 1}},
	}
	if err := ledger.Save(snapshot.Current, unreachable, nil); err != nil {
		t.Fatalf("seed current: %v", err)
	}

	ch := make(chan Completion, 8)
	d := New(be, vd, ledger, DefaultTiming(), func(c Completion) { ch <- c })
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	d.DispatchRecover(context.Background(), gen.Token(), false)

	completion := waitForCompletion(t, ch)
	rc := completion.(RecoverCompleted)
	if rc.Outcome.Success {
		t.Fatal("expected recovery to fail: only snapshot references an unavailable device")
	}
}

func TestDispatchRecoverValidate(t *testing.T) {
	live := displayapi.Snapshot{Topology: displayapi.Topology{{"A"}}}
	be := fake.New([]string{"A"}, live)
	vd := fake.NewVirtualDisplayDriver("")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	d.DispatchRecoverValidate(context.Background(), gen.Token(), live)

	completion := waitForCompletion(t, ch)
	rvc := completion.(RecoverValidateCompleted)
	if !rvc.Ok {
		t.Fatal("expected RecoverValidate to match live snapshot")
	}
}

func TestDispatcherCompletesEveryQueuedApply(t *testing.T) {
	be := fake.New([]string{"A"}, displayapi.Snapshot{})
	vd := fake.NewVirtualDisplayDriver("")
	d, ch := newTestDispatcher(be, vd)
	defer d.Stop(context.Background())

	gen := &cancel.Source{}
	const n = 5
	for i := 0; i < n; i++ {
		d.DispatchApply(context.Background(), gen.Token(), applyRequest("A"), 0, false)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			waitForCompletion(t, ch)
		}
	}()
	wg.Wait()
}
