package dispatcher

import (
	"github.com/lanternops/display-helper-core/internal/policy"
	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// Completion is implemented by every completion the dispatcher posts back
// to the state machine mailbox. Generation is the snapshot taken at
// dispatch time, not at completion time, so a cancelled-then-superseded
// operation's result is recognizably stale.
type Completion interface {
	Generation() uint64
}

type baseCompletion struct {
	gen uint64
}

func (b baseCompletion) Generation() uint64 { return b.gen }

// ApplyOutcome is the result of one Apply operation (spec §4.4).
type ApplyOutcome struct {
	Status                  policy.Status
	ExpectedTopology        displayapi.Topology
	VirtualDisplayRequested bool
}

// ApplyCompleted reports the result of a dispatched Apply.
type ApplyCompleted struct {
	baseCompletion
	Outcome ApplyOutcome
}

// VerifyCompleted reports the result of a dispatched Verify.
type VerifyCompleted struct {
	baseCompletion
	Ok bool
}

// RecoveryOutcome is the result of one Recover operation (spec §4.4).
type RecoveryOutcome struct {
	Success  bool
	Snapshot displayapi.Snapshot
}

// RecoverCompleted reports the result of a dispatched Recover.
type RecoverCompleted struct {
	baseCompletion
	Outcome RecoveryOutcome
}

// RecoverValidateCompleted reports the result of a dispatched
// RecoverValidate.
type RecoverValidateCompleted struct {
	baseCompletion
	Ok bool
}
