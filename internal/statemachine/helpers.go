package statemachine

import "github.com/lanternops/display-helper-core/internal/policy"

// statusName renders a policy.Status the way the error taxonomy names it
// (spec §7), for the apply-result reply body.
func statusName(status policy.Status) string {
	switch status {
	case policy.StatusOk:
		return "Ok"
	case policy.StatusHelperUnavailable:
		return "HelperUnavailable"
	case policy.StatusInvalidRequest:
		return "InvalidRequest"
	case policy.StatusVerificationFailed:
		return "VerificationFailed"
	case policy.StatusNeedsVirtualDisplayReset:
		return "NeedsVirtualDisplayReset"
	case policy.StatusRetryable:
		return "Retryable"
	default:
		return "Fatal"
	}
}

func toBlacklistSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
