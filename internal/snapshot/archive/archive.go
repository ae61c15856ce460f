// Package archive mirrors the golden snapshot to a remote object store so
// a baseline survives a full reinstall. It is purely additive: the local
// JSON ledger (internal/snapshot) remains the load-bearing source of
// truth, and every Mirror implementation here is best-effort plumbing
// called from ExportGolden without ever blocking its reply.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// Mirror uploads and retrieves a single golden snapshot, keyed by
// install/agent ID, in some remote object store.
type Mirror interface {
	Upload(ctx context.Context, key string, snap displayapi.Snapshot) error
	Download(ctx context.Context, key string) (displayapi.Snapshot, error)
}

// envelope is the wire format stored at the remote key; it matches the
// local JSONStore's field set so a downloaded object round-trips through
// the same Filter/IsEmpty semantics as a local tier.
type envelope struct {
	Topology displayapi.Topology            `json:"topology"`
	Modes    map[string]displayapi.Mode     `json:"modes"`
	HDR      map[string]displayapi.HDRState `json:"hdr"`
	Primary  string                         `json:"primary"`
}

func marshalSnapshot(snap displayapi.Snapshot) ([]byte, error) {
	modes := snap.Modes
	if modes == nil {
		modes = map[string]displayapi.Mode{}
	}
	hdr := snap.HDRStates
	if hdr == nil {
		hdr = map[string]displayapi.HDRState{}
	}
	return json.Marshal(envelope{
		Topology: snap.Topology,
		Modes:    modes,
		HDR:      hdr,
		Primary:  snap.PrimaryDevice,
	})
}

func unmarshalSnapshot(raw []byte) (displayapi.Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: unmarshal snapshot: %w", err)
	}
	return displayapi.Snapshot{
		Topology:      env.Topology,
		Modes:         env.Modes,
		HDRStates:     env.HDR,
		PrimaryDevice: env.Primary,
	}, nil
}

// objectKey builds the remote key for an install's golden snapshot.
func objectKey(prefix, installID string) string {
	if prefix == "" {
		return installID + "/golden.json"
	}
	return prefix + "/" + installID + "/golden.json"
}
