package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// fileEnvelope mirrors the §6 snapshot JSON file format. Required fields
// are topology, modes, hdr; a file missing any of them is unusable and
// must be treated as absent rather than partially trusted.
type fileEnvelope struct {
	Topology *displayapi.Topology           `json:"topology"`
	Modes    *map[string]displayapi.Mode    `json:"modes"`
	HDR      *map[string]displayapi.HDRState `json:"hdr"`
	Primary  string                         `json:"primary"`
}

// JSONStore persists each tier as its own JSON file
// (current.json/previous.json/golden.json) under a data directory, using
// atomic fsync-then-rename writes so a crash mid-write never leaves a
// torn file visible under the final name.
type JSONStore struct {
	dir string
}

// NewJSONStore builds a file-backed store rooted at dir. The directory
// must already exist; JSONStore never creates it.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) path(tier Tier) string {
	return filepath.Join(s.dir, tier.String()+".json")
}

// Read implements Storage. A missing file, an unparsable file, or a file
// missing topology/modes/hdr is reported as ok=false (not an error) per
// §6's "a torn file must be rejected by the loader" rule.
func (s *JSONStore) Read(tier Tier) (displayapi.Snapshot, bool, error) {
	raw, err := os.ReadFile(s.path(tier))
	if err != nil {
		if os.IsNotExist(err) {
			return displayapi.Snapshot{}, false, nil
		}
		return displayapi.Snapshot{}, false, fmt.Errorf("read %s: %w", s.path(tier), err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return displayapi.Snapshot{}, false, nil
	}
	if env.Topology == nil || env.Modes == nil || env.HDR == nil {
		return displayapi.Snapshot{}, false, nil
	}

	return displayapi.Snapshot{
		Topology:      *env.Topology,
		Modes:         *env.Modes,
		HDRStates:     *env.HDR,
		PrimaryDevice: env.Primary,
	}, true, nil
}

// Write implements Storage using an fsync-then-atomic-rename sequence so
// readers never observe a partially written file.
func (s *JSONStore) Write(tier Tier, snap displayapi.Snapshot) error {
	modes := snap.Modes
	if modes == nil {
		modes = map[string]displayapi.Mode{}
	}
	hdr := snap.HDRStates
	if hdr == nil {
		hdr = map[string]displayapi.HDRState{}
	}
	env := fileEnvelope{
		Topology: &snap.Topology,
		Modes:    &modes,
		HDR:      &hdr,
		Primary:  snap.PrimaryDevice,
	}

	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal %s: %w", tier, err)
	}

	pending, err := renameio.NewPendingFile(s.path(tier), renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("snapshot: create pending file for %s: %w", tier, err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(raw); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", tier, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("snapshot: commit %s: %w", tier, err)
	}
	return nil
}

// Delete implements Storage. Absence of the file is not an error.
func (s *JSONStore) Delete(tier Tier) error {
	if err := os.Remove(s.path(tier)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("snapshot: delete %s: %w", tier, err)
	}
	return nil
}
