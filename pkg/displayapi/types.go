// Package displayapi defines the wire and persistence data model shared
// between the IPC transport, the command router, and the snapshot ledger.
package displayapi

import "encoding/json"

// HDRState is the HDR request/record value: unspecified (empty), on, off,
// or absent.
type HDRState string

const (
	HDRUnspecified HDRState = ""
	HDROn          HDRState = "on"
	HDROff         HDRState = "off"
	HDRAbsent      HDRState = "absent"
)

// DevicePrep is a hint about how the primary device should be prepared
// before mode-setting.
type DevicePrep string

const (
	DevicePrepNoOp           DevicePrep = "no-op"
	DevicePrepEnsureActive   DevicePrep = "ensure-active"
	DevicePrepEnsurePrimary  DevicePrep = "ensure-primary"
	DevicePrepEnsureOnly     DevicePrep = "ensure-only-display"
	DevicePrepVerifyOnly     DevicePrep = "verify-only"
)

// Resolution is a pixel width/height pair.
type Resolution struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// RefreshRate is expressed as a rational to avoid floating point drift when
// round-tripped through JSON and compared against the backend's reported
// numerator/denominator.
type RefreshRate struct {
	Numerator   uint32 `json:"num"`
	Denominator uint32 `json:"den"`
}

// Hz returns the refresh rate as a float64, or 0 if the denominator is 0.
func (r RefreshRate) Hz() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// RefreshRateFromHz builds a RefreshRate from a plain double, as accepted
// by the wire format's "refreshRate" field.
func RefreshRateFromHz(hz float64) RefreshRate {
	const den = 1000
	return RefreshRate{Numerator: uint32(hz * den), Denominator: den}
}

// UnmarshalJSON accepts either a {"num","den"} object or a bare number of
// Hz, which is converted with RefreshRateFromHz.
func (r *RefreshRate) UnmarshalJSON(b []byte) error {
	var hz float64
	if err := json.Unmarshal(b, &hz); err == nil {
		*r = RefreshRateFromHz(hz)
		return nil
	}
	type plain RefreshRate
	return json.Unmarshal(b, (*plain)(r))
}

// Point is an (x, y) origin on the virtual desktop.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// MonitorPosition places one physical device at an origin.
type MonitorPosition struct {
	DeviceID string `json:"deviceId"`
	Origin   Point  `json:"origin"`
}

// Topology is an ordered sequence of groups; each group is a non-empty
// ordered sequence of device IDs fused as one logical display (mirror
// groups are multi-member groups, extended displays are single-member
// groups).
type Topology [][]string

// DeviceIDs returns every device ID referenced anywhere in the topology.
func (t Topology) DeviceIDs() []string {
	var ids []string
	for _, group := range t {
		ids = append(ids, group...)
	}
	return ids
}

// Equal reports structural equality between two topologies.
func (t Topology) Equal(other Topology) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if len(t[i]) != len(other[i]) {
			return false
		}
		for j := range t[i] {
			if t[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// Configuration is the primary-device portion of an ApplyRequest.
type Configuration struct {
	DeviceID     string       `json:"deviceId"`
	Resolution   *Resolution  `json:"resolution,omitempty"`
	RefreshRate  *RefreshRate `json:"refreshRate,omitempty"`
	HDRState     HDRState     `json:"hdrState,omitempty"`
	DevicePrep   DevicePrep   `json:"devicePrep,omitempty"`
}

// ApplyRequest is the declarative configuration the caller wants realized.
type ApplyRequest struct {
	Configuration     *Configuration    `json:"configuration,omitempty"`
	Topology          Topology          `json:"topology,omitempty"`
	MonitorPositions  []MonitorPosition `json:"monitorPositions,omitempty"`
	HDRBlank          bool              `json:"hdrBlank,omitempty"`
	PreferGoldenFirst bool              `json:"preferGoldenFirst,omitempty"`
	VirtualLayout     string            `json:"virtualLayout,omitempty"`
}

// TargetsVirtualDisplay reports whether this request targets a
// software-synthesized display whose device_id may still need resolving.
func (r *ApplyRequest) TargetsVirtualDisplay() bool {
	return r != nil && r.VirtualLayout != ""
}

// Mode is one device's captured width/height/refresh-rate.
type Mode struct {
	Width       uint32 `json:"w"`
	Height      uint32 `json:"h"`
	Numerator   uint32 `json:"num"`
	Denominator uint32 `json:"den"`
}

// Snapshot is a captured or persisted slice of OS display state.
type Snapshot struct {
	Topology      Topology            `json:"topology"`
	Modes         map[string]Mode     `json:"modes"`
	HDRStates     map[string]HDRState `json:"hdr"`
	PrimaryDevice string              `json:"primary"`
}

// DeviceIDs returns the union of every device ID referenced by this
// snapshot's topology, modes, and HDR map.
func (s Snapshot) DeviceIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, id := range s.Topology.DeviceIDs() {
		ids[id] = struct{}{}
	}
	for id := range s.Modes {
		ids[id] = struct{}{}
	}
	for id := range s.HDRStates {
		ids[id] = struct{}{}
	}
	return ids
}

// Equal reports structural equality over all four snapshot fields.
func (s Snapshot) Equal(other Snapshot) bool {
	if !s.Topology.Equal(other.Topology) {
		return false
	}
	if s.PrimaryDevice != other.PrimaryDevice {
		return false
	}
	if len(s.Modes) != len(other.Modes) {
		return false
	}
	for id, m := range s.Modes {
		om, ok := other.Modes[id]
		if !ok || om != m {
			return false
		}
	}
	if len(s.HDRStates) != len(other.HDRStates) {
		return false
	}
	for id, h := range s.HDRStates {
		oh, ok := other.HDRStates[id]
		if !ok || oh != h {
			return false
		}
	}
	return true
}

// IsEmpty reports whether both the topology and the mode map are empty —
// the condition under which the ledger rejects a save (§4.5).
func (s Snapshot) IsEmpty() bool {
	return len(s.Topology) == 0 && len(s.Modes) == 0
}

// Filter returns a copy of the snapshot with every device in blacklist
// pruned from the topology groups, modes map, hdr map, and primary device.
func (s Snapshot) Filter(blacklist map[string]struct{}) Snapshot {
	if len(blacklist) == 0 {
		return s
	}
	out := Snapshot{
		Modes:     make(map[string]Mode),
		HDRStates: make(map[string]HDRState),
	}
	for _, group := range s.Topology {
		var filtered []string
		for _, id := range group {
			if _, blocked := blacklist[id]; !blocked {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) > 0 {
			out.Topology = append(out.Topology, filtered)
		}
	}
	for id, m := range s.Modes {
		if _, blocked := blacklist[id]; !blocked {
			out.Modes[id] = m
		}
	}
	for id, h := range s.HDRStates {
		if _, blocked := blacklist[id]; !blocked {
			out.HDRStates[id] = h
		}
	}
	if _, blocked := blacklist[s.PrimaryDevice]; !blocked {
		out.PrimaryDevice = s.PrimaryDevice
	}
	return out
}
