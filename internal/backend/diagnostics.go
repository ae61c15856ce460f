package backend

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// HostDiagnostics is the optional host/OS facts attached to a Pong reply
// for support triage; collecting or attaching it never affects any
// state-machine transition (spec's "supplemented feature" #4).
type HostDiagnostics struct {
	Hostname     string `json:"hostname"`
	OSType       string `json:"osType"`
	OSVersion    string `json:"osVersion"`
	KernelVer    string `json:"kernelVersion,omitempty"`
	Architecture string `json:"architecture"`
	UptimeSecs   uint64 `json:"uptimeSeconds"`
}

// CollectHostDiagnostics gathers best-effort host facts. Errors from the
// underlying host.Info() call are swallowed — diagnostics are advisory
// and must never block or fail a Ping reply.
func CollectHostDiagnostics() HostDiagnostics {
	d := HostDiagnostics{Architecture: runtime.GOARCH}
	info, err := host.Info()
	if err != nil {
		return d
	}
	d.Hostname = info.Hostname
	d.OSType = normalizeOSType(info.OS)
	d.OSVersion = info.Platform + " " + info.PlatformVersion
	d.KernelVer = info.KernelVersion
	d.UptimeSecs = info.Uptime
	return d
}

func normalizeOSType(os string) string {
	if os == "darwin" {
		return "macos"
	}
	return os
}
