package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validArchiveProviders = map[string]bool{
	"":          true,
	"local":     true,
	"s3":        true,
	"azure":     true,
	"backblaze": true,
	"gcs":       true,
}

// Result is the outcome of ValidateTiered: Fatals block startup,
// Warnings are logged but the (possibly clamped) config is still used.
type Result struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal validation error was found.
func (r Result) HasFatals() bool { return len(r.Fatals) > 0 }

// AllErrors returns fatals followed by warnings, for callers that just
// want to log everything found.
func (r Result) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks the config for invalid values, clamping
// dangerous zero/out-of-range values to safe defaults (reported as
// warnings) and rejecting genuinely unusable configuration (reported as
// fatal).
func (c *Config) ValidateTiered() Result {
	var r Result

	if c.SocketPath == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("socket_path must not be empty"))
	}
	if c.DataDir == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("data_dir must not be empty"))
	}
	if !validArchiveProviders[strings.ToLower(c.ArchiveProvider)] {
		r.Fatals = append(r.Fatals, fmt.Errorf(
			"archive_provider %q is not one of local, s3, azure, backblaze, gcs", c.ArchiveProvider))
	}
	if c.ArchiveProvider != "" && c.ArchiveInstallID == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("archive_install_id is required when archive_provider is set"))
	}

	clampInt(&c.ApplyMaxAttempts, 1, 10, "apply_max_attempts", &r)
	clampInt(&c.ApplyRetryDelayMS, 0, 60_000, "apply_retry_delay_ms", &r)
	clampInt(&c.VerifySettleDelayMS, 0, 60_000, "verify_settle_delay_ms", &r)
	clampInt(&c.VirtualResetCooldownSec, 0, 3600, "virtual_reset_cooldown_sec", &r)
	clampInt(&c.HeartbeatTimeoutSec, 1, 3600, "heartbeat_timeout_sec", &r)
	clampInt(&c.VirtualEventDebounceMS, 0, 60_000, "virtual_event_debounce_ms", &r)
	clampInt(&c.VirtualRetryDelayMS, 0, 60_000, "virtual_retry_delay_ms", &r)
	clampInt(&c.HDRBlankDelayMS, 0, 60_000, "hdr_blank_delay_ms", &r)
	clampInt(&c.RecoverMaxAttempts, 1, 10, "recover_max_attempts", &r)
	clampInt(&c.RecoverRetryDelayMS, 0, 60_000, "recover_retry_delay_ms", &r)

	clampInt(&c.IPCSendTimeoutSec, 1, 120, "ipc_send_timeout_sec", &r)
	clampInt(&c.IPCConnectTimeoutSec, 1, 120, "ipc_connect_timeout_sec", &r)
	clampInt(&c.IPCShutdownTimeoutMS, 0, 60_000, "ipc_shutdown_timeout_ms", &r)
	clampInt(&c.HandshakeACKTimeoutMS, 1, 60_000, "handshake_ack_timeout_ms", &r)
	clampInt(&c.ClientConnectRetrySec, 1, 300, "client_connect_retry_sec", &r)

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return r
}

// clampInt clamps *v into [min, max], appending a warning if clamping
// was needed.
func clampInt(v *int, min, max int, field string, r *Result) {
	if *v < min {
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d is below minimum %d, clamping", field, *v, min))
		*v = min
	} else if *v > max {
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d exceeds maximum %d, clamping", field, *v, max))
		*v = max
	}
}
