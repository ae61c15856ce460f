package config

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateTieredEmptySocketPathIsFatal(t *testing.T) {
	cfg := Default()
	cfg.SocketPath = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("empty socket path should be fatal")
	}
}

func TestValidateTieredEmptyDataDirIsFatal(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("empty data dir should be fatal")
	}
}

func TestValidateTieredUnknownArchiveProviderIsFatal(t *testing.T) {
	cfg := Default()
	cfg.ArchiveProvider = "dropbox"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("unknown archive provider should be fatal")
	}
	found := false
	for _, err := range result.Fatals {
		if strings.Contains(err.Error(), "dropbox") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected archive provider validation error in fatals")
	}
}

func TestValidateTieredArchiveProviderWithoutInstallIDIsFatal(t *testing.T) {
	cfg := Default()
	cfg.ArchiveProvider = "s3"
	cfg.ArchiveInstallID = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("archive provider set without install id should be fatal")
	}
}

func TestValidateTieredApplyMaxAttemptsClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.ApplyMaxAttempts = 0
	result := cfg.ValidateTiered()

	if result.HasFatals() {
		t.Fatalf("clamped apply_max_attempts should be warning, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for clamped apply_max_attempts")
	}
	if cfg.ApplyMaxAttempts != 1 {
		t.Fatalf("ApplyMaxAttempts = %d, want 1 (clamped)", cfg.ApplyMaxAttempts)
	}
}

func TestValidateTieredHeartbeatTimeoutHighClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.HeartbeatTimeoutSec = 99999
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped heartbeat timeout should be warning, not fatal: %v", result.Fatals)
	}
	if cfg.HeartbeatTimeoutSec != 3600 {
		t.Fatalf("HeartbeatTimeoutSec = %d, want 3600 (clamped)", cfg.HeartbeatTimeoutSec)
	}
}

func TestValidateTieredIPCTimeoutClamping(t *testing.T) {
	cfg := Default()
	cfg.IPCSendTimeoutSec = 0
	cfg.HandshakeACKTimeoutMS = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped IPC timeouts should be warning: %v", result.Fatals)
	}
	if cfg.IPCSendTimeoutSec != 1 {
		t.Fatalf("IPCSendTimeoutSec = %d, want 1", cfg.IPCSendTimeoutSec)
	}
	if cfg.HandshakeACKTimeoutMS != 1 {
		t.Fatalf("HandshakeACKTimeoutMS = %d, want 1", cfg.HandshakeACKTimeoutMS)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown log level")
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("invalid log format should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for invalid log format")
	}
}

func TestHasFatals(t *testing.T) {
	r := Result{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestAllErrorsReturnsBoth(t *testing.T) {
	cfg := Default()
	cfg.ArchiveProvider = "dropbox" // fatal
	cfg.LogLevel = "verbose"       // warning
	result := cfg.ValidateTiered()

	all := result.AllErrors()
	if len(all) < 2 {
		t.Fatalf("AllErrors() returned %d errors, expected at least 2 (fatals + warnings)", len(all))
	}
}

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	cfg.ArchiveProvider = ""
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("valid config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("valid config has warnings: %v", result.Warnings)
	}
}
