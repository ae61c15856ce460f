package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/lanternops/display-helper-core/internal/logging"
)

var log = logging.L("config")

// Config holds every value the spec calls out as "injected at
// construction": the apply/retry/reset policy constants, IPC timeouts,
// the snapshot ledger location, the IPC endpoint, and the optional
// remote golden-snapshot mirror.
type Config struct {
	// Policy & Watchdogs (C6)
	ApplyMaxAttempts        int     `mapstructure:"apply_max_attempts"`
	ApplyRetryDelayMS       int     `mapstructure:"apply_retry_delay_ms"`
	VerifySettleDelayMS     int     `mapstructure:"verify_settle_delay_ms"`
	VirtualResetCooldownSec int     `mapstructure:"virtual_reset_cooldown_sec"`
	HeartbeatTimeoutSec     int     `mapstructure:"heartbeat_timeout_sec"`
	VirtualEventDebounceMS  int     `mapstructure:"virtual_event_debounce_ms"`
	VirtualRetryDelayMS     int     `mapstructure:"virtual_retry_delay_ms"`
	HDRBlankDelayMS         int     `mapstructure:"hdr_blank_delay_ms"`
	RecoverMaxAttempts      int     `mapstructure:"recover_max_attempts"`
	RecoverRetryDelayMS     int     `mapstructure:"recover_retry_delay_ms"`
	PreferGoldenFirst       bool    `mapstructure:"prefer_golden_first"`

	// IPC Transport (C1)
	SocketPath            string `mapstructure:"socket_path"`
	IPCSendTimeoutSec     int    `mapstructure:"ipc_send_timeout_sec"`
	IPCConnectTimeoutSec  int    `mapstructure:"ipc_connect_timeout_sec"`
	IPCShutdownTimeoutMS  int    `mapstructure:"ipc_shutdown_timeout_ms"`
	HandshakeACKTimeoutMS int    `mapstructure:"handshake_ack_timeout_ms"`
	ClientConnectRetrySec int    `mapstructure:"client_connect_retry_sec"`

	// Snapshot ledger (C5)
	DataDir string `mapstructure:"data_dir"`

	// Golden snapshot remote archive (internal/snapshot/archive)
	ArchiveProvider    string `mapstructure:"archive_provider"` // "", "local", "s3", "azure", "backblaze", "gcs"
	ArchiveInstallID   string `mapstructure:"archive_install_id"`
	ArchiveLocalDir    string `mapstructure:"archive_local_dir"`
	ArchiveBucket      string `mapstructure:"archive_bucket"`
	ArchiveRegion      string `mapstructure:"archive_region"`
	ArchiveEndpoint    string `mapstructure:"archive_endpoint"`
	ArchiveKeyPrefix   string `mapstructure:"archive_key_prefix"`
	ArchiveConnString  string `mapstructure:"archive_connection_string"` // azure
	ArchiveContainer   string `mapstructure:"archive_container"`         // azure
	ArchiveKeyID       string `mapstructure:"archive_key_id"`            // backblaze
	ArchiveAppKey      string `mapstructure:"archive_app_key"`           // backblaze
	ArchiveCredsFile   string `mapstructure:"archive_credentials_file"`  // gcs

	// Logging
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	// Audit
	AuditEnabled    bool `mapstructure:"audit_enabled"`
	AuditMaxSizeMB  int  `mapstructure:"audit_max_size_mb"`
	AuditMaxBackups int  `mapstructure:"audit_max_backups"`
}

// Default returns the spec's own default constants.
func Default() *Config {
	return &Config{
		ApplyMaxAttempts:        3,
		ApplyRetryDelayMS:       300,
		VerifySettleDelayMS:     250,
		VirtualResetCooldownSec: 30,
		HeartbeatTimeoutSec:     30,
		VirtualEventDebounceMS:  250,
		VirtualRetryDelayMS:     100,
		HDRBlankDelayMS:         1000,
		RecoverMaxAttempts:      2,
		RecoverRetryDelayMS:     300,
		PreferGoldenFirst:       false,

		SocketPath:            defaultSocketPath(),
		IPCSendTimeoutSec:     5,
		IPCConnectTimeoutSec:  8,
		IPCShutdownTimeoutMS:  500,
		HandshakeACKTimeoutMS: 1200,
		ClientConnectRetrySec: 15,

		DataDir: defaultDataDir(),

		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,

		AuditEnabled:    true,
		AuditMaxSizeMB:  50,
		AuditMaxBackups: 3,
	}
}

// Load reads YAML config from cfgFile (or the platform config directory
// if empty), overlays DISPLAYHELPER_-prefixed env vars, and validates
// the result. A fatal validation error aborts startup; warnings are
// logged and the (clamped) config is returned.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("display-helper")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DISPLAYHELPER")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

// Save writes cfg to the platform config directory.
func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

// SaveTo writes cfg as YAML to cfgFile (or the platform config directory
// if empty), restricted to owner-only access.
func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("socket_path", cfg.SocketPath)
	viper.Set("data_dir", cfg.DataDir)
	viper.Set("apply_max_attempts", cfg.ApplyMaxAttempts)
	viper.Set("apply_retry_delay_ms", cfg.ApplyRetryDelayMS)
	viper.Set("verify_settle_delay_ms", cfg.VerifySettleDelayMS)
	viper.Set("virtual_reset_cooldown_sec", cfg.VirtualResetCooldownSec)
	viper.Set("heartbeat_timeout_sec", cfg.HeartbeatTimeoutSec)
	viper.Set("archive_provider", cfg.ArchiveProvider)
	viper.Set("archive_install_id", cfg.ArchiveInstallID)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "display-helper.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	if err := viper.WriteConfigAs(cfgPath); err != nil {
		return err
	}

	// The archive credentials fields make this file sensitive.
	return os.Chmod(cfgPath, 0600)
}

// defaultDataDir returns the platform-specific snapshot ledger directory.
func defaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "DisplayHelper", "data")
	default:
		return "/var/lib/display-helper"
	}
}

func defaultSocketPath() string {
	switch runtime.GOOS {
	case "windows":
		return `\\.\pipe\displayhelper`
	default:
		return "/run/display-helper/control.sock"
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "DisplayHelper")
	default:
		return "/etc/display-helper"
	}
}
