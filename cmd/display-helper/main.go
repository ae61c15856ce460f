// Command display-helper is the privileged, out-of-process supervisor
// that applies, verifies, recovers, and reverts display configuration on
// behalf of a streaming server (spec.md §1-§9). It owns no network
// surface of its own: every instruction arrives over a local IPC pipe
// from the managed application.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanternops/display-helper-core/internal/config"
	"github.com/lanternops/display-helper-core/internal/logging"
)

var (
	version         = "0.1.0"
	cfgFile         string
	socketOverride  string
	dataDirOverride string
	restoreOnly     bool
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "display-helper",
	Short: "Display Helper Core",
	Long:  `display-helper applies, verifies, recovers, and reverts display configuration for a managed streaming server.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the supervisor and block on the IPC listener",
	Run: func(cmd *cobra.Command, args []string) {
		if restoreOnly {
			os.Exit(runRestore())
		}
		if err := runSupervisor(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("display-helper v%s\n", version)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Dial the running supervisor's control socket and report a pong",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPing()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config directory)")
	runCmd.Flags().StringVar(&socketOverride, "socket", "", "override the IPC endpoint path/pipe name")
	runCmd.Flags().StringVar(&dataDirOverride, "data-dir", "", "override the snapshot ledger directory")
	runCmd.Flags().BoolVar(&restoreOnly, "restore", false, "run one boot-time recovery pass and exit, without opening the IPC listener")
	pingCmd.Flags().StringVar(&socketOverride, "socket", "", "override the IPC endpoint path/pipe name")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pingCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig applies --config, then the --socket/--data-dir overrides,
// on top of whatever config.Load produced.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if socketOverride != "" {
		cfg.SocketPath = socketOverride
	}
	if dataDirOverride != "" {
		cfg.DataDir = dataDirOverride
	}
	return cfg, nil
}

// initLogging sets up structured logging from config, mirroring the
// teacher's rotating-file-plus-stdout-tee pattern. Call after loadConfig.
func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	logFileFallback := false

	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
			logFileFallback = true
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")

	if logFileFallback {
		log.Warn("log file fallback active, logging to stdout only", "requestedFile", cfg.LogFile)
	}
}
