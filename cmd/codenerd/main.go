// Command codenerd drives the harness's core substrate from a terminal:
// create and resume sessions, run one-shot tool calls under the approval
// gate, and inspect agent-directory state.
//
// Command implementations are split across start.go, exec.go, and
// status.go; this file is the entry point, root command, and global flag
// registration, matching cmd/nerd/main.go's file layout.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"codenerd/internal/config"
	"codenerd/internal/logging"
)

var (
	// Global flags, matching spec.md's §6 CLI surface.
	configPath  string
	profileName string
	verbose     bool
	agentDir    string

	// appConfig is loaded once in PersistentPreRunE and shared by every verb.
	appConfig *config.Config

	// cliLogger is the zap console logger for CLI-facing output.
	cliLogger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "codenerd",
	Short: "codenerd - coding agent session substrate",
	Long: `codenerd owns the session event log, patch pipeline, risk-gated
approvals, and layered memory a coding agent driver needs between turns.

Run "codenerd start" to begin a session, "codenerd exec <cmd> [args]" for
single-shot non-interactive execution, or "codenerd status" to inspect
agent directory state.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		cliLogger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		dir := agentDir
		if dir == "" {
			dir, _ = os.Getwd()
		} else if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		agentDir = dir

		path := configPath
		if path == "" {
			path = filepath.Join(dir, "codenerd.yaml")
		}
		appConfig, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logCfgPath := filepath.Join(dir, ".agent", "logging.toml")
		logCfg, err := config.LoadLoggingConfig(logCfgPath)
		if err != nil {
			return fmt.Errorf("load logging config: %w", err)
		}
		if verbose {
			logCfg.File.Enabled = true
			logCfg.File.Level = "debug"
		}
		if err := logging.Initialize(dir, logCfg.ToLoggerConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cliLogger != nil {
			_ = cliLogger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to codenerd.yaml (default: <dir>/codenerd.yaml)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Approval profile to use (default: config's default_profile)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&agentDir, "dir", "", "Project directory (default: current directory)")

	rootCmd.AddCommand(startCmd, execCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// activeProfile resolves the --profile flag against the loaded config,
// falling back to the config's default profile.
func activeProfile() config.Profile {
	return appConfig.ProfileByName(profileName)
}
