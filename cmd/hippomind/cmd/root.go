// Package cmd provides the CLI commands for HippoMind.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ismail180205/HippoMind/internal/logging"
	"github.com/ismail180205/HippoMind/pkg/version"
)

// Persistent flags.
var (
	debugMode      bool
	configPath     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the hippomind CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hippomind",
		Short: "Reconstructive search over a personal document collection",
		Long: `HippoMind narrows a vague memory of a document down to the file itself.

It combines hybrid retrieval (keyword + semantic) with interactive
narrowing: candidate files are clustered into labelled groups, you pick
the group that feels right, and the loop repeats until one file remains.

Run 'hippomind serve' to expose the loop as MCP tools, or
'hippomind find "that flood report"' to narrow interactively.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("hippomind version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.hippomind/logs/")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (overrides discovery)")
	cmd.PersistentPreRunE = startDebugLogging
	cmd.PersistentPostRunE = stopDebugLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startDebugLogging switches the default logger to debug level if the
// flag is set.
func startDebugLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	cfg := logging.DefaultConfig()
	cfg.Level = "debug"
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopDebugLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
