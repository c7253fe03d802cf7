package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ismail180205/HippoMind/internal/daemon"
	"github.com/ismail180205/HippoMind/internal/store"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server and index status",
		Long: `Show the running server's status and index statistics.

When a server is running, statistics come from its admin control
socket; otherwise the index directory is inspected directly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	client := daemon.NewClient(daemon.DefaultConfig())

	if client.IsRunning() {
		status, err := client.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to query server: %w", err)
		}
		return printServerStatus(cmd, status, jsonOutput)
	}

	return printLocalStatus(cmd, jsonOutput)
}

func printServerStatus(cmd *cobra.Command, status *daemon.StatusResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Server:   running (pid %d, up %s, v%s)\n",
		status.PID, (time.Duration(status.UptimeSeconds) * time.Second).String(), status.Version)
	_, _ = fmt.Fprintf(out, "Sessions: %d\n", status.Sessions)
	printStats(cmd, status.Index)
	return nil
}

// printLocalStatus opens the index directly when no server is running.
func printLocalStatus(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := store.Open(cfg.Paths.IndexDir, cfg.Embeddings.Dimensions)
	if err != nil {
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"server": "stopped", "index": nil})
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Server:   not running")
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Index:    not found at %s\n", cfg.Paths.IndexDir)
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "")
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Build one with: hippomind index MANIFEST")
		return nil
	}
	defer catalog.Close()

	stats, err := catalog.Stats(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"server": "stopped", "index": stats})
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Server:   not running")
	printStats(cmd, stats)
	return nil
}

func printStats(cmd *cobra.Command, stats *store.Stats) {
	if stats == nil {
		return
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Index:    %s\n", stats.IndexDir)
	_, _ = fmt.Fprintf(out, "Files:    %d\n", stats.Files)
	_, _ = fmt.Fprintf(out, "Chunks:   %d (%d dense vectors, %d sparse docs)\n",
		stats.Chunks, stats.DenseVectors, stats.SparseDocs)
}
