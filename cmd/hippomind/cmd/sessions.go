package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ismail180205/HippoMind/internal/daemon"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect live search sessions",
		Long: `List or delete search sessions on the running server.

Sessions live in the serve process; these commands talk to it over the
admin control socket.

Examples:
  # List all live sessions
  hippomind sessions

  # Delete a session
  hippomind sessions delete 6f1c2e90-...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionsList(cmd)
		},
	}

	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsDeleteCmd())

	return cmd
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Show one session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd, args[0])
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a session on the running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(cmd, args[0])
		},
	}
}

func runSessionsList(cmd *cobra.Command) error {
	client := daemon.NewClient(daemon.DefaultConfig())
	if !client.IsRunning() {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No server running.")
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "")
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Start one with: hippomind serve")
		return nil
	}

	sessions, err := client.ListSessions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No live sessions.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SESSION\tSTATUS\tROUND\tFILES\tAGE\tQUERY")
	_, _ = fmt.Fprintln(w, "-------\t------\t-----\t-----\t---\t-----")

	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			shortID(s.SessionID), s.Status, s.Round, len(s.Files),
			formatTimeAgo(s.CreatedAt), truncateQuery(s.Query, 40))
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, id string) error {
	client := daemon.NewClient(daemon.DefaultConfig())
	if !client.IsRunning() {
		return fmt.Errorf("no server running")
	}

	snap, err := client.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func runSessionsDelete(cmd *cobra.Command, id string) error {
	client := daemon.NewClient(daemon.DefaultConfig())
	if !client.IsRunning() {
		return fmt.Errorf("no server running")
	}

	if err := client.DeleteSession(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted.\n", id)
	return nil
}

// shortID abbreviates a UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateQuery(q string, n int) string {
	if len(q) <= n {
		return q
	}
	return q[:n-1] + "…"
}

// formatTimeAgo formats a time as a human-readable "time ago" string.
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		return t.Format("Jan 2, 2006")
	}
}
