package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ismail180205/HippoMind/internal/ui"
)

func newFindCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "find QUERY...",
		Short: "Narrow down to a document interactively",
		Long: `Start an interactive narrowing session for a vague memory of a
document.

Candidates are clustered into labelled groups; pick the group that
feels right and the loop repeats until one file remains. When groups
stop helping, answer a follow-up question instead.

Examples:
  hippomind find flood risk report for the coastal region
  hippomind find "that methodology annex with the sampling tables"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))

			st, err := buildStack(false)
			if err != nil {
				return err
			}
			defer st.Close()

			return ui.Run(cmd.Context(), st.sessions, query, ui.Config{
				Input:   cmd.InOrStdin(),
				Output:  cmd.OutOrStdout(),
				NoColor: noColor || ui.DetectNoColor(),
			})
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
