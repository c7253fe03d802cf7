package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ismail180205/HippoMind/internal/search"
)

// directFile returns the direct-match file name, if any.
func directFile(result *search.Result) string {
	if result.DirectMatch == nil {
		return ""
	}
	return result.DirectMatch.File
}

func newSearchCmd() *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Run a one-shot ranked search",
		Long: `Run the hybrid retrieval pipeline once and print the ranked
candidate files, without starting a narrowing session.

Examples:
  hippomind search coastal flood assessment
  hippomind search --json --limit 5 sampling methodology`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))

			st, err := buildStack(false)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := st.engine.Retrieve(cmd.Context(), query)
			if err != nil {
				return err
			}

			files := result.Files
			if limit > 0 && len(files) > limit {
				files = files[:limit]
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Query         string `json:"query"`
					ExpandedQuery string `json:"expanded_query"`
					DirectMatch   string `json:"direct_match,omitempty"`
					Files         any    `json:"files"`
				}{
					Query:         result.Query,
					ExpandedQuery: result.ExpandedQuery,
					DirectMatch:   directFile(result),
					Files:         files,
				})
			}

			if len(files) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}

			if direct := directFile(result); direct != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Direct match: %s\n\n", direct)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SCORE\tFILE")
			for _, f := range files {
				_, _ = fmt.Fprintf(w, "%.3f\t%s\n", f.Score, f.File)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of files to print (0 = all)")

	return cmd
}
