package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ismail180205/HippoMind/internal/session"
)

// RunPlain runs the narrowing loop as a line-oriented prompt for pipes
// and dumb terminals. Commands: a number picks a cluster, "?" asks for
// a question, "b N" backtracks to node N, "q" quits; in follow-up mode
// any other line is the answer.
func RunPlain(ctx context.Context, driver Driver, query string, cfg Config) error {
	out := cfg.Output
	scanner := bufio.NewScanner(cfg.Input)

	snap, err := driver.Create(ctx, query)
	if err != nil {
		return err
	}
	defer driver.Delete(snap.SessionID)

	for {
		printSnapshot(out, snap)
		if snap.Status == session.StatusFound {
			return nil
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		next, opErr := dispatch(ctx, driver, snap, line)
		if next == nil && opErr == nil {
			return nil // quit
		}
		if opErr != nil {
			fmt.Fprintf(out, "error: %v\n", opErr)
			continue
		}
		snap = next
	}
}

// dispatch applies one input line. A nil, nil return means quit.
func dispatch(ctx context.Context, driver Driver, snap *session.Snapshot, line string) (*session.Snapshot, error) {
	id := snap.SessionID

	if snap.Status == session.StatusFollowup {
		if line == "q" {
			return nil, nil
		}
		return driver.AnswerFollowup(ctx, id, line)
	}

	switch {
	case line == "q":
		return nil, nil
	case line == "?":
		return driver.AskForHelp(ctx, id)
	case strings.HasPrefix(line, "b "):
		nodeID, err := strconv.Atoi(strings.TrimSpace(line[2:]))
		if err != nil {
			return snap, fmt.Errorf("usage: b <node id>")
		}
		return driver.Backtrack(ctx, id, nodeID)
	default:
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(snap.Clusters) {
			return snap, fmt.Errorf("pick 1-%d, ? for a question, b <node> to backtrack, q to quit", len(snap.Clusters))
		}
		return driver.Pick(ctx, id, snap.Clusters[n-1].ID)
	}
}

func printSnapshot(out io.Writer, snap *session.Snapshot) {
	fmt.Fprintf(out, "\n[round %d] %d candidate files\n", snap.Round, len(snap.Files))

	switch snap.Status {
	case session.StatusClusters:
		for i, c := range snap.Clusters {
			fmt.Fprintf(out, "%d. %s (%d files)\n", i+1, c.Label, len(c.Files))
			for _, f := range c.Files {
				fmt.Fprintf(out, "   %s\n", f)
			}
		}
	case session.StatusFollowup:
		fmt.Fprintf(out, "Question %d of %d: %s\n", snap.FollowupCount+1, snap.MaxFollowups, snap.PendingQuestion)
	case session.StatusFound:
		fmt.Fprintf(out, "Found: %s\n", snap.FoundFile)
		if snap.FoundSummary != "" {
			fmt.Fprintf(out, "%s\n", snap.FoundSummary)
		}
	case session.StatusExhausted:
		fmt.Fprintln(out, "Cannot narrow further. Remaining candidates:")
		for _, f := range snap.RemainingFiles {
			fmt.Fprintf(out, "   %s\n", f)
		}
	}

	if len(snap.NavTree) > 1 {
		fmt.Fprintln(out, "Path:")
		for _, n := range snap.NavTree {
			marker := "  "
			if n.NodeID == snap.CurrentNavNode {
				marker = "> "
			} else if n.IsOnPath {
				marker = "* "
			}
			fmt.Fprintf(out, "%s%s[%d] %s\n", strings.Repeat("  ", n.Depth), marker, n.NodeID, n.Label)
		}
	}
}
