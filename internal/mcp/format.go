package mcp

import (
	"fmt"
	"strings"

	"github.com/ismail180205/HippoMind/internal/session"
)

// FormatSnapshot renders a session snapshot as markdown for display in
// MCP clients. The structured snapshot travels alongside it.
func FormatSnapshot(snap *session.Snapshot) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Search: %q\n\n", snap.Query))
	sb.WriteString(fmt.Sprintf("**Session:** `%s` | **Status:** %s | **Round:** %d | **Candidates:** %d file",
		snap.SessionID, snap.Status, snap.Round, len(snap.Files)))
	if len(snap.Files) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	switch snap.Status {
	case session.StatusClusters:
		formatClusters(&sb, snap)
	case session.StatusFollowup:
		formatFollowup(&sb, snap)
	case session.StatusFound:
		formatFound(&sb, snap)
	case session.StatusExhausted:
		formatExhausted(&sb, snap)
	}

	if len(snap.NavTree) > 1 {
		formatNavTree(&sb, snap)
	}

	return sb.String()
}

func formatClusters(sb *strings.Builder, snap *session.Snapshot) {
	sb.WriteString("### Pick a group\n\n")
	for _, c := range snap.Clusters {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%d file", c.ID+1, c.Label, len(c.Files)))
		if len(c.Files) != 1 {
			sb.WriteString("s")
		}
		sb.WriteString(")\n")
		for _, f := range c.Files {
			sb.WriteString(fmt.Sprintf("   - %s\n", f))
		}
	}
	sb.WriteString("\nCall `pick_cluster` with a cluster id, or `ask_for_help` for a clarification question.\n")
}

func formatFollowup(sb *strings.Builder, snap *session.Snapshot) {
	sb.WriteString(fmt.Sprintf("### Question %d of %d\n\n", snap.FollowupCount+1, snap.MaxFollowups))
	sb.WriteString(fmt.Sprintf("> %s\n\n", snap.PendingQuestion))
	sb.WriteString("Call `answer_followup` with the user's answer.\n")
}

func formatFound(sb *strings.Builder, snap *session.Snapshot) {
	sb.WriteString(fmt.Sprintf("### Found: %s\n\n", snap.FoundFile))
	if snap.FoundSummary != "" {
		sb.WriteString(snap.FoundSummary)
		sb.WriteString("\n")
	}
}

func formatExhausted(sb *strings.Builder, snap *session.Snapshot) {
	sb.WriteString("### Cannot narrow further\n\n")
	sb.WriteString("The remaining candidates are too similar to separate:\n\n")
	for _, f := range snap.RemainingFiles {
		sb.WriteString(fmt.Sprintf("- %s\n", f))
	}
	sb.WriteString("\nCall `ask_for_help` for a clarification question, or `backtrack` to revisit an earlier choice.\n")
}

func formatNavTree(sb *strings.Builder, snap *session.Snapshot) {
	sb.WriteString("\n### Path\n\n")
	for _, n := range snap.NavTree {
		indent := strings.Repeat("  ", n.Depth)
		marker := " "
		switch {
		case n.NodeID == snap.CurrentNavNode:
			marker = ">"
		case n.IsOnPath:
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s%s [%d] %s\n", indent, marker, n.NodeID, n.Label))
	}
}
