// Package session implements the interactive narrowing protocol: a
// four-status state machine per search, an append-only navigation tree
// with snapshot-based backtracking, and a registry that serializes
// mutations per session while serving lock-free reads.
package session

import (
	"context"
	"time"

	"github.com/ismail180205/HippoMind/internal/cluster"
	"github.com/ismail180205/HippoMind/internal/llm"
	"github.com/ismail180205/HippoMind/internal/search"
)

// Status is the session's position in the narrowing protocol.
type Status string

const (
	// StatusClusters offers labelled groups to pick from.
	StatusClusters Status = "clusters"

	// StatusFollowup has a pending clarification question.
	StatusFollowup Status = "followup"

	// StatusExhausted means candidates could not be separated further.
	StatusExhausted Status = "exhausted"

	// StatusFound is terminal: a single file was resolved.
	StatusFound Status = "found"
)

// Retriever is the slice of the search engine sessions consume.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*search.Result, error)
	Rescore(ctx context.Context, answers string, chunksOf map[string][]string) ([]search.FileScore, error)
	FileSummaries(ctx context.Context, files []string) (map[string]string, error)
}

// Clusterer groups candidate points into selectable clusters.
type Clusterer interface {
	Cluster(ctx context.Context, points []cluster.Point) (*cluster.Outcome, error)
}

// PointLoader materializes clustering points (text plus vector) for the
// chunks backing a candidate set.
type PointLoader interface {
	LoadPoints(ctx context.Context, chunksOf map[string][]string) ([]cluster.Point, error)
}

// Questioner generates follow-up questions.
type Questioner interface {
	FollowupQuestion(ctx context.Context, fileSummaries map[string]string, conversation []llm.QA, questionNum, maxQuestions int) (string, error)
}

// NavNodeView is one navigation tree entry as exposed to clients.
type NavNodeView struct {
	NodeID       int    `json:"nodeId"`
	Label        string `json:"label"`
	Depth        int    `json:"depth"`
	ParentNodeID *int   `json:"parentNodeId"`
	Round        int    `json:"round"`
	IsOnPath     bool   `json:"isOnPath"`
}

// Snapshot is the immutable public view of a session. Fields carrying
// status-specific data are populated only for their status.
type Snapshot struct {
	SessionID     string             `json:"session_id"`
	CreatedAt     time.Time          `json:"created_at"`
	Status        Status             `json:"status"`
	Round         int                `json:"round"`
	Query         string             `json:"query"`
	ExpandedQuery string             `json:"expanded_query"`
	TotalChunks   int                `json:"total_chunks"`
	Files         []string           `json:"files"`
	FileScores    []search.FileScore `json:"file_scores"`

	// Status clusters.
	Clusters []cluster.Cluster `json:"clusters,omitempty"`

	// Status followup.
	PendingQuestion string `json:"pending_question,omitempty"`
	FollowupCount   int    `json:"followup_count,omitempty"`
	MaxFollowups    int    `json:"max_followups,omitempty"`

	// Status found.
	FoundFile    string `json:"found_file,omitempty"`
	FoundSummary string `json:"found_summary,omitempty"`

	// Status exhausted.
	RemainingFiles []string `json:"remaining_files,omitempty"`

	Conversation   []llm.QA      `json:"conversation"`
	NavTree        []NavNodeView `json:"nav_tree"`
	CurrentNavNode int           `json:"current_nav_node"`
}
