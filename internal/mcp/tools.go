package mcp

import "github.com/ismail180205/HippoMind/internal/session"

// StartSearchInput defines the input schema for the start_search tool.
type StartSearchInput struct {
	Query string `json:"query" jsonschema:"the user's description of the file they are looking for"`
}

// GetSessionInput defines the input schema for the get_session tool.
type GetSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to inspect"`
}

// PickClusterInput defines the input schema for the pick_cluster tool.
type PickClusterInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to narrow"`
	ClusterID int    `json:"cluster_id" jsonschema:"id of the cluster the user chose"`
}

// AskForHelpInput defines the input schema for the ask_for_help tool.
type AskForHelpInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to switch into follow-up mode"`
}

// AnswerFollowupInput defines the input schema for the answer_followup tool.
type AnswerFollowupInput struct {
	SessionID string `json:"session_id" jsonschema:"the session holding the pending question"`
	Answer    string `json:"answer" jsonschema:"the user's answer to the pending question"`
}

// BacktrackInput defines the input schema for the backtrack tool.
type BacktrackInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to rewind"`
	NodeID    int    `json:"node_id" jsonschema:"navigation node to return to; 0 is the original query"`
}

// DeleteSessionInput defines the input schema for the delete_session tool.
type DeleteSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to discard"`
}

// IndexStatusInput defines the input schema for the index_status tool
// (no parameters).
type IndexStatusInput struct{}

// SessionOutput wraps a session snapshot as tool output.
type SessionOutput struct {
	Session *session.Snapshot `json:"session" jsonschema:"the session state after the operation"`
}

// DeleteSessionOutput defines the output schema for the delete_session tool.
type DeleteSessionOutput struct {
	Deleted bool `json:"deleted" jsonschema:"always true; deleting an unknown session is a no-op"`
}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	IndexDir     string        `json:"index_dir"`
	Files        int           `json:"files"`
	Chunks       int           `json:"chunks"`
	DenseVectors int           `json:"dense_vectors"`
	SparseDocs   uint64        `json:"sparse_docs"`
	Sessions     int           `json:"sessions"`
	Embeddings   EmbeddingInfo `json:"embeddings"`
}

// EmbeddingInfo describes the embedding configuration so clients can
// judge semantic quality.
type EmbeddingInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}
