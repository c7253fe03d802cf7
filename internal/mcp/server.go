package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ismail180205/HippoMind/internal/config"
	"github.com/ismail180205/HippoMind/internal/session"
	"github.com/ismail180205/HippoMind/internal/store"
	"github.com/ismail180205/HippoMind/pkg/version"
)

// SessionManager is the slice of the session registry the server consumes.
type SessionManager interface {
	Create(ctx context.Context, query string) (*session.Snapshot, error)
	Get(id string) (*session.Snapshot, error)
	Pick(ctx context.Context, id string, clusterID int) (*session.Snapshot, error)
	AskForHelp(ctx context.Context, id string) (*session.Snapshot, error)
	AnswerFollowup(ctx context.Context, id, answer string) (*session.Snapshot, error)
	Backtrack(ctx context.Context, id string, nodeID int) (*session.Snapshot, error)
	Delete(id string)
	List() []*session.Snapshot
	Count() int
}

// StatsProvider reports index statistics for the index_status tool.
type StatsProvider interface {
	Stats(ctx context.Context) (*store.Stats, error)
}

// Server is the MCP server for HippoMind. It bridges AI clients with the
// interactive narrowing protocol.
type Server struct {
	mcp      *mcp.Server
	sessions SessionManager
	stats    StatsProvider
	config   *config.Config
	logger   *slog.Logger
}

// NewServer creates a new MCP server.
func NewServer(sessions SessionManager, stats StatsProvider, cfg *config.Config) (*Server, error) {
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		sessions: sessions,
		stats:    stats,
		config:   cfg,
		logger:   slog.Default().With("component", "mcp-server"),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "HippoMind",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// registerTools registers the narrowing protocol tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "start_search",
		Description: "Start a reconstructive search from a vague description of a file. Returns topic groups to choose from, a direct match when the description is specific enough, or a clarification flow. Use when the user half-remembers a document.",
	}, s.handleStartSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_session",
		Description: "Fetch the current state of a search session without changing it: status, candidate files, clusters or pending question, and the navigation history.",
	}, s.handleGetSession)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "pick_cluster",
		Description: "Narrow a session to one of the offered topic groups. The chosen group's files become the new candidate set and are re-grouped.",
	}, s.handlePickCluster)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask_for_help",
		Description: "Switch a session into clarification mode. Generates one question about the remaining candidates for the user to answer.",
	}, s.handleAskForHelp)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "answer_followup",
		Description: "Submit the user's answer to the pending clarification question. Candidates are re-scored against everything said so far; the set only ever shrinks.",
	}, s.handleAnswerFollowup)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "backtrack",
		Description: "Return a session to an earlier point in its navigation history, restoring the candidate set exactly as it was. Explored branches are kept.",
	}, s.handleBacktrack)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_session",
		Description: "Discard a search session. Safe to call on ids that no longer exist.",
	}, s.handleDeleteSession)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Check whether the document index is ready and which embedding model is active. Use before starting a search.",
	}, s.handleIndexStatus)

	s.logger.Info("MCP tools registered", slog.Int("count", 8))
}

func (s *Server) handleStartSearch(ctx context.Context, _ *mcp.CallToolRequest, input StartSearchInput) (*mcp.CallToolResult, SessionOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SessionOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	snap, err := s.sessions.Create(ctx, input.Query)
	if err != nil {
		s.logger.Error("start_search failed", slog.String("error", err.Error()))
		return nil, SessionOutput{}, MapError(err)
	}

	s.logger.Info("start_search completed",
		slog.String("session_id", snap.SessionID),
		slog.String("status", string(snap.Status)),
		slog.Int("files", len(snap.Files)))

	return textResult(snap), SessionOutput{Session: snap}, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ *mcp.CallToolRequest, input GetSessionInput) (*mcp.CallToolResult, SessionOutput, error) {
	if input.SessionID == "" {
		return nil, SessionOutput{}, NewInvalidParamsError("session_id parameter is required")
	}

	snap, err := s.sessions.Get(input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, MapError(err)
	}
	return textResult(snap), SessionOutput{Session: snap}, nil
}

func (s *Server) handlePickCluster(ctx context.Context, _ *mcp.CallToolRequest, input PickClusterInput) (*mcp.CallToolResult, SessionOutput, error) {
	if input.SessionID == "" {
		return nil, SessionOutput{}, NewInvalidParamsError("session_id parameter is required")
	}

	snap, err := s.sessions.Pick(ctx, input.SessionID, input.ClusterID)
	if err != nil {
		return nil, SessionOutput{}, MapError(err)
	}

	s.logger.Info("pick_cluster completed",
		slog.String("session_id", snap.SessionID),
		slog.Int("cluster_id", input.ClusterID),
		slog.String("status", string(snap.Status)))

	return textResult(snap), SessionOutput{Session: snap}, nil
}

func (s *Server) handleAskForHelp(ctx context.Context, _ *mcp.CallToolRequest, input AskForHelpInput) (*mcp.CallToolResult, SessionOutput, error) {
	if input.SessionID == "" {
		return nil, SessionOutput{}, NewInvalidParamsError("session_id parameter is required")
	}

	snap, err := s.sessions.AskForHelp(ctx, input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, MapError(err)
	}
	return textResult(snap), SessionOutput{Session: snap}, nil
}

func (s *Server) handleAnswerFollowup(ctx context.Context, _ *mcp.CallToolRequest, input AnswerFollowupInput) (*mcp.CallToolResult, SessionOutput, error) {
	if input.SessionID == "" {
		return nil, SessionOutput{}, NewInvalidParamsError("session_id parameter is required")
	}
	if strings.TrimSpace(input.Answer) == "" {
		return nil, SessionOutput{}, NewInvalidParamsError("answer parameter is required and must be a non-empty string")
	}

	snap, err := s.sessions.AnswerFollowup(ctx, input.SessionID, input.Answer)
	if err != nil {
		return nil, SessionOutput{}, MapError(err)
	}
	return textResult(snap), SessionOutput{Session: snap}, nil
}

func (s *Server) handleBacktrack(ctx context.Context, _ *mcp.CallToolRequest, input BacktrackInput) (*mcp.CallToolResult, SessionOutput, error) {
	if input.SessionID == "" {
		return nil, SessionOutput{}, NewInvalidParamsError("session_id parameter is required")
	}

	snap, err := s.sessions.Backtrack(ctx, input.SessionID, input.NodeID)
	if err != nil {
		return nil, SessionOutput{}, MapError(err)
	}
	return textResult(snap), SessionOutput{Session: snap}, nil
}

func (s *Server) handleDeleteSession(ctx context.Context, _ *mcp.CallToolRequest, input DeleteSessionInput) (*mcp.CallToolResult, DeleteSessionOutput, error) {
	if input.SessionID == "" {
		return nil, DeleteSessionOutput{}, NewInvalidParamsError("session_id parameter is required")
	}

	s.sessions.Delete(input.SessionID)
	return nil, DeleteSessionOutput{Deleted: true}, nil
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	output := IndexStatusOutput{
		Sessions: s.sessions.Count(),
		Embeddings: EmbeddingInfo{
			Provider:   s.config.Embeddings.Provider,
			Model:      s.config.Embeddings.Model,
			Dimensions: s.config.Embeddings.Dimensions,
		},
	}

	if s.stats != nil {
		stats, err := s.stats.Stats(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, MapError(err)
		}
		output.IndexDir = stats.IndexDir
		output.Files = stats.Files
		output.Chunks = stats.Chunks
		output.DenseVectors = stats.DenseVectors
		output.SparseDocs = stats.SparseDocs
	}

	return nil, output, nil
}

// textResult wraps the markdown rendering of a snapshot for clients that
// display text content rather than structured output.
func textResult(snap *session.Snapshot) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: FormatSnapshot(snap)},
		},
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
