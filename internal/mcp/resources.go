package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// sessionsResourceURI lists every live session.
const sessionsResourceURI = "hippomind://sessions"

// registerResources registers the live-session listing as a resource so
// clients can poll search state without calling a tool.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "sessions",
			URI:         sessionsResourceURI,
			Description: "All live search sessions with their status and candidate files, newest first.",
			MIMEType:    "application/json",
		},
		s.handleSessionsResource,
	)
}

func (s *Server) handleSessionsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	snaps := s.sessions.List()

	data, err := json.MarshalIndent(snaps, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      sessionsResourceURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
