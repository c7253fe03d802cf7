// Package mcp implements the Model Context Protocol (MCP) server for
// HippoMind. It exposes the interactive narrowing protocol as tools and
// live sessions as resources.
package mcp

import (
	"context"
	"errors"
	"fmt"

	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
)

// Custom MCP error codes for HippoMind.
const (
	// ErrCodeIndexNotFound indicates no index exists yet.
	ErrCodeIndexNotFound = -32001

	// ErrCodeUpstreamUnavailable indicates the embedder or language
	// model could not be reached.
	ErrCodeUpstreamUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeSessionNotFound indicates the session id is unknown.
	ErrCodeSessionNotFound = -32004

	// ErrCodeInvalidTransition indicates the operation is not valid in
	// the session's current status.
	ErrCodeInvalidTransition = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var he *hmerrors.HippoError
	if errors.As(err, &he) {
		return mapHippoError(he)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// mapHippoError converts a HippoError to an MCPError. Protocol-level
// codes map individually; everything else maps by category.
func mapHippoError(he *hmerrors.HippoError) *MCPError {
	switch he.Code {
	case hmerrors.ErrCodeSessionNotFound:
		return &MCPError{
			Code:    ErrCodeSessionNotFound,
			Message: fmt.Sprintf("%s The session may have expired; start a new search.", he.Message),
		}
	case hmerrors.ErrCodeInvalidTransition,
		hmerrors.ErrCodeUnknownCluster,
		hmerrors.ErrCodeUnknownNavNode:
		return &MCPError{Code: ErrCodeInvalidTransition, Message: he.Message}
	case hmerrors.ErrCodeIndexNotFound,
		hmerrors.ErrCodeIndexLocked,
		hmerrors.ErrCodeCorruptIndex,
		hmerrors.ErrCodePayloadMissing:
		return &MCPError{
			Code:    ErrCodeIndexNotFound,
			Message: fmt.Sprintf("%s Run 'hippomind index' first.", he.Message),
		}
	case hmerrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: he.Message}
	}

	switch he.Category {
	case hmerrors.CategoryUpstream:
		return &MCPError{
			Code:    ErrCodeUpstreamUnavailable,
			Message: fmt.Sprintf("%s Check that Ollama is running.", he.Message),
		}
	case hmerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: he.Message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: he.Message}
	}
}
