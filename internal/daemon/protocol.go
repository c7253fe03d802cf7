package daemon

import (
	"github.com/ismail180205/HippoMind/internal/session"
	"github.com/ismail180205/HippoMind/internal/store"
)

// JSON-RPC 2.0 method names.
const (
	MethodPing          = "ping"
	MethodStatus        = "status"
	MethodListSessions  = "list_sessions"
	MethodGetSession    = "get_session"
	MethodDeleteSession = "delete_session"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Custom error codes.
const (
	ErrCodeSessionNotFound = -32001
	ErrCodeStatsFailed     = -32002
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      string `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(id string, result any) Response {
	return Response{JSONRPC: "2.0", Result: result, ID: id}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	}
}

// SessionParams carry a session id for get/delete.
type SessionParams struct {
	SessionID string `json:"session_id"`
}

// StatusResult is the status method's payload.
type StatusResult struct {
	Version       string       `json:"version"`
	PID           int          `json:"pid"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Sessions      int          `json:"sessions"`
	Index         *store.Stats `json:"index,omitempty"`
}

// ListSessionsResult is the list_sessions method's payload.
type ListSessionsResult struct {
	Sessions []*session.Snapshot `json:"sessions"`
}
