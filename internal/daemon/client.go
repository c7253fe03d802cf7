package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/ismail180205/HippoMind/internal/session"
)

// Client connects to a running server's control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
	requestID  atomic.Uint64
}

// NewClient creates a control socket client.
func NewClient(cfg Config) *Client {
	return &Client{
		socketPath: cfg.SocketPath,
		timeout:    cfg.Timeout,
	}
}

// IsRunning checks if a server is accepting connections.
func (c *Client) IsRunning() bool {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Ping checks if the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var result string
	return c.call(ctx, MethodPing, nil, &result)
}

// Status fetches server and index statistics.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var result StatusResult
	if err := c.call(ctx, MethodStatus, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSessions fetches all live session snapshots.
func (c *Client) ListSessions(ctx context.Context) ([]*session.Snapshot, error) {
	var result ListSessionsResult
	if err := c.call(ctx, MethodListSessions, nil, &result); err != nil {
		return nil, err
	}
	return result.Sessions, nil
}

// GetSession fetches one session snapshot.
func (c *Client) GetSession(ctx context.Context, id string) (*session.Snapshot, error) {
	var result session.Snapshot
	if err := c.call(ctx, MethodGetSession, SessionParams{SessionID: id}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteSession discards a session on the server.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	var result string
	return c.call(ctx, MethodDeleteSession, SessionParams{SessionID: id}, &result)
}

// call runs one request/response exchange and decodes the result.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("connect to server: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID(),
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s failed: %s", method, resp.Error.Message)
	}

	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return json.Unmarshal(data, result)
}

func (c *Client) nextID() string {
	return fmt.Sprintf("%d", c.requestID.Add(1))
}
