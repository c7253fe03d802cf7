package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ismail180205/HippoMind/internal/session"
	"github.com/ismail180205/HippoMind/internal/store"
	"github.com/ismail180205/HippoMind/pkg/version"
)

// SessionRegistry is the read/delete slice of the session manager the
// control socket exposes.
type SessionRegistry interface {
	List() []*session.Snapshot
	Get(id string) (*session.Snapshot, error)
	Delete(id string)
	Count() int
}

// StatsProvider reports index statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (*store.Stats, error)
}

// Server listens on a Unix socket and answers admin RPCs.
type Server struct {
	socketPath string
	pidFile    *PIDFile
	sessions   SessionRegistry
	stats      StatsProvider
	logger     *slog.Logger
	started    time.Time

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer creates a control socket server.
func NewServer(cfg Config, sessions SessionRegistry, stats StatsProvider) *Server {
	return &Server{
		socketPath: cfg.SocketPath,
		pidFile:    NewPIDFile(cfg.PIDPath),
		sessions:   sessions,
		stats:      stats,
		logger:     slog.Default().With("component", "control-socket"),
	}
}

// ListenAndServe starts the server and blocks until the context is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.started = time.Now()

	if err := s.pidFile.Write(); err != nil {
		s.logger.Warn("pid file write failed", slog.String("error", err.Error()))
	}

	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
		_ = s.pidFile.Remove()
	}()

	s.logger.Info("control socket listening", slog.String("socket", s.socketPath))

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			s.logger.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.wg.Wait()
	return ctx.Err()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		s.logger.Warn("set deadline failed", slog.String("error", err.Error()))
	}

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var req Request
	if err := decoder.Decode(&req); err != nil {
		_ = encoder.Encode(NewErrorResponse("", ErrCodeParseError, "failed to parse request"))
		return
	}

	_ = encoder.Encode(s.handleRequest(ctx, req))
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case MethodPing:
		return NewSuccessResponse(req.ID, "pong")

	case MethodStatus:
		result := StatusResult{
			Version:       version.Version,
			PID:           os.Getpid(),
			UptimeSeconds: int64(time.Since(s.started).Seconds()),
			Sessions:      s.sessions.Count(),
		}
		if s.stats != nil {
			stats, err := s.stats.Stats(ctx)
			if err != nil {
				return NewErrorResponse(req.ID, ErrCodeStatsFailed, err.Error())
			}
			result.Index = stats
		}
		return NewSuccessResponse(req.ID, result)

	case MethodListSessions:
		return NewSuccessResponse(req.ID, ListSessionsResult{Sessions: s.sessions.List()})

	case MethodGetSession:
		params, err := sessionParams(req)
		if err != nil {
			return NewErrorResponse(req.ID, ErrCodeInvalidParams, err.Error())
		}
		snap, err := s.sessions.Get(params.SessionID)
		if err != nil {
			return NewErrorResponse(req.ID, ErrCodeSessionNotFound, err.Error())
		}
		return NewSuccessResponse(req.ID, snap)

	case MethodDeleteSession:
		params, err := sessionParams(req)
		if err != nil {
			return NewErrorResponse(req.ID, ErrCodeInvalidParams, err.Error())
		}
		s.sessions.Delete(params.SessionID)
		return NewSuccessResponse(req.ID, "deleted")

	default:
		return NewErrorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

// sessionParams re-decodes the loosely typed params into SessionParams.
func sessionParams(req Request) (SessionParams, error) {
	var params SessionParams
	data, err := json.Marshal(req.Params)
	if err != nil {
		return params, fmt.Errorf("invalid params")
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("invalid params")
	}
	if params.SessionID == "" {
		return params, fmt.Errorf("session_id is required")
	}
	return params, nil
}
