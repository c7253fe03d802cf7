package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ismail180205/HippoMind/internal/config"
	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
)

// Manager is the session registry. Sessions are independent: operations
// on different sessions run fully in parallel, while each session's own
// mutex serializes its mutations.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	deps    deps
	timeout time.Duration
	sweep   time.Duration
	logger  *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session registry.
func NewManager(retriever Retriever, clusterer Clusterer, points PointLoader, questioner Questioner, cfg config.SessionsConfig, maxFollowups int) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		deps: deps{
			retriever:    retriever,
			clusterer:    clusterer,
			points:       points,
			questioner:   questioner,
			maxFollowups: maxFollowups,
		},
		timeout: cfg.InactivityTimeout,
		sweep:   cfg.SweepInterval,
		logger:  slog.Default().With("component", "session-manager"),
		done:    make(chan struct{}),
	}
}

// Create starts a new session for the query and returns its snapshot.
func (m *Manager) Create(ctx context.Context, query string) (*Snapshot, error) {
	id := uuid.NewString()

	s, err := newSession(ctx, id, query, m.deps)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session created",
		slog.String("session_id", id),
		slog.String("status", string(s.Snapshot().Status)))

	return s.Snapshot(), nil
}

// Get returns the latest committed snapshot for a session.
func (m *Manager) Get(id string) (*Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Pick narrows a session to the chosen cluster.
func (m *Manager) Pick(ctx context.Context, id string, clusterID int) (*Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.Pick(ctx, clusterID)
}

// AskForHelp switches a session to follow-up mode.
func (m *Manager) AskForHelp(ctx context.Context, id string) (*Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.AskForHelp(ctx)
}

// AnswerFollowup processes a follow-up answer.
func (m *Manager) AnswerFollowup(ctx context.Context, id, answer string) (*Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.AnswerFollowup(ctx, answer)
}

// Backtrack restores a session to a previous navigation node.
func (m *Manager) Backtrack(ctx context.Context, id string, nodeID int) (*Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.Backtrack(ctx, nodeID)
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.logger.Info("session deleted", slog.String("session_id", id))
	}
}

// List returns snapshots of all live sessions, newest first.
func (m *Manager) List() []*Snapshot {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	snaps := make([]*Snapshot, len(sessions))
	for i, s := range sessions {
		snaps[i] = s.Snapshot()
	}
	return snaps
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper reaps inactive sessions until Stop is called.
func (m *Manager) StartSweeper() {
	go func() {
		ticker := time.NewTicker(m.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				m.sweepExpired()
			}
		}
	}()
}

// Stop halts the sweeper.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
}

// sweepExpired drops sessions idle past the inactivity timeout.
func (m *Manager) sweepExpired() {
	cutoff := time.Now().Add(-m.timeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			m.logger.Info("session expired", slog.String("session_id", id))
		}
	}
}

func (m *Manager) lookup(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, hmerrors.SessionNotFound(id)
	}
	return s, nil
}
