package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismail180205/HippoMind/internal/cluster"
	"github.com/ismail180205/HippoMind/internal/config"
	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
)

func testManager(r *fakeRetriever, c *scriptedClusterer) *Manager {
	return NewManager(r, c, &fakePoints{}, &fakeQuestioner{}, config.SessionsConfig{
		InactivityTimeout: 30 * time.Minute,
		SweepInterval:     5 * time.Minute,
	}, 3)
}

func TestManager_CreateAndGet(t *testing.T) {
	r := &fakeRetriever{result: scoredResult("q", "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf")}
	c := &scriptedClusterer{outcomes: []*cluster.Outcome{
		clustersOf([]string{"a.pdf", "b.pdf", "c.pdf"}, []string{"d.pdf", "e.pdf", "f.pdf"}),
	}}
	m := testManager(r, c)

	created, err := m.Create(context.Background(), "q")
	require.NoError(t, err)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, StatusClusters, created.Status)

	got, err := m.Get(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, got.SessionID)
	assert.Equal(t, 1, m.Count())
}

func TestManager_GetUnknownSession(t *testing.T) {
	m := testManager(&fakeRetriever{}, &scriptedClusterer{})

	_, err := m.Get("nope")
	require.Error(t, err)
	assert.Equal(t, hmerrors.ErrCodeSessionNotFound, hmerrors.GetCode(err))
}

func TestManager_FailedCreateRegistersNothing(t *testing.T) {
	r := &fakeRetriever{retrieveErr: hmerrors.RetrievalUnavailable(nil)}
	m := testManager(r, &scriptedClusterer{})

	_, err := m.Create(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestManager_OperationsRouteToSession(t *testing.T) {
	r := &fakeRetriever{result: scoredResult("q", "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf")}
	c := &scriptedClusterer{outcomes: []*cluster.Outcome{
		clustersOf([]string{"a.pdf", "b.pdf", "c.pdf"}, []string{"d.pdf", "e.pdf", "f.pdf"}),
		{Exhausted: true, RemainingFiles: []string{"a.pdf", "b.pdf", "c.pdf"}},
	}}
	m := testManager(r, c)

	created, err := m.Create(context.Background(), "q")
	require.NoError(t, err)
	id := created.SessionID

	snap, err := m.Pick(context.Background(), id, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, snap.Status)

	snap, err = m.AskForHelp(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusFollowup, snap.Status)

	snap, err = m.Backtrack(context.Background(), id, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusClusters, snap.Status)

	// Every operation on an unknown id maps to the same error.
	_, err = m.Pick(context.Background(), "nope", 0)
	assert.Equal(t, hmerrors.ErrCodeSessionNotFound, hmerrors.GetCode(err))
	_, err = m.AnswerFollowup(context.Background(), "nope", "blue")
	assert.Equal(t, hmerrors.ErrCodeSessionNotFound, hmerrors.GetCode(err))
	_, err = m.Backtrack(context.Background(), "nope", 0)
	assert.Equal(t, hmerrors.ErrCodeSessionNotFound, hmerrors.GetCode(err))
}

func TestManager_DeleteIsIdempotent(t *testing.T) {
	r := &fakeRetriever{result: scoredResult("q", "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf")}
	c := &scriptedClusterer{outcomes: []*cluster.Outcome{
		clustersOf([]string{"a.pdf", "b.pdf", "c.pdf"}, []string{"d.pdf", "e.pdf", "f.pdf"}),
	}}
	m := testManager(r, c)

	created, err := m.Create(context.Background(), "q")
	require.NoError(t, err)

	m.Delete(created.SessionID)
	m.Delete(created.SessionID)
	m.Delete("never-existed")
	assert.Equal(t, 0, m.Count())

	_, err = m.Get(created.SessionID)
	assert.Equal(t, hmerrors.ErrCodeSessionNotFound, hmerrors.GetCode(err))
}

func TestManager_ListNewestFirst(t *testing.T) {
	r := &fakeRetriever{result: scoredResult("q", "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf")}
	c := &scriptedClusterer{outcomes: []*cluster.Outcome{
		clustersOf([]string{"a.pdf"}, []string{"b.pdf"}),
		clustersOf([]string{"a.pdf"}, []string{"b.pdf"}),
		clustersOf([]string{"a.pdf"}, []string{"b.pdf"}),
	}}
	m := testManager(r, c)

	var ids []string
	for i := 0; i < 3; i++ {
		snap, err := m.Create(context.Background(), "q")
		require.NoError(t, err)
		ids = append(ids, snap.SessionID)
		time.Sleep(time.Millisecond)
	}

	listed := m.List()
	require.Len(t, listed, 3)
	assert.Equal(t, ids[2], listed[0].SessionID)
	assert.Equal(t, ids[0], listed[2].SessionID)
}

func TestManager_SweepExpiredDropsIdleSessions(t *testing.T) {
	r := &fakeRetriever{result: scoredResult("q", "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf")}
	c := &scriptedClusterer{outcomes: []*cluster.Outcome{
		clustersOf([]string{"a.pdf"}, []string{"b.pdf"}),
		clustersOf([]string{"a.pdf"}, []string{"b.pdf"}),
	}}
	m := testManager(r, c)

	stale, err := m.Create(context.Background(), "q")
	require.NoError(t, err)
	fresh, err := m.Create(context.Background(), "q")
	require.NoError(t, err)

	m.mu.Lock()
	m.sessions[stale.SessionID].lastActive.Store(time.Now().Add(-time.Hour).UnixNano())
	m.mu.Unlock()

	m.sweepExpired()

	_, err = m.Get(stale.SessionID)
	assert.Equal(t, hmerrors.ErrCodeSessionNotFound, hmerrors.GetCode(err))
	_, err = m.Get(fresh.SessionID)
	assert.NoError(t, err)
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := testManager(&fakeRetriever{}, &scriptedClusterer{})
	m.StartSweeper()
	m.Stop()
	m.Stop()
}

// Readers must always observe a snapshot whose status-specific fields
// match its status, no matter how mutations interleave.
func TestManager_ConcurrentReadsSeeConsistentSnapshots(t *testing.T) {
	r := &fakeRetriever{result: scoredResult("q", "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf")}
	c := &scriptedClusterer{outcomes: []*cluster.Outcome{
		clustersOf([]string{"a.pdf", "b.pdf", "c.pdf"}, []string{"d.pdf", "e.pdf", "f.pdf"}),
	}}
	m := testManager(r, c)

	created, err := m.Create(context.Background(), "q")
	require.NoError(t, err)
	id := created.SessionID

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap, err := m.Get(id)
				if err != nil {
					t.Error(err)
					return
				}
				switch snap.Status {
				case StatusClusters:
					if len(snap.Clusters) == 0 || snap.PendingQuestion != "" {
						t.Errorf("inconsistent clusters snapshot: %+v", snap)
						return
					}
				case StatusExhausted:
					if len(snap.Clusters) != 0 || snap.PendingQuestion != "" {
						t.Errorf("inconsistent exhausted snapshot: %+v", snap)
						return
					}
				}
			}
		}()
	}

	// Mutate in a loop: pick descends to exhaustion, backtrack returns
	// to the cluster choice.
	for i := 0; i < 50; i++ {
		_, err := m.Pick(context.Background(), id, 0)
		require.NoError(t, err)
		_, err = m.Backtrack(context.Background(), id, 0)
		require.NoError(t, err)
	}

	close(done)
	wg.Wait()
}
