package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismail180205/HippoMind/internal/cluster"
	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
	"github.com/ismail180205/HippoMind/internal/session"
)

// scriptedDriver walks a fixed sequence of snapshots.
type scriptedDriver struct {
	steps   []*session.Snapshot
	pos     int
	deleted []string
	opErr   error
}

func (d *scriptedDriver) next() (*session.Snapshot, error) {
	if d.opErr != nil {
		err := d.opErr
		d.opErr = nil
		return nil, err
	}
	snap := d.steps[d.pos]
	if d.pos < len(d.steps)-1 {
		d.pos++
	}
	return snap, nil
}

func (d *scriptedDriver) Create(ctx context.Context, query string) (*session.Snapshot, error) {
	return d.next()
}

func (d *scriptedDriver) Pick(ctx context.Context, id string, clusterID int) (*session.Snapshot, error) {
	return d.next()
}

func (d *scriptedDriver) AskForHelp(ctx context.Context, id string) (*session.Snapshot, error) {
	return d.next()
}

func (d *scriptedDriver) AnswerFollowup(ctx context.Context, id, answer string) (*session.Snapshot, error) {
	return d.next()
}

func (d *scriptedDriver) Backtrack(ctx context.Context, id string, nodeID int) (*session.Snapshot, error) {
	return d.next()
}

func (d *scriptedDriver) Delete(id string) {
	d.deleted = append(d.deleted, id)
}

func clustersSnap() *session.Snapshot {
	return &session.Snapshot{
		SessionID: "s1",
		Status:    session.StatusClusters,
		Round:     0,
		Files:     []string{"a.pdf", "b.pdf", "c.pdf"},
		Clusters: []cluster.Cluster{
			{ID: 0, Label: "Flood reports", Files: []string{"a.pdf", "b.pdf"}},
			{ID: 1, Label: "Methodology notes", Files: []string{"c.pdf"}},
		},
	}
}

func foundSnap() *session.Snapshot {
	return &session.Snapshot{
		SessionID:    "s1",
		Status:       session.StatusFound,
		Round:        1,
		Files:        []string{"c.pdf"},
		FoundFile:    "c.pdf",
		FoundSummary: "Methodology note.",
	}
}

func TestRunPlain_PickToFound(t *testing.T) {
	driver := &scriptedDriver{steps: []*session.Snapshot{clustersSnap(), foundSnap()}}
	var out bytes.Buffer

	err := RunPlain(context.Background(), driver, "methodology", Config{
		Input:  strings.NewReader("2\n"),
		Output: &out,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "1. Flood reports (2 files)")
	assert.Contains(t, out.String(), "Found: c.pdf")
	assert.Contains(t, out.String(), "Methodology note.")
	assert.Equal(t, []string{"s1"}, driver.deleted)
}

func TestRunPlain_QuitDeletesSession(t *testing.T) {
	driver := &scriptedDriver{steps: []*session.Snapshot{clustersSnap()}}
	var out bytes.Buffer

	err := RunPlain(context.Background(), driver, "q", Config{
		Input:  strings.NewReader("q\n"),
		Output: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, driver.deleted)
}

func TestRunPlain_InvalidInputReprompts(t *testing.T) {
	driver := &scriptedDriver{steps: []*session.Snapshot{clustersSnap(), foundSnap()}}
	var out bytes.Buffer

	err := RunPlain(context.Background(), driver, "x", Config{
		Input:  strings.NewReader("9\n1\n"),
		Output: &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "pick 1-2")
}

func TestDispatch_FollowupAnswers(t *testing.T) {
	followup := &session.Snapshot{
		SessionID:       "s1",
		Status:          session.StatusFollowup,
		PendingQuestion: "Color of the cover?",
		MaxFollowups:    3,
	}
	driver := &scriptedDriver{steps: []*session.Snapshot{foundSnap()}}

	next, err := dispatch(context.Background(), driver, followup, "blue")
	require.NoError(t, err)
	assert.Equal(t, session.StatusFound, next.Status)
}

func TestDispatch_BacktrackParsesNodeID(t *testing.T) {
	driver := &scriptedDriver{steps: []*session.Snapshot{clustersSnap()}}

	next, err := dispatch(context.Background(), driver, clustersSnap(), "b 0")
	require.NoError(t, err)
	assert.NotNil(t, next)

	_, err = dispatch(context.Background(), driver, clustersSnap(), "b x")
	require.Error(t, err)
}

func TestDispatch_OperationErrorSurfaces(t *testing.T) {
	driver := &scriptedDriver{
		steps: []*session.Snapshot{clustersSnap()},
		opErr: hmerrors.InvalidTransition("cannot pick"),
	}

	_, err := dispatch(context.Background(), driver, clustersSnap(), "1")
	require.Error(t, err)
	assert.Equal(t, hmerrors.ErrCodeInvalidTransition, hmerrors.GetCode(err))
}
