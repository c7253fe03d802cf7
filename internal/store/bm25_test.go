package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSparseStore(t *testing.T) *SparseStore {
	t.Helper()
	s, err := NewSparseStore("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSparseStore_IndexAndSearch(t *testing.T) {
	s := newTestSparseStore(t)
	ctx := context.Background()

	chunks := []*ChunkRecord{
		{ID: "flood:title:0", File: "flood_report.pdf", Kind: ChunkKindTitle, Text: "Somalia flood exposure methodology note"},
		{ID: "health:title:0", File: "health_survey.pdf", Kind: ChunkKindTitle, Text: "Nutrition and health cluster survey"},
		{ID: "flood:content:0", File: "flood_report.pdf", Kind: ChunkKindContent, Text: "riverine flooding affected districts along the Shabelle"},
	}
	require.NoError(t, s.Index(ctx, chunks))

	results, err := s.Search(ctx, "flood exposure", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "flood:title:0", results[0].DocID)
	assert.Greater(t, results[0].Score, 0.0)
	assert.NotEmpty(t, results[0].MatchedTerms)
}

func TestSparseStore_EmptyQueryReturnsNothing(t *testing.T) {
	s := newTestSparseStore(t)

	results, err := s.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSparseStore_Count(t *testing.T) {
	s := newTestSparseStore(t)
	ctx := context.Background()

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	require.NoError(t, s.Index(ctx, []*ChunkRecord{
		{ID: "a", File: "a.pdf", Kind: ChunkKindContent, Text: "alpha"},
		{ID: "b", File: "b.pdf", Kind: ChunkKindContent, Text: "beta"},
	}))

	n, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestSparseStore_ClosedFails(t *testing.T) {
	s, err := NewSparseStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
}
