package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, dir string) {
	t.Helper()

	b, err := NewBuilder(dir, 8)
	require.NoError(t, err)

	ctx := context.Background()
	chunks := []struct {
		rec ChunkRecord
		hot int
	}{
		{ChunkRecord{ID: "flood:title:0", File: "flood_report.pdf", Kind: ChunkKindTitle, Text: "Somalia flood exposure"}, 0},
		{ChunkRecord{ID: "health:title:0", File: "health_survey.pdf", Kind: ChunkKindTitle, Text: "health cluster survey"}, 1},
	}
	for _, c := range chunks {
		rec := c.rec
		require.NoError(t, b.AddChunk(ctx, &rec, testVector(8, c.hot)))
	}
	require.NoError(t, b.AddFileSummary(ctx, "flood_report.pdf", "flood exposure methodology"))
	require.NoError(t, b.Commit())
	require.NoError(t, b.Close())
}

func TestCatalog_OpenAndQuery(t *testing.T) {
	dir := t.TempDir()
	buildTestIndex(t, dir)

	c, err := Open(dir, 8)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()

	dense, err := c.QueryDense(ctx, testVector(8, 0), 2)
	require.NoError(t, err)
	require.NotEmpty(t, dense)
	assert.Equal(t, "flood:title:0", dense[0].ID)

	sparse, err := c.QuerySparse(ctx, "flood exposure", 10)
	require.NoError(t, err)
	require.NotEmpty(t, sparse)
	assert.Equal(t, "flood:title:0", sparse[0].DocID)

	recs, err := c.GetChunks(ctx, []string{"health:title:0"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "health_survey.pdf", recs[0].File)

	_, ok := c.VectorOf("flood:title:0")
	assert.True(t, ok)

	summary, err := c.FileSummary(ctx, "flood_report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "flood exposure methodology", summary)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.DenseVectors)
	assert.Equal(t, uint64(2), stats.SparseDocs)
}

func TestCatalog_OpenMissingIndexFails(t *testing.T) {
	_, err := Open(t.TempDir(), 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_201_INDEX_NOT_FOUND")
}

func TestCatalog_BuilderHoldsExclusiveLock(t *testing.T) {
	dir := t.TempDir()

	b, err := NewBuilder(dir, 8)
	require.NoError(t, err)
	defer b.Close()

	_, err = NewBuilder(dir, 8)
	assert.Error(t, err)
}
