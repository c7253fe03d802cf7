package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVector(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1.0
	return v
}

func TestDenseStore_AddAndSearch(t *testing.T) {
	s, err := NewDenseStore(DenseConfig{Dimensions: 8})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	ids := []string{"a:content:0", "b:content:0", "c:content:0"}
	vectors := [][]float32{
		testVector(8, 0),
		testVector(8, 1),
		testVector(8, 2),
	}
	require.NoError(t, s.Add(ctx, ids, vectors))
	assert.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, testVector(8, 1), 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "b:content:0", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestDenseStore_DimensionMismatch(t *testing.T) {
	s, err := NewDenseStore(DenseConfig{Dimensions: 8})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	err = s.Add(ctx, []string{"x"}, [][]float32{testVector(4, 0)})
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = s.Search(ctx, testVector(4, 0), 1)
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestDenseStore_EmptySearch(t *testing.T) {
	s, err := NewDenseStore(DenseConfig{Dimensions: 8})
	require.NoError(t, err)
	defer s.Close()

	results, err := s.Search(context.Background(), testVector(8, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDenseStore_VectorLookup(t *testing.T) {
	s, err := NewDenseStore(DenseConfig{Dimensions: 8})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{testVector(8, 3)}))

	v, ok := s.Vector("a")
	require.True(t, ok)
	assert.InDelta(t, 1.0, float64(v[3]), 1e-5)

	_, ok = s.Vector("missing")
	assert.False(t, ok)
}

func TestDenseStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dense.hnsw")

	s, err := NewDenseStore(DenseConfig{Dimensions: 8})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{testVector(8, 0), testVector(8, 1)}))
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Close())

	loaded, err := NewDenseStore(DenseConfig{Dimensions: 8})
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	results, err := loaded.Search(ctx, testVector(8, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}
