package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismail180205/HippoMind/internal/config"
	"github.com/ismail180205/HippoMind/internal/embed"
	"github.com/ismail180205/HippoMind/internal/llm/mock"
	"github.com/ismail180205/HippoMind/internal/store"
)

// fakeCatalog serves fixed rankings and chunk records.
type fakeCatalog struct {
	dense     []*store.DenseResult
	sparse    []*store.SparseResult
	records   map[string]*store.ChunkRecord
	vectors   map[string][]float32
	summaries map[string]string
	denseErr  error
	sparseErr error
}

func (f *fakeCatalog) QueryDense(ctx context.Context, query []float32, k int) ([]*store.DenseResult, error) {
	return f.dense, f.denseErr
}

func (f *fakeCatalog) QuerySparse(ctx context.Context, query string, limit int) ([]*store.SparseResult, error) {
	return f.sparse, f.sparseErr
}

func (f *fakeCatalog) GetChunks(ctx context.Context, ids []string) ([]*store.ChunkRecord, error) {
	var out []*store.ChunkRecord
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeCatalog) VectorOf(id string) ([]float32, bool) {
	v, ok := f.vectors[id]
	return v, ok
}

func (f *fakeCatalog) FileSummary(ctx context.Context, file string) (string, error) {
	return f.summaries[file], nil
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		TopK:                 100,
		DenseWeight:          0.7,
		SparseWeight:         0.3,
		RRFConstant:          60,
		DirectMatchThreshold: 0.85,
	}
}

func chunkRec(id, file string) *store.ChunkRecord {
	return &store.ChunkRecord{ID: id, File: file, Kind: store.ChunkKindContent, Text: "text"}
}

func TestRetrieve_FusesAndRanks(t *testing.T) {
	catalog := &fakeCatalog{
		dense: []*store.DenseResult{
			{ID: "flood:1", Score: 0.9},
			{ID: "health:1", Score: 0.5},
		},
		sparse: []*store.SparseResult{
			{DocID: "flood:1", Score: 3.2},
			{DocID: "drought:1", Score: 1.1},
		},
		records: map[string]*store.ChunkRecord{
			"flood:1":   chunkRec("flood:1", "flood.pdf"),
			"health:1":  chunkRec("health:1", "health.pdf"),
			"drought:1": chunkRec("drought:1", "drought.pdf"),
		},
	}

	e := NewEngine(catalog, embed.NewStaticEmbedder(32), mock.NewGenerator(), testSearchConfig())

	res, err := e.Retrieve(context.Background(), "flood report")
	require.NoError(t, err)

	assert.Equal(t, "flood report", res.Query)
	assert.Equal(t, "expanded: flood report", res.ExpandedQuery)
	require.NotEmpty(t, res.Files)
	// flood.pdf appears in both lists at rank 1, so it wins.
	assert.Equal(t, "flood.pdf", res.Files[0].File)
	assert.InDelta(t, 1.0, res.Files[0].Score, 1e-9)
	assert.Len(t, res.Files, 3)
	assert.Contains(t, res.ChunksOf, "flood.pdf")
}

func TestRetrieve_Deterministic(t *testing.T) {
	catalog := &fakeCatalog{
		dense: []*store.DenseResult{
			{ID: "a:1"}, {ID: "b:1"}, {ID: "c:1"},
		},
		sparse: []*store.SparseResult{
			{DocID: "c:1"}, {DocID: "a:1"},
		},
		records: map[string]*store.ChunkRecord{
			"a:1": chunkRec("a:1", "a.pdf"),
			"b:1": chunkRec("b:1", "b.pdf"),
			"c:1": chunkRec("c:1", "c.pdf"),
		},
	}
	e := NewEngine(catalog, embed.NewStaticEmbedder(32), mock.NewGenerator(), testSearchConfig())

	first, err := e.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	second, err := e.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
}

func TestRetrieve_EmptyQueryRejected(t *testing.T) {
	e := NewEngine(&fakeCatalog{}, embed.NewStaticEmbedder(32), mock.NewGenerator(), testSearchConfig())

	_, err := e.Retrieve(context.Background(), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_402")
}

func TestRetrieve_ExpansionFailureFallsBackToRawQuery(t *testing.T) {
	gen := mock.NewGenerator()
	gen.ExpandFunc = func(ctx context.Context, query string) (string, error) {
		return "", errors.New("llm down")
	}
	catalog := &fakeCatalog{
		dense:   []*store.DenseResult{{ID: "a:1"}},
		records: map[string]*store.ChunkRecord{"a:1": chunkRec("a:1", "a.pdf")},
	}
	e := NewEngine(catalog, embed.NewStaticEmbedder(32), gen, testSearchConfig())

	res, err := e.Retrieve(context.Background(), "flood note")
	require.NoError(t, err)
	assert.Equal(t, "flood note", res.ExpandedQuery)
}

func TestRetrieve_ChannelFailureSurfaces(t *testing.T) {
	catalog := &fakeCatalog{denseErr: errors.New("store gone")}
	e := NewEngine(catalog, embed.NewStaticEmbedder(32), mock.NewGenerator(), testSearchConfig())

	_, err := e.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_301")
}

func TestRetrieve_DirectMatchOnSingleCandidate(t *testing.T) {
	catalog := &fakeCatalog{
		dense:   []*store.DenseResult{{ID: "only:1"}},
		sparse:  []*store.SparseResult{{DocID: "only:1"}},
		records: map[string]*store.ChunkRecord{"only:1": chunkRec("only:1", "only.pdf")},
	}
	e := NewEngine(catalog, embed.NewStaticEmbedder(32), mock.NewGenerator(), testSearchConfig())

	res, err := e.Retrieve(context.Background(), "the only file")
	require.NoError(t, err)
	require.NotNil(t, res.DirectMatch)
	assert.Equal(t, "only.pdf", res.DirectMatch.File)
}

func TestRescore_KeepsTopHalfNeverGrows(t *testing.T) {
	embedder := embed.NewStaticEmbedder(64)
	ctx := context.Background()

	answer := "it was about flooding along the river"

	// Pin the winner: flood.pdf's chunk vector is the answer embedding
	// itself, so its cosine is exactly 1 regardless of how the other
	// texts happen to hash.
	answerVec, err := embedder.Embed(ctx, answer)
	require.NoError(t, err)

	texts := map[string]string{
		"health:1":  "measles vaccination campaign",
		"drought:1": "drought impact on livestock",
		"idp:1":     "displacement site assessment",
		"cash:1":    "cash transfer programme monitoring",
		"edu:1":     "school enrollment statistics",
	}
	vectors := map[string][]float32{"flood:1": answerVec}
	for id, text := range texts {
		v, err := embedder.Embed(ctx, text)
		require.NoError(t, err)
		vectors[id] = v
	}

	catalog := &fakeCatalog{vectors: vectors}
	e := NewEngine(catalog, embedder, mock.NewGenerator(), testSearchConfig())

	chunksOf := map[string][]string{
		"flood.pdf":   {"flood:1"},
		"health.pdf":  {"health:1"},
		"drought.pdf": {"drought:1"},
		"idp.pdf":     {"idp:1"},
		"cash.pdf":    {"cash:1"},
		"edu.pdf":     {"edu:1"},
	}

	kept, err := e.Rescore(ctx, answer, chunksOf)
	require.NoError(t, err)

	assert.Len(t, kept, 3) // top half of 6, never more
	assert.Equal(t, "flood.pdf", kept[0].File)
	assert.InDelta(t, 1.0, kept[0].Score, 1e-9)
	for i := 1; i < len(kept); i++ {
		assert.Contains(t, chunksOf, kept[i].File)
		assert.LessOrEqual(t, kept[i].Score, kept[i-1].Score)
	}
}

func TestRescore_SmallSetsKeptWhole(t *testing.T) {
	embedder := embed.NewStaticEmbedder(64)
	ctx := context.Background()

	v, err := embedder.Embed(ctx, "alpha")
	require.NoError(t, err)

	catalog := &fakeCatalog{vectors: map[string][]float32{"a:1": v, "b:1": v, "c:1": v, "d:1": v}}
	e := NewEngine(catalog, embedder, mock.NewGenerator(), testSearchConfig())

	chunksOf := map[string][]string{
		"a.pdf": {"a:1"}, "b.pdf": {"b:1"}, "c.pdf": {"c:1"}, "d.pdf": {"d:1"},
	}

	// Top half of 4 would be 2, below the floor of 3, so all survive.
	kept, err := e.Rescore(ctx, "anything", chunksOf)
	require.NoError(t, err)
	assert.Len(t, kept, 4)
}

func TestFileSummaries(t *testing.T) {
	catalog := &fakeCatalog{summaries: map[string]string{"a.pdf": "summary a"}}
	e := NewEngine(catalog, embed.NewStaticEmbedder(32), mock.NewGenerator(), testSearchConfig())

	got, err := e.FileSummaries(context.Background(), []string{"a.pdf", "b.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "summary a", got["a.pdf"])
	assert.Empty(t, got["b.pdf"])
}

func TestRetrieve_DirectMatchCarriesExcerpt(t *testing.T) {
	rec := chunkRec("only:1", "only.pdf")
	rec.Text = "Flood exposure methodology for riverine basins."
	catalog := &fakeCatalog{
		dense:   []*store.DenseResult{{ID: "only:1"}},
		sparse:  []*store.SparseResult{{DocID: "only:1"}},
		records: map[string]*store.ChunkRecord{"only:1": rec},
	}
	e := NewEngine(catalog, embed.NewStaticEmbedder(32), mock.NewGenerator(), testSearchConfig())

	res, err := e.Retrieve(context.Background(), "flood methodology")
	require.NoError(t, err)
	require.NotNil(t, res.DirectMatch)
	assert.Equal(t, "Flood exposure methodology for riverine basins.", res.DirectExcerpt)
}

func TestLoadPoints_PairsTextWithVectors(t *testing.T) {
	catalog := &fakeCatalog{
		records: map[string]*store.ChunkRecord{
			"a:1": chunkRec("a:1", "a.pdf"),
			"a:2": chunkRec("a:2", "a.pdf"),
			"b:1": chunkRec("b:1", "b.pdf"),
		},
		vectors: map[string][]float32{
			"a:1": {1, 0},
			"b:1": {0, 1},
			// a:2 has no vector and must be skipped.
		},
	}
	e := NewEngine(catalog, embed.NewStaticEmbedder(32), mock.NewGenerator(), testSearchConfig())

	points, err := e.LoadPoints(context.Background(), map[string][]string{
		"a.pdf": {"a:1", "a:2"},
		"b.pdf": {"b:1"},
	})
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, "a:1", points[0].ID)
	assert.Equal(t, "a.pdf", points[0].File)
	assert.Equal(t, []float32{1, 0}, points[0].Vector)
	assert.Equal(t, "b:1", points[1].ID)
}

func TestBestExcerpt_TruncatesOnRuneBoundary(t *testing.T) {
	rec := chunkRec("long:1", "long.pdf")
	rec.Text = strings.Repeat("a", excerptLimit-1) + "é and more"

	got := bestExcerpt("long.pdf", map[string]float64{"long:1": 1.0}, []*store.ChunkRecord{rec})

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", excerptLimit-1)+"…", got)
}
