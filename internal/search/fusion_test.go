package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseChunks_WeightedContributions(t *testing.T) {
	f := NewFuser(Weights{Dense: 0.7, Sparse: 0.3}, 60)

	scores := f.FuseChunks(
		[]string{"a", "b"},
		[]string{"b", "c"},
	)

	// a: dense rank 1 only.
	assert.InDelta(t, 0.7/61.0, scores["a"], 1e-9)
	// b: dense rank 2 plus sparse rank 1.
	assert.InDelta(t, 0.7/62.0+0.3/61.0, scores["b"], 1e-9)
	// c: sparse rank 2 only, absence from dense contributes nothing.
	assert.InDelta(t, 0.3/62.0, scores["c"], 1e-9)
}

func TestFuseChunks_BothListsNeverScoreLowerThanOne(t *testing.T) {
	f := NewFuser(DefaultWeights(), 60)

	both := f.FuseChunks([]string{"x"}, []string{"x"})
	denseOnly := f.FuseChunks([]string{"x"}, nil)
	sparseOnly := f.FuseChunks(nil, []string{"x"})

	assert.GreaterOrEqual(t, both["x"], denseOnly["x"])
	assert.GreaterOrEqual(t, both["x"], sparseOnly["x"])
}

func TestFuseChunks_Deterministic(t *testing.T) {
	f := NewFuser(DefaultWeights(), 60)
	dense := []string{"a", "b", "c"}
	sparse := []string{"c", "a"}

	first := f.FuseChunks(dense, sparse)
	second := f.FuseChunks(dense, sparse)
	assert.Equal(t, first, second)
}

func TestAggregateByFile_TakesMaxChunkScore(t *testing.T) {
	chunkScores := map[string]float64{
		"a:1": 0.5,
		"a:2": 0.9,
		"b:1": 0.7,
	}
	fileOf := map[string]string{
		"a:1": "a.pdf",
		"a:2": "a.pdf",
		"b:1": "b.pdf",
	}

	files := AggregateByFile(chunkScores, fileOf)
	require.Len(t, files, 2)

	// a.pdf scored 0.9 (max of its chunks), normalized to 1.0.
	assert.Equal(t, "a.pdf", files[0].File)
	assert.InDelta(t, 1.0, files[0].Score, 1e-9)
	assert.Equal(t, "b.pdf", files[1].File)
	assert.InDelta(t, 0.7/0.9, files[1].Score, 1e-9)
}

func TestAggregateByFile_TiesBrokenByNameAscending(t *testing.T) {
	chunkScores := map[string]float64{
		"z:1": 0.5,
		"a:1": 0.5,
		"m:1": 0.5,
	}
	fileOf := map[string]string{
		"z:1": "zebra.pdf",
		"a:1": "alpha.pdf",
		"m:1": "mango.pdf",
	}

	files := AggregateByFile(chunkScores, fileOf)
	require.Len(t, files, 3)
	assert.Equal(t, "alpha.pdf", files[0].File)
	assert.Equal(t, "mango.pdf", files[1].File)
	assert.Equal(t, "zebra.pdf", files[2].File)
}

func TestAggregateByFile_UnresolvedChunksSkipped(t *testing.T) {
	chunkScores := map[string]float64{"known": 0.5, "orphan": 0.9}
	fileOf := map[string]string{"known": "a.pdf"}

	files := AggregateByFile(chunkScores, fileOf)
	require.Len(t, files, 1)
	assert.Equal(t, "a.pdf", files[0].File)
}

func TestAggregateByFile_Empty(t *testing.T) {
	assert.Empty(t, AggregateByFile(nil, nil))
}

func TestDirectMatch(t *testing.T) {
	tests := []struct {
		name  string
		files []FileScore
		want  string
	}{
		{
			name:  "clear winner",
			files: []FileScore{{File: "a.pdf", Score: 1.0}, {File: "b.pdf", Score: 0.4}},
			want:  "a.pdf",
		},
		{
			name:  "single candidate",
			files: []FileScore{{File: "only.pdf", Score: 1.0}},
			want:  "only.pdf",
		},
		{
			name:  "runner-up above threshold is ambiguous",
			files: []FileScore{{File: "a.pdf", Score: 1.0}, {File: "b.pdf", Score: 0.9}},
			want:  "",
		},
		{
			name:  "empty",
			files: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := directMatch(tt.files, 0.85)
			if tt.want == "" {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.want, got.File)
			}
		})
	}
}
