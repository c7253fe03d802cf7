package cluster

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismail180205/HippoMind/internal/config"
	"github.com/ismail180205/HippoMind/internal/llm/mock"
)

func testClusterConfig() config.ClusterConfig {
	return config.ClusterConfig{
		MinClusterSize:         2,
		MaxClusters:            4,
		Epsilon:                0.35,
		ExhaustedFileThreshold: 3,
	}
}

// oneHot returns a unit vector along the given axis.
func oneHot(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis] = 1
	return v
}

// groupPoints makes count chunks for distinct files sharing one axis.
func groupPoints(prefix string, axis, count int) []Point {
	points := make([]Point, count)
	for i := 0; i < count; i++ {
		points[i] = Point{
			ID:     fmt.Sprintf("%s:%d", prefix, i),
			File:   fmt.Sprintf("%s_%d.pdf", prefix, i),
			Text:   prefix + " chunk text",
			Vector: oneHot(8, axis),
		}
	}
	return points
}

func TestCluster_SeparatesTwoGroups(t *testing.T) {
	c := New(testClusterConfig(), mock.NewGenerator())

	points := append(groupPoints("flood", 0, 3), groupPoints("health", 1, 3)...)

	outcome, err := c.Cluster(context.Background(), points)
	require.NoError(t, err)
	require.False(t, outcome.Exhausted)
	require.Len(t, outcome.Clusters, 2)

	assert.Equal(t, 0, outcome.Clusters[0].ID)
	assert.Equal(t, 1, outcome.Clusters[1].ID)
	assert.Len(t, outcome.Clusters[0].Files, 3)
	assert.Len(t, outcome.Clusters[1].Files, 3)
	assert.Equal(t, 3, outcome.Clusters[0].Size)
	assert.NotEmpty(t, outcome.Clusters[0].Label)
}

func TestCluster_FewFilesExhausted(t *testing.T) {
	c := New(testClusterConfig(), mock.NewGenerator())

	points := []Point{
		{ID: "a:1", File: "a.pdf", Vector: oneHot(8, 0)},
		{ID: "b:1", File: "b.pdf", Vector: oneHot(8, 1)},
	}

	outcome, err := c.Cluster(context.Background(), points)
	require.NoError(t, err)
	assert.True(t, outcome.Exhausted)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, outcome.RemainingFiles)
}

func TestCluster_SingleClusterCoveringAllExhausted(t *testing.T) {
	c := New(testClusterConfig(), mock.NewGenerator())

	// Six files, all chunks identical: one cluster covering everything.
	points := groupPoints("same", 0, 6)

	outcome, err := c.Cluster(context.Background(), points)
	require.NoError(t, err)
	assert.True(t, outcome.Exhausted)
	assert.Len(t, outcome.RemainingFiles, 6)
}

func TestCluster_NoDenseRegionsExhausted(t *testing.T) {
	c := New(testClusterConfig(), mock.NewGenerator())

	// Every point on its own axis: nothing reaches minPts density.
	points := make([]Point, 5)
	for i := range points {
		points[i] = Point{
			ID:     fmt.Sprintf("p:%d", i),
			File:   fmt.Sprintf("f%d.pdf", i),
			Vector: oneHot(8, i),
		}
	}

	outcome, err := c.Cluster(context.Background(), points)
	require.NoError(t, err)
	assert.True(t, outcome.Exhausted)
	assert.Len(t, outcome.RemainingFiles, 5)
}

func TestCluster_LabellingFailureFallsBackToOrdinal(t *testing.T) {
	gen := mock.NewGenerator()
	gen.LabelFunc = func(ctx context.Context, text string) (string, error) {
		return "", errors.New("model down")
	}
	c := New(testClusterConfig(), gen)

	points := append(groupPoints("flood", 0, 3), groupPoints("health", 1, 3)...)

	outcome, err := c.Cluster(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, outcome.Clusters, 2)
	assert.Equal(t, "Group 1", outcome.Clusters[0].Label)
	assert.Equal(t, "Group 2", outcome.Clusters[1].Label)
}

func TestCluster_CapsToMaxClusters(t *testing.T) {
	cfg := testClusterConfig()
	cfg.MaxClusters = 2
	c := New(cfg, mock.NewGenerator())

	// Three separable groups of different sizes; only the two largest
	// survive, the third's files pool into the residual group.
	points := append(groupPoints("big", 0, 5), groupPoints("mid", 1, 4)...)
	points = append(points, groupPoints("small", 2, 2)...)

	outcome, err := c.Cluster(context.Background(), points)
	require.NoError(t, err)
	require.False(t, outcome.Exhausted)

	require.Len(t, outcome.Clusters, 3)
	assert.Len(t, outcome.Clusters[0].Files, 5)
	assert.Len(t, outcome.Clusters[1].Files, 4)
	assert.Equal(t, "Other documents", outcome.Clusters[2].Label)
	assert.Len(t, outcome.Clusters[2].Files, 2)
}

func TestCluster_NoiseFilesNeverSilentlyDropped(t *testing.T) {
	c := New(testClusterConfig(), mock.NewGenerator())

	// Two dense groups plus two isolated files that stay noise.
	points := append(groupPoints("flood", 0, 3), groupPoints("health", 1, 3)...)
	points = append(points,
		Point{ID: "lone1:1", File: "lone1.pdf", Vector: oneHot(8, 6)},
		Point{ID: "lone2:1", File: "lone2.pdf", Vector: oneHot(8, 7)},
	)

	outcome, err := c.Cluster(context.Background(), points)
	require.NoError(t, err)
	require.False(t, outcome.Exhausted)

	var all []string
	for _, cl := range outcome.Clusters {
		all = append(all, cl.Files...)
	}
	assert.Contains(t, all, "lone1.pdf")
	assert.Contains(t, all, "lone2.pdf")

	last := outcome.Clusters[len(outcome.Clusters)-1]
	assert.Equal(t, "Other documents", last.Label)
}

func TestDBSCAN_Deterministic(t *testing.T) {
	vectors := [][]float32{
		oneHot(4, 0), oneHot(4, 0), oneHot(4, 0),
		oneHot(4, 1), oneHot(4, 1),
	}

	first := dbscan(vectors, 0.35, 2)
	second := dbscan(vectors, 0.35, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, first[0], first[1])
	assert.Equal(t, first[3], first[4])
	assert.NotEqual(t, first[0], first[3])
}
