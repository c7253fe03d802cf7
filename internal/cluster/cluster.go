// Package cluster groups candidate chunks into recognizable topic
// groups with density clustering, labels each group through the
// generative model, and detects the degenerate outcomes that end a
// narrowing round.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ismail180205/HippoMind/internal/config"
	"github.com/ismail180205/HippoMind/internal/llm"
)

// Point is one chunk entering clustering.
type Point struct {
	ID     string
	File   string
	Text   string
	Vector []float32
}

// Cluster is one selectable group of files.
type Cluster struct {
	// ID is the stable index the client picks by.
	ID int `json:"id"`

	// Label is the topic label shown to the user.
	Label string `json:"label"`

	// Files is the sorted set of member file names.
	Files []string `json:"files"`

	// Size is the number of member chunks.
	Size int `json:"size"`
}

// Outcome is a clustering round's result: either a set of clusters to
// choose from, or exhaustion with the files that could not be separated.
type Outcome struct {
	Clusters       []Cluster
	Exhausted      bool
	RemainingFiles []string
}

// Clusterer runs density clustering and labelling.
type Clusterer struct {
	cfg    config.ClusterConfig
	gen    llm.Generator
	logger *slog.Logger
}

// New creates a clusterer. gen labels clusters; on labelling failure a
// deterministic ordinal label is used instead.
func New(cfg config.ClusterConfig, gen llm.Generator) *Clusterer {
	return &Clusterer{
		cfg:    cfg,
		gen:    gen,
		logger: slog.Default().With("component", "clusterer"),
	}
}

// Cluster groups the candidate points. Degenerate outcomes (too few
// files, zero clusters, or one cluster covering everything) report
// exhaustion rather than forcing a fake split.
func (c *Clusterer) Cluster(ctx context.Context, points []Point) (*Outcome, error) {
	files := uniqueFiles(points)

	if len(files) <= c.cfg.ExhaustedFileThreshold {
		return &Outcome{Exhausted: true, RemainingFiles: files}, nil
	}

	vectors := make([][]float32, len(points))
	for i, p := range points {
		vectors[i] = normalized(p.Vector)
	}

	// The minimum membership scales with the candidate count so large
	// rounds do not shatter into dozens of slivers.
	minPts := c.cfg.MinClusterSize
	if scaled := len(points) / 15; scaled > minPts {
		minPts = scaled
	}

	labels := dbscan(vectors, c.cfg.Epsilon, minPts)
	labels = capClusters(labels, c.cfg.MaxClusters)

	members := make(map[int][]int)
	for i, label := range labels {
		if label == Noise {
			continue
		}
		members[label] = append(members[label], i)
	}

	if len(members) == 0 {
		c.logger.Info("clustering degenerate", slog.String("reason", "no dense regions"), slog.Int("files", len(files)))
		return &Outcome{Exhausted: true, RemainingFiles: files}, nil
	}

	clusters := make([]Cluster, 0, len(members)+1)
	clusteredFiles := make(map[string]bool)

	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		idxs := members[id]
		fileSet := make(map[string]bool)
		var texts []string
		for _, i := range idxs {
			fileSet[points[i].File] = true
			texts = append(texts, points[i].Text)
		}

		memberFiles := make([]string, 0, len(fileSet))
		for f := range fileSet {
			memberFiles = append(memberFiles, f)
			clusteredFiles[f] = true
		}
		sort.Strings(memberFiles)

		clusters = append(clusters, Cluster{
			ID:    len(clusters),
			Label: c.label(ctx, len(clusters), texts),
			Files: memberFiles,
			Size:  len(idxs),
		})
	}

	if len(clusters) == 1 && len(clusters[0].Files) == len(files) {
		c.logger.Info("clustering degenerate", slog.String("reason", "single cluster covers all files"))
		return &Outcome{Exhausted: true, RemainingFiles: files}, nil
	}

	// Noise points are dropped unless they carry files no cluster
	// covers; those files pool into a residual group so nothing
	// disappears from the candidate list.
	var orphaned []string
	for _, f := range files {
		if !clusteredFiles[f] {
			orphaned = append(orphaned, f)
		}
	}
	if len(orphaned) > 0 {
		noiseChunks := 0
		for i, label := range labels {
			if label == Noise && !clusteredFiles[points[i].File] {
				noiseChunks++
			}
		}
		clusters = append(clusters, Cluster{
			ID:    len(clusters),
			Label: "Other documents",
			Files: orphaned,
			Size:  noiseChunks,
		})
	}

	return &Outcome{Clusters: clusters}, nil
}

// label asks the generator for a topic label, falling back to an
// ordinal group name. Labelling failure never aborts a round.
func (c *Clusterer) label(ctx context.Context, id int, texts []string) string {
	label, err := c.gen.LabelCluster(ctx, strings.Join(texts, "\n\n"))
	if err != nil || strings.TrimSpace(label) == "" {
		c.logger.Warn("cluster labelling degraded",
			slog.Int("cluster", id),
			slog.String("error", errString(err)))
		return fmt.Sprintf("Group %d", id+1)
	}
	return label
}

// capClusters keeps the MaxClusters largest clusters and renumbers them
// 0..k-1 in ascending original-ID order; members of dropped clusters
// become noise.
func capClusters(labels []int, maxClusters int) []int {
	counts := make(map[int]int)
	for _, label := range labels {
		if label != Noise {
			counts[label]++
		}
	}
	if len(counts) <= maxClusters {
		return labels
	}

	type clusterCount struct {
		id    int
		count int
	}
	all := make([]clusterCount, 0, len(counts))
	for id, count := range counts {
		all = append(all, clusterCount{id, count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].id < all[j].id
	})

	kept := make([]int, 0, maxClusters)
	for _, cc := range all[:maxClusters] {
		kept = append(kept, cc.id)
	}
	sort.Ints(kept)

	remap := make(map[int]int, len(kept))
	for newID, oldID := range kept {
		remap[oldID] = newID
	}

	out := make([]int, len(labels))
	for i, label := range labels {
		if newID, ok := remap[label]; ok {
			out[i] = newID
		} else {
			out[i] = Noise
		}
	}
	return out
}

func uniqueFiles(points []Point) []string {
	set := make(map[string]bool)
	for _, p := range points {
		set[p.File] = true
	}
	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func normalized(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return "empty label"
	}
	return err.Error()
}
