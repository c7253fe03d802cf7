package search

import (
	"sort"
)

// Weights holds the per-channel fusion weights. They must sum to at
// most 1 but need not sum to exactly 1.
type Weights struct {
	Dense  float64
	Sparse float64
}

// DefaultWeights favors the dense channel, which carries most of the
// "vague recollection" signal.
func DefaultWeights() Weights {
	return Weights{Dense: 0.7, Sparse: 0.3}
}

// FileScore is one scored document in a fused result.
type FileScore struct {
	// File is the document name.
	File string `json:"file"`

	// Score is the normalized fused score in [0, 1].
	Score float64 `json:"score"`
}

// Fuser combines dense and sparse chunk rankings with weighted
// reciprocal rank fusion.
type Fuser struct {
	weights  Weights
	constant int
}

// NewFuser creates a fuser. constant is the RRF smoothing constant; a
// non-positive value falls back to 60.
func NewFuser(weights Weights, constant int) *Fuser {
	if constant <= 0 {
		constant = 60
	}
	return &Fuser{weights: weights, constant: constant}
}

// FuseChunks computes the fused score for every chunk appearing in
// either ranking. For a chunk at 1-indexed rank r in a list with weight
// w, that list contributes w / (constant + r); a chunk absent from a
// list contributes nothing for it.
func (f *Fuser) FuseChunks(denseIDs, sparseIDs []string) map[string]float64 {
	scores := make(map[string]float64, len(denseIDs)+len(sparseIDs))

	for i, id := range denseIDs {
		scores[id] += f.weights.Dense / float64(f.constant+i+1)
	}
	for i, id := range sparseIDs {
		scores[id] += f.weights.Sparse / float64(f.constant+i+1)
	}

	return scores
}

// AggregateByFile rolls chunk scores up to documents: a document scores
// the maximum fused score among its chunks. Scores are then normalized
// by the batch maximum and sorted descending, ties broken by file name
// ascending so repeated calls return identical orderings.
func AggregateByFile(chunkScores map[string]float64, fileOf map[string]string) []FileScore {
	byFile := make(map[string]float64)
	for chunkID, score := range chunkScores {
		file, ok := fileOf[chunkID]
		if !ok {
			continue
		}
		if score > byFile[file] {
			byFile[file] = score
		}
	}

	var maxScore float64
	for _, score := range byFile {
		if score > maxScore {
			maxScore = score
		}
	}

	results := make([]FileScore, 0, len(byFile))
	for file, score := range byFile {
		if maxScore > 0 {
			score /= maxScore
		}
		results = append(results, FileScore{File: file, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].File < results[j].File
	})

	return results
}
