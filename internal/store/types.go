// Package store provides the read-mostly chunk catalog: a dense HNSW
// index, a sparse BM25 index, and a SQLite payload database, opened
// together from one index directory.
package store

import (
	"context"
	"fmt"
)

// ChunkKind distinguishes the derived texts indexed per file.
type ChunkKind string

const (
	ChunkKindTitle   ChunkKind = "title"
	ChunkKindSummary ChunkKind = "summary"
	ChunkKindContent ChunkKind = "content"
)

// ChunkRecord is one indexed chunk: a fragment of text derived from a
// file, carried through both retrieval channels under the same ID.
type ChunkRecord struct {
	// ID uniquely identifies the chunk across dense and sparse indexes.
	ID string `json:"id"`

	// File is the name of the file this chunk was derived from.
	File string `json:"file"`

	// Kind says which derived text this chunk holds.
	Kind ChunkKind `json:"kind"`

	// Text is the chunk payload.
	Text string `json:"text"`
}

// DenseResult is a single dense (vector) search hit.
type DenseResult struct {
	// ID is the chunk ID.
	ID string

	// Distance is the raw distance in the index metric.
	Distance float32

	// Score is the similarity derived from Distance, higher is better.
	Score float64
}

// SparseResult is a single sparse (keyword) search hit.
type SparseResult struct {
	// DocID is the chunk ID.
	DocID string

	// Score is the BM25 relevance score.
	Score float64

	// MatchedTerms lists the query terms found in the chunk.
	MatchedTerms []string
}

// DenseIndex is the vector search half of the catalog.
type DenseIndex interface {
	// Search returns the k nearest chunks to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*DenseResult, error)

	// Vector returns the stored embedding for a chunk ID.
	Vector(id string) ([]float32, bool)

	// Count returns the number of indexed vectors.
	Count() int

	Close() error
}

// SparseIndex is the keyword search half of the catalog.
type SparseIndex interface {
	// Search returns up to limit chunks matching the query, BM25-scored.
	Search(ctx context.Context, query string, limit int) ([]*SparseResult, error)

	// Count returns the number of indexed documents.
	Count() (uint64, error)

	Close() error
}

// PayloadStore resolves chunk IDs to their records and file metadata.
type PayloadStore interface {
	// GetChunks returns the records for the given chunk IDs.
	// Unknown IDs are skipped, not errors.
	GetChunks(ctx context.Context, ids []string) ([]*ChunkRecord, error)

	// FileSummary returns the stored summary for a file, if any.
	FileSummary(ctx context.Context, file string) (string, error)

	// FileCount returns the number of distinct indexed files.
	FileCount(ctx context.Context) (int, error)

	Close() error
}

// Stats describes the loaded catalog.
type Stats struct {
	Files        int    `json:"files"`
	Chunks       int    `json:"chunks"`
	DenseVectors int    `json:"dense_vectors"`
	SparseDocs   uint64 `json:"sparse_docs"`
	IndexDir     string `json:"index_dir"`
}

// ErrDimensionMismatch is returned when a vector has wrong dimensions.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
