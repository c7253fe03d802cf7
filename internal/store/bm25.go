package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// SparseStore implements SparseIndex on Bleve v2 BM25 keyword search.
type SparseStore struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// sparseDocument is the document shape indexed by Bleve.
type sparseDocument struct {
	Content string `json:"content"`
}

// validateSparseIndex checks a Bleve index directory before opening so a
// half-written index from an interrupted build gets rebuilt instead of
// failing every open.
func validateSparseIndex(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // will be created
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

// isCorruptionError reports whether an error indicates Bleve corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// NewSparseStore opens or creates a BM25 index at path.
// An empty path creates an in-memory index.
func NewSparseStore(path string) (*SparseStore, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	var idx bleve.Index
	var err error

	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		if validErr := validateSparseIndex(path); validErr != nil {
			slog.Warn("sparse_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("sparse index corrupted at %s and cannot remove: %w", path, removeErr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("sparse_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("sparse index corrupted, cannot clear: %w", removeErr)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open sparse index: %w", err)
	}

	return &SparseStore{index: idx, path: path}, nil
}

// Index adds chunk records to the keyword index in one batch.
func (s *SparseStore) Index(ctx context.Context, chunks []*ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sparse index is closed")
	}

	batch := s.index.NewBatch()
	for _, chunk := range chunks {
		if err := batch.Index(chunk.ID, sparseDocument{Content: chunk.Text}); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", chunk.ID, err)
		}
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search returns up to limit chunks matching query, scored by BM25.
func (s *SparseStore) Search(ctx context.Context, queryStr string, limit int) ([]*SparseResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("sparse index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []*SparseResult{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.IncludeLocations = true

	result, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("sparse search failed: %w", err)
	}

	results := make([]*SparseResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		var matched []string
		for term := range hit.Locations["content"] {
			matched = append(matched, term)
		}
		results = append(results, &SparseResult{
			DocID:        hit.ID,
			Score:        hit.Score,
			MatchedTerms: matched,
		})
	}

	return results, nil
}

// Count returns the number of indexed documents.
func (s *SparseStore) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("sparse index is closed")
	}
	return s.index.DocCount()
}

// Close closes the underlying Bleve index.
func (s *SparseStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}
