package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Builder writes a complete index directory: dense graph, sparse index,
// payload database, and finally the version sentinel. It takes the
// exclusive directory lock, so live readers keep serving their loaded
// snapshot until the sentinel flips.
type Builder struct {
	dir      string
	dense    *DenseStore
	sparse   *SparseStore
	payload  *PayloadDB
	fileLock *flock.Flock
}

// NewBuilder prepares a build into dir. Fails if another process holds
// the directory lock.
func NewBuilder(dir string, dims int) (*Builder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	fileLock := flock.New(filepath.Join(dir, lockFileName))
	acquired, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock index directory: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("index directory %s is in use", dir)
	}

	dense, err := NewDenseStore(DenseConfig{Dimensions: dims})
	if err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}

	// Rebuild the sparse index from scratch.
	sparsePath := filepath.Join(dir, sparseDirName)
	if err := os.RemoveAll(sparsePath); err != nil {
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("failed to clear sparse index: %w", err)
	}
	sparse, err := NewSparseStore(sparsePath)
	if err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}

	payload, err := OpenPayloadDB(filepath.Join(dir, payloadFileName))
	if err != nil {
		sparse.Close()
		_ = fileLock.Unlock()
		return nil, err
	}

	return &Builder{
		dir:      dir,
		dense:    dense,
		sparse:   sparse,
		payload:  payload,
		fileLock: fileLock,
	}, nil
}

// AddChunk indexes one chunk in all three components.
func (b *Builder) AddChunk(ctx context.Context, chunk *ChunkRecord, vector []float32) error {
	if err := b.dense.Add(ctx, []string{chunk.ID}, [][]float32{vector}); err != nil {
		return fmt.Errorf("dense add: %w", err)
	}
	if err := b.sparse.Index(ctx, []*ChunkRecord{chunk}); err != nil {
		return fmt.Errorf("sparse add: %w", err)
	}
	if err := b.payload.PutChunks(ctx, []*ChunkRecord{chunk}); err != nil {
		return fmt.Errorf("payload add: %w", err)
	}
	return nil
}

// AddFileSummary stores the summary text shown for a found file.
func (b *Builder) AddFileSummary(ctx context.Context, file, summary string) error {
	return b.payload.PutFileSummary(ctx, file, summary)
}

// Commit persists the dense graph and touches the version sentinel.
func (b *Builder) Commit() error {
	if err := b.dense.Save(filepath.Join(b.dir, denseFileName)); err != nil {
		return fmt.Errorf("saving dense index: %w", err)
	}

	stamp := []byte(time.Now().UTC().Format(time.RFC3339) + "\n")
	if err := os.WriteFile(filepath.Join(b.dir, versionFileName), stamp, 0o644); err != nil {
		return fmt.Errorf("writing version sentinel: %w", err)
	}
	return nil
}

// Close releases components and the directory lock.
func (b *Builder) Close() error {
	var err error
	for _, closer := range []interface{ Close() error }{b.dense, b.sparse, b.payload} {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if b.fileLock != nil {
		_ = b.fileLock.Unlock()
	}
	return err
}
