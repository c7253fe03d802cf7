package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
)

// Index directory layout. The builder writes all three side by side and
// touches the version sentinel last, so watching the sentinel is enough
// to detect a completed rebuild.
const (
	denseFileName    = "dense.hnsw"
	sparseDirName    = "sparse.bleve"
	payloadFileName  = "payload.db"
	versionFileName  = "version"
	lockFileName     = ".hippomind.lock"
	reloadDebounce   = 500 * time.Millisecond
)

// Catalog bundles the dense index, sparse index, and payload store
// loaded from one index directory. It is the read-only view the search
// and clustering layers consume; index construction happens elsewhere.
type Catalog struct {
	mu      sync.RWMutex
	dir     string
	dense   DenseIndex
	sparse  SparseIndex
	payload PayloadStore

	fileLock *flock.Flock
	watcher  *fsnotify.Watcher
	dims     int

	closeOnce sync.Once
	done      chan struct{}
}

// NewCatalog assembles a catalog from already-open components.
// Used by tests and by the index builder; production code uses Open.
func NewCatalog(dense DenseIndex, sparse SparseIndex, payload PayloadStore) *Catalog {
	return &Catalog{
		dense:   dense,
		sparse:  sparse,
		payload: payload,
		done:    make(chan struct{}),
	}
}

// Open loads the catalog from dir. A shared file lock is held for the
// lifetime of the catalog so a concurrent rebuild cannot swap files out
// from under a live reader.
func Open(dir string, dims int) (*Catalog, error) {
	densePath := filepath.Join(dir, denseFileName)
	if _, err := os.Stat(densePath); os.IsNotExist(err) {
		return nil, hmerrors.New(hmerrors.ErrCodeIndexNotFound,
			fmt.Sprintf("no index found in %s, run 'hippomind index' first", dir), err)
	}

	fileLock := flock.New(filepath.Join(dir, lockFileName))
	acquired, err := fileLock.TryRLock()
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.ErrCodeIndexLocked, err)
	}
	if !acquired {
		return nil, hmerrors.New(hmerrors.ErrCodeIndexLocked,
			fmt.Sprintf("index at %s is locked by another process", dir), nil)
	}

	c := &Catalog{
		dir:      dir,
		dims:     dims,
		fileLock: fileLock,
		done:     make(chan struct{}),
	}

	if err := c.load(); err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}

	return c, nil
}

// load opens all three components and swaps them in.
func (c *Catalog) load() error {
	dense, err := NewDenseStore(DenseConfig{Dimensions: c.dims})
	if err != nil {
		return err
	}
	if err := dense.Load(filepath.Join(c.dir, denseFileName)); err != nil {
		return hmerrors.Wrap(hmerrors.ErrCodeCorruptIndex, err)
	}

	sparse, err := NewSparseStore(filepath.Join(c.dir, sparseDirName))
	if err != nil {
		dense.Close()
		return hmerrors.Wrap(hmerrors.ErrCodeCorruptIndex, err)
	}

	payload, err := OpenPayloadDB(filepath.Join(c.dir, payloadFileName))
	if err != nil {
		dense.Close()
		sparse.Close()
		return hmerrors.Wrap(hmerrors.ErrCodeCorruptIndex, err)
	}

	c.mu.Lock()
	old := [3]interface{ Close() error }{c.dense, c.sparse, c.payload}
	c.dense = dense
	c.sparse = sparse
	c.payload = payload
	c.mu.Unlock()

	for _, closer := range old {
		if closer != nil {
			_ = closer.Close()
		}
	}

	return nil
}

// Watch starts watching the index directory for rebuilds and reloads
// the catalog when the version sentinel changes. Stops when the catalog
// is closed.
func (c *Catalog) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", c.dir, err)
	}
	c.watcher = watcher

	go c.watchLoop()
	return nil
}

// watchLoop debounces change bursts into a single reload.
func (c *Catalog) watchLoop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-c.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != versionFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("index_watch_error", slog.String("error", err.Error()))

		case <-timerC:
			timer = nil
			timerC = nil
			slog.Info("index_reload_triggered", slog.String("dir", c.dir))
			if err := c.load(); err != nil {
				slog.Error("index_reload_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// QueryDense returns the k nearest chunks to the query vector.
func (c *Catalog) QueryDense(ctx context.Context, query []float32, k int) ([]*DenseResult, error) {
	c.mu.RLock()
	dense := c.dense
	c.mu.RUnlock()
	return dense.Search(ctx, query, k)
}

// QuerySparse returns up to limit chunks keyword-matching the query.
func (c *Catalog) QuerySparse(ctx context.Context, query string, limit int) ([]*SparseResult, error) {
	c.mu.RLock()
	sparse := c.sparse
	c.mu.RUnlock()
	return sparse.Search(ctx, query, limit)
}

// GetChunks resolves chunk IDs to their records.
func (c *Catalog) GetChunks(ctx context.Context, ids []string) ([]*ChunkRecord, error) {
	c.mu.RLock()
	payload := c.payload
	c.mu.RUnlock()
	return payload.GetChunks(ctx, ids)
}

// VectorOf returns the stored embedding for a chunk ID.
func (c *Catalog) VectorOf(id string) ([]float32, bool) {
	c.mu.RLock()
	dense := c.dense
	c.mu.RUnlock()
	return dense.Vector(id)
}

// FileSummary returns the stored summary for a file, or "".
func (c *Catalog) FileSummary(ctx context.Context, file string) (string, error) {
	c.mu.RLock()
	payload := c.payload
	c.mu.RUnlock()
	return payload.FileSummary(ctx, file)
}

// Stats reports the size of the loaded catalog.
func (c *Catalog) Stats(ctx context.Context) (*Stats, error) {
	c.mu.RLock()
	dense, sparse, payload := c.dense, c.sparse, c.payload
	c.mu.RUnlock()

	files, err := payload.FileCount(ctx)
	if err != nil {
		return nil, err
	}

	sparseDocs, err := sparse.Count()
	if err != nil {
		return nil, err
	}

	chunks := 0
	if db, ok := payload.(*PayloadDB); ok {
		chunks, err = db.ChunkCount(ctx)
		if err != nil {
			return nil, err
		}
	}

	return &Stats{
		Files:        files,
		Chunks:       chunks,
		DenseVectors: dense.Count(),
		SparseDocs:   sparseDocs,
		IndexDir:     c.dir,
	}, nil
}

// Close releases all components and the directory lock.
func (c *Catalog) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.watcher != nil {
			_ = c.watcher.Close()
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		for _, closer := range []interface{ Close() error }{c.dense, c.sparse, c.payload} {
			if closer != nil {
				if cerr := closer.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}
		if c.fileLock != nil {
			_ = c.fileLock.Unlock()
		}
	})
	return err
}
