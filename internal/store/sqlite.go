package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// payloadCacheSize bounds the in-memory chunk record cache.
const payloadCacheSize = 4096

// PayloadDB implements PayloadStore on a SQLite database. It holds the
// chunk texts and file summaries that the dense and sparse indexes only
// reference by ID. Hot chunk records are kept in an LRU cache since the
// same candidates resurface round after round within a session.
type PayloadDB struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	cache  *lru.Cache[string, *ChunkRecord]
	closed bool
}

const payloadSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id   TEXT PRIMARY KEY,
	file TEXT NOT NULL,
	kind TEXT NOT NULL,
	text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file);

CREATE TABLE IF NOT EXISTS files (
	name    TEXT PRIMARY KEY,
	summary TEXT NOT NULL DEFAULT ''
);
`

// OpenPayloadDB opens (or creates) the payload database at path.
func OpenPayloadDB(path string) (*PayloadDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open payload database: %w", err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA, modernc.org/sqlite ignores DSN params.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(payloadSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	cache, _ := lru.New[string, *ChunkRecord](payloadCacheSize)

	return &PayloadDB{db: db, path: path, cache: cache}, nil
}

// PutChunks upserts chunk records in one transaction.
func (p *PayloadDB) PutChunks(ctx context.Context, chunks []*ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("payload store is closed")
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, file, kind, text) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET file=excluded.file, kind=excluded.kind, text=excluded.text`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.File, string(chunk.Kind), chunk.Text); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
		p.cache.Remove(chunk.ID)
	}

	return tx.Commit()
}

// PutFileSummary upserts a file's summary.
func (p *PayloadDB) PutFileSummary(ctx context.Context, file, summary string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("payload store is closed")
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO files (name, summary) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET summary=excluded.summary`, file, summary)
	return err
}

// GetChunks returns records for the given chunk IDs. Unknown IDs are
// skipped. Order follows the input order.
func (p *PayloadDB) GetChunks(ctx context.Context, ids []string) ([]*ChunkRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, fmt.Errorf("payload store is closed")
	}
	if len(ids) == 0 {
		return []*ChunkRecord{}, nil
	}

	found := make(map[string]*ChunkRecord, len(ids))
	var missing []string
	for _, id := range ids {
		if rec, ok := p.cache.Get(id); ok {
			found[id] = rec
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		placeholders := strings.Repeat("?,", len(missing))
		placeholders = placeholders[:len(placeholders)-1]

		args := make([]any, len(missing))
		for i, id := range missing {
			args[i] = id
		}

		rows, err := p.db.QueryContext(ctx,
			fmt.Sprintf("SELECT id, file, kind, text FROM chunks WHERE id IN (%s)", placeholders), args...)
		if err != nil {
			return nil, fmt.Errorf("query chunks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var rec ChunkRecord
			var kind string
			if err := rows.Scan(&rec.ID, &rec.File, &kind, &rec.Text); err != nil {
				return nil, fmt.Errorf("scan chunk: %w", err)
			}
			rec.Kind = ChunkKind(kind)
			found[rec.ID] = &rec
			p.cache.Add(rec.ID, &rec)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate chunks: %w", err)
		}
	}

	results := make([]*ChunkRecord, 0, len(found))
	for _, id := range ids {
		if rec, ok := found[id]; ok {
			results = append(results, rec)
		}
	}
	return results, nil
}

// FileSummary returns the stored summary for a file, or "" if none.
func (p *PayloadDB) FileSummary(ctx context.Context, file string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return "", fmt.Errorf("payload store is closed")
	}

	var summary string
	err := p.db.QueryRowContext(ctx, "SELECT summary FROM files WHERE name = ?", file).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query file summary: %w", err)
	}
	return summary, nil
}

// FileCount returns the number of distinct files across indexed chunks.
func (p *PayloadDB) FileCount(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, fmt.Errorf("payload store is closed")
	}

	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT file) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

// ChunkCount returns the number of stored chunk records.
func (p *PayloadDB) ChunkCount(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, fmt.Errorf("payload store is closed")
	}

	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (p *PayloadDB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.cache.Purge()
	return p.db.Close()
}
