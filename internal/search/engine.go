// Package search implements hybrid retrieval: LLM query expansion, a
// dense and a sparse top-K query run in parallel, weighted reciprocal
// rank fusion, and answer-driven rescoring of a fixed candidate set.
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/ismail180205/HippoMind/internal/cluster"
	"github.com/ismail180205/HippoMind/internal/config"
	"github.com/ismail180205/HippoMind/internal/embed"
	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
	"github.com/ismail180205/HippoMind/internal/llm"
	"github.com/ismail180205/HippoMind/internal/store"
)

// Catalog is the slice of the chunk store the engine consumes.
type Catalog interface {
	QueryDense(ctx context.Context, query []float32, k int) ([]*store.DenseResult, error)
	QuerySparse(ctx context.Context, query string, limit int) ([]*store.SparseResult, error)
	GetChunks(ctx context.Context, ids []string) ([]*store.ChunkRecord, error)
	VectorOf(id string) ([]float32, bool)
	FileSummary(ctx context.Context, file string) (string, error)
}

// Result is one retrieval round: the ranked candidate files plus the
// chunk IDs backing each of them.
type Result struct {
	// Query is the raw user query.
	Query string

	// ExpandedQuery is the enriched query actually searched. Equals
	// Query when expansion was unavailable.
	ExpandedQuery string

	// Files is the fused, normalized, deterministically ordered ranking.
	Files []FileScore

	// ChunksOf maps each candidate file to its matching chunk IDs.
	ChunksOf map[string][]string

	// DirectMatch is set when exactly one file clears the direct-match
	// threshold, short-circuiting clustering.
	DirectMatch *FileScore

	// DirectExcerpt is the best-matching chunk's text for the direct
	// match, for display. Empty when DirectMatch is nil.
	DirectExcerpt string
}

// Engine runs hybrid retrieval rounds against the catalog.
type Engine struct {
	catalog   Catalog
	embedder  embed.Embedder
	generator llm.Generator
	fuser     *Fuser
	cfg       config.SearchConfig
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a search engine.
func NewEngine(catalog Catalog, embedder embed.Embedder, generator llm.Generator, cfg config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:   catalog,
		embedder:  embedder,
		generator: generator,
		fuser:     NewFuser(Weights{Dense: cfg.DenseWeight, Sparse: cfg.SparseWeight}, cfg.RRFConstant),
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve runs one full hybrid round for the query.
func (e *Engine) Retrieve(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, hmerrors.New(hmerrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	// Expansion degrades to the raw query, never fails the round.
	expanded, err := e.generator.ExpandQuery(ctx, query)
	if err != nil || strings.TrimSpace(expanded) == "" {
		expanded = query
	}

	queryVec, err := e.embedder.Embed(ctx, expanded)
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.ErrCodeEmbeddingFailed, err)
	}

	var denseResults []*store.DenseResult
	var sparseResults []*store.SparseResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		denseResults, err = e.catalog.QueryDense(gctx, queryVec, e.cfg.TopK)
		return err
	})
	g.Go(func() error {
		var err error
		sparseResults, err = e.catalog.QuerySparse(gctx, expanded, e.cfg.TopK)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, hmerrors.RetrievalUnavailable(err)
	}

	denseIDs := make([]string, len(denseResults))
	for i, r := range denseResults {
		denseIDs[i] = r.ID
	}
	sparseIDs := make([]string, len(sparseResults))
	for i, r := range sparseResults {
		sparseIDs[i] = r.DocID
	}

	chunkScores := e.fuser.FuseChunks(denseIDs, sparseIDs)

	allIDs := make([]string, 0, len(chunkScores))
	for id := range chunkScores {
		allIDs = append(allIDs, id)
	}
	sort.Strings(allIDs)

	records, err := e.catalog.GetChunks(ctx, allIDs)
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.ErrCodeSearchFailed, err)
	}

	fileOf := make(map[string]string, len(records))
	chunksOf := make(map[string][]string)
	for _, rec := range records {
		fileOf[rec.ID] = rec.File
		chunksOf[rec.File] = append(chunksOf[rec.File], rec.ID)
	}

	files := AggregateByFile(chunkScores, fileOf)

	result := &Result{
		Query:         query,
		ExpandedQuery: expanded,
		Files:         files,
		ChunksOf:      chunksOf,
	}
	result.DirectMatch = directMatch(files, e.cfg.DirectMatchThreshold)
	if result.DirectMatch != nil {
		result.DirectExcerpt = bestExcerpt(result.DirectMatch.File, chunkScores, records)
	}

	e.logger.Info("retrieval round",
		slog.String("query", query),
		slog.Int("dense_hits", len(denseResults)),
		slog.Int("sparse_hits", len(sparseResults)),
		slog.Int("files", len(files)),
		slog.Bool("direct_match", result.DirectMatch != nil))

	return result, nil
}

// directMatch returns the winning file when exactly one file clears the
// threshold. Normalization pins the top file at 1.0, so the test is
// really about the runner-up: a clear gap means the user almost
// certainly named the file, while two files above the threshold means
// the query is still ambiguous and clustering should proceed.
func directMatch(files []FileScore, threshold float64) *FileScore {
	if len(files) == 0 {
		return nil
	}
	if files[0].Score < threshold {
		return nil
	}
	if len(files) > 1 && files[1].Score >= threshold {
		return nil
	}
	top := files[0]
	return &top
}

// excerptLimit caps the direct-match excerpt shown to the user.
const excerptLimit = 300

// bestExcerpt returns the text of the file's highest-fused chunk.
func bestExcerpt(file string, chunkScores map[string]float64, records []*store.ChunkRecord) string {
	var best *store.ChunkRecord
	bestScore := -1.0
	for _, rec := range records {
		if rec.File != file {
			continue
		}
		if score := chunkScores[rec.ID]; score > bestScore {
			bestScore = score
			best = rec
		}
	}
	if best == nil {
		return ""
	}
	text := strings.TrimSpace(best.Text)
	if len(text) > excerptLimit {
		cut := excerptLimit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "…"
	}
	return text
}

// Rescore re-ranks an existing candidate set against follow-up answer
// text. The answer is embedded and every candidate file scored by the
// best cosine similarity among its chunks; the top half survives, with
// a floor of three (or everything, when fewer than three would make the
// cut). The candidate set never grows.
func (e *Engine) Rescore(ctx context.Context, answers string, chunksOf map[string][]string) ([]FileScore, error) {
	if len(chunksOf) == 0 {
		return []FileScore{}, nil
	}

	answerVec, err := e.embedder.Embed(ctx, answers)
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.ErrCodeEmbeddingFailed, err)
	}
	normalize(answerVec)

	scored := make([]FileScore, 0, len(chunksOf))
	for file, chunkIDs := range chunksOf {
		best := -1.0
		for _, id := range chunkIDs {
			vec, ok := e.catalog.VectorOf(id)
			if !ok {
				continue
			}
			if sim := cosine(answerVec, vec); sim > best {
				best = sim
			}
		}
		if best < 0 {
			best = 0
		}
		scored = append(scored, FileScore{File: file, Score: best})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].File < scored[j].File
	})

	keep := len(scored) / 2
	if keep < 1 {
		keep = 1
	}
	if keep < 3 {
		keep = len(scored)
	}
	if keep > len(scored) {
		keep = len(scored)
	}

	kept := scored[:keep]

	// Re-normalize the survivors so downstream display stays in [0, 1].
	if len(kept) > 0 && kept[0].Score > 0 {
		max := kept[0].Score
		for i := range kept {
			kept[i].Score /= max
		}
	}

	return kept, nil
}

// LoadPoints materializes clustering points for a candidate set: each
// chunk's stored text plus its dense vector. Chunks whose vector is no
// longer in the index are skipped.
func (e *Engine) LoadPoints(ctx context.Context, chunksOf map[string][]string) ([]cluster.Point, error) {
	files := make([]string, 0, len(chunksOf))
	for file := range chunksOf {
		files = append(files, file)
	}
	sort.Strings(files)

	var points []cluster.Point
	for _, file := range files {
		records, err := e.catalog.GetChunks(ctx, chunksOf[file])
		if err != nil {
			return nil, hmerrors.Wrap(hmerrors.ErrCodeSearchFailed, err)
		}
		for _, rec := range records {
			vec, ok := e.catalog.VectorOf(rec.ID)
			if !ok {
				continue
			}
			points = append(points, cluster.Point{
				ID:     rec.ID,
				File:   rec.File,
				Text:   rec.Text,
				Vector: vec,
			})
		}
	}
	return points, nil
}

// FileSummaries collects stored summaries for the given files, keyed by
// file name. Files without a summary map to an empty string.
func (e *Engine) FileSummaries(ctx context.Context, files []string) (map[string]string, error) {
	summaries := make(map[string]string, len(files))
	for _, file := range files {
		summary, err := e.catalog.FileSummary(ctx, file)
		if err != nil {
			return nil, hmerrors.Wrap(hmerrors.ErrCodeSearchFailed, err)
		}
		summaries[file] = summary
	}
	return summaries, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + 1e-9)
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
