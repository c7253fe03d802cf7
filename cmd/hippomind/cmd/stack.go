package cmd

import (
	"fmt"

	"github.com/ismail180205/HippoMind/internal/cluster"
	"github.com/ismail180205/HippoMind/internal/config"
	"github.com/ismail180205/HippoMind/internal/embed"
	"github.com/ismail180205/HippoMind/internal/llm"
	"github.com/ismail180205/HippoMind/internal/search"
	"github.com/ismail180205/HippoMind/internal/session"
	"github.com/ismail180205/HippoMind/internal/store"
)

// stack wires the full retrieval pipeline: catalog, embedder,
// generator, engine, clusterer, and session manager.
type stack struct {
	config   *config.Config
	catalog  *store.Catalog
	embedder embed.Embedder
	engine   *search.Engine
	sessions *session.Manager
}

// loadConfig honors the --config flag, falling back to discovery.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(".")
}

// buildStack opens the index and assembles the pipeline. The caller
// must call Close.
func buildStack(watch bool) (*stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	catalog, err := store.Open(cfg.Paths.IndexDir, cfg.Embeddings.Dimensions)
	if err != nil {
		return nil, err
	}
	if watch {
		if err := catalog.Watch(); err != nil {
			catalog.Close()
			return nil, fmt.Errorf("failed to watch index directory: %w", err)
		}
	}

	embedder, err := embed.New(cfg.Embeddings)
	if err != nil {
		catalog.Close()
		return nil, err
	}

	generator, err := llm.NewOllamaGenerator(cfg.LLM)
	if err != nil {
		embedder.Close()
		catalog.Close()
		return nil, err
	}
	cached := llm.NewCachedGenerator(generator, cfg.Cluster.LabelCacheTTL)

	engine := search.NewEngine(catalog, embedder, cached, cfg.Search)
	clusterer := cluster.New(cfg.Cluster, cached)
	sessions := session.NewManager(engine, clusterer, engine, cached, cfg.Sessions, cfg.Followup.Max)

	return &stack{
		config:   cfg,
		catalog:  catalog,
		embedder: embedder,
		engine:   engine,
		sessions: sessions,
	}, nil
}

// Close tears the pipeline down in reverse order.
func (s *stack) Close() {
	s.sessions.Stop()
	_ = s.embedder.Close()
	_ = s.catalog.Close()
}
