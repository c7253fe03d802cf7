// Package embed turns query text into the dense vectors the catalog
// indexes. The Ollama provider is the default; the static provider is a
// deterministic hash-based fallback that needs no model server.
package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/ismail180205/HippoMind/internal/config"
)

// Embedder generates dense vectors for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimensionality.
	Dimensions() int

	Close() error
}

// New creates an embedder from configuration.
func New(cfg config.EmbeddingsConfig) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return NewOllamaEmbedder(cfg)
	case "static":
		return NewStaticEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
}
