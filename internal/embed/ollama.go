package embed

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/ismail180205/HippoMind/internal/config"
	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
)

// OllamaEmbedder generates embeddings through a local Ollama server.
type OllamaEmbedder struct {
	embedder embeddings.Embedder
	dims     int
	logger   *slog.Logger
}

// NewOllamaEmbedder creates an embedder backed by the configured
// Ollama model. The server is not contacted until the first call.
func NewOllamaEmbedder(cfg config.EmbeddingsConfig) (*OllamaEmbedder, error) {
	client, err := ollama.New(
		ollama.WithServerURL(cfg.OllamaHost),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.ErrCodeEmbeddingFailed, err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.ErrCodeEmbeddingFailed, err)
	}

	return &OllamaEmbedder{
		embedder: embedder,
		dims:     cfg.Dimensions,
		logger:   slog.Default().With("component", "ollama-embedder"),
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, hmerrors.New(hmerrors.ErrCodeEmbeddingFailed, "embedder returned no vectors", nil)
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, retrying
// transient failures.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := hmerrors.RetryWithResult(ctx, hmerrors.DefaultRetryConfig(), func() ([][]float32, error) {
		return e.embedder.EmbedDocuments(ctx, texts)
	})
	if err != nil {
		e.logger.Error("embedding failed", slog.Int("texts", len(texts)), slog.String("error", err.Error()))
		return nil, hmerrors.Wrap(hmerrors.ErrCodeEmbeddingFailed, err)
	}

	for _, v := range vectors {
		if len(v) != e.dims {
			return nil, hmerrors.New(hmerrors.ErrCodeEmbeddingFailed,
				"model returned unexpected vector dimensions", nil).
				WithDetail("expected", strconv.Itoa(e.dims)).
				WithDetail("got", strconv.Itoa(len(v)))
		}
	}

	return vectors, nil
}

// Dimensions returns the configured vector dimensionality.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dims
}

// Close is a no-op; the Ollama client holds no persistent resources.
func (e *OllamaEmbedder) Close() error {
	return nil
}
