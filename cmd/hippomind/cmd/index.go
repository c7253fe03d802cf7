package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ismail180205/HippoMind/internal/embed"
	"github.com/ismail180205/HippoMind/internal/output"
	"github.com/ismail180205/HippoMind/internal/store"
)

// embedBatchSize bounds how many chunk texts go to the embedder at once.
const embedBatchSize = 32

// manifestEntry is one line of the JSONL chunk manifest produced by the
// external extraction pipeline.
type manifestEntry struct {
	File string `json:"file"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index MANIFEST",
		Short: "Build the search index from a chunk manifest",
		Long: `Build the index from a JSONL chunk manifest.

Each line describes one chunk of a document:

  {"file": "flood_report.pdf", "kind": "title", "text": "Coastal Flood Risk 2024"}
  {"file": "flood_report.pdf", "kind": "summary", "text": "Assesses storm surge..."}
  {"file": "flood_report.pdf", "kind": "content", "text": "Chapter 1..."}

Kinds are title, summary, and content. Summary chunks double as the
file summary shown when a search resolves. Extraction and chunking of
raw documents happen upstream; this command embeds the chunks and
writes the dense, sparse, and payload stores. A running server picks
up the rebuilt index automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, args[0])
		},
	}

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, manifestPath string) error {
	out := output.New(cmd.OutOrStdout())
	started := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entries, err := readManifest(manifestPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("manifest %s contains no chunks", manifestPath)
	}

	embedder, err := embed.New(cfg.Embeddings)
	if err != nil {
		return err
	}
	defer embedder.Close()

	builder, err := store.NewBuilder(cfg.Paths.IndexDir, embedder.Dimensions())
	if err != nil {
		return err
	}
	defer builder.Close()

	out.Statusf("📄", "Indexing %d chunks from %s", len(entries), manifestPath)

	files := make(map[string]int)
	for done := 0; done < len(entries); done += embedBatchSize {
		end := done + embedBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[done:end]

		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = e.Text
		}
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch: %w", err)
		}

		for i, e := range batch {
			seq := files[e.File]
			files[e.File] = seq + 1

			chunk := &store.ChunkRecord{
				ID:   fmt.Sprintf("%s:%d", e.File, seq),
				File: e.File,
				Kind: store.ChunkKind(e.Kind),
				Text: e.Text,
			}
			if err := builder.AddChunk(ctx, chunk, vectors[i]); err != nil {
				return fmt.Errorf("failed to index chunk %s: %w", chunk.ID, err)
			}
			if chunk.Kind == store.ChunkKindSummary {
				if err := builder.AddFileSummary(ctx, e.File, e.Text); err != nil {
					return fmt.Errorf("failed to store summary for %s: %w", e.File, err)
				}
			}
		}

		out.Progress(end, len(entries), "embedding chunks")
	}

	if err := builder.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}

	out.Successf("Indexed %d files (%d chunks) in %s",
		len(files), len(entries), time.Since(started).Round(time.Millisecond))
	return nil
}

// readManifest parses the JSONL manifest, skipping blank lines.
func readManifest(path string) ([]manifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	var entries []manifestEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e manifestEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", lineNum, err)
		}
		if e.File == "" || e.Text == "" {
			return nil, fmt.Errorf("manifest line %d: file and text are required", lineNum)
		}
		switch store.ChunkKind(e.Kind) {
		case store.ChunkKindTitle, store.ChunkKindSummary, store.ChunkKindContent:
		default:
			return nil, fmt.Errorf("manifest line %d: unknown kind %q", lineNum, e.Kind)
		}

		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return entries, nil
}
