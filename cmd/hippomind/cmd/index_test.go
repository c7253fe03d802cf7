package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismail180205/HippoMind/internal/store"
)

func writeManifest(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestReadManifest_ParsesChunks(t *testing.T) {
	path := writeManifest(t, `{"file": "a.pdf", "kind": "title", "text": "Coastal Flood Risk"}

{"file": "a.pdf", "kind": "content", "text": "Chapter 1"}
`)

	entries, err := readManifest(path)
	require.NoError(t, err)
	require.Len(t, entries, 2, "blank lines are skipped")
	assert.Equal(t, "a.pdf", entries[0].File)
	assert.Equal(t, "title", entries[0].Kind)
}

func TestReadManifest_RejectsUnknownKind(t *testing.T) {
	path := writeManifest(t, `{"file": "a.pdf", "kind": "footnote", "text": "x"}`)

	_, err := readManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
	assert.Contains(t, err.Error(), "line 1")
}

func TestReadManifest_RequiresFileAndText(t *testing.T) {
	path := writeManifest(t, `{"kind": "content", "text": "orphan chunk"}`)

	_, err := readManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file and text are required")
}

func TestReadManifest_RejectsMalformedJSON(t *testing.T) {
	path := writeManifest(t, `{"file": "a.pdf"`)

	_, err := readManifest(path)
	require.Error(t, err)
}

func TestIndexCmd_BuildsOpenableIndex(t *testing.T) {
	indexDir := filepath.Join(t.TempDir(), "index")
	t.Setenv("HIPPOMIND_INDEX_DIR", indexDir)
	t.Setenv("HIPPOMIND_EMBEDDINGS_PROVIDER", "static")

	manifest := writeManifest(t, `{"file": "flood.pdf", "kind": "title", "text": "Coastal Flood Risk 2024"}
{"file": "flood.pdf", "kind": "summary", "text": "Assesses storm surge exposure."}
{"file": "flood.pdf", "kind": "content", "text": "Chapter 1 describes the survey sites."}
{"file": "census.pdf", "kind": "title", "text": "Household Census Methodology"}
{"file": "census.pdf", "kind": "content", "text": "Sampling frame and enumeration."}
`)

	cmd := newIndexCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{manifest})
	require.NoError(t, cmd.Execute())

	ctx := context.Background()
	catalog, err := store.Open(indexDir, 768)
	require.NoError(t, err)
	defer catalog.Close()

	stats, err := catalog.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 5, stats.Chunks)

	summary, err := catalog.FileSummary(ctx, "flood.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Assesses storm surge exposure.", summary)
}

func TestIndexCmd_EmptyManifestFails(t *testing.T) {
	t.Setenv("HIPPOMIND_INDEX_DIR", filepath.Join(t.TempDir(), "index"))
	t.Setenv("HIPPOMIND_EMBEDDINGS_PROVIDER", "static")

	cmd := newIndexCmd()
	cmd.SetArgs([]string{writeManifest(t, "\n")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chunks")
}
