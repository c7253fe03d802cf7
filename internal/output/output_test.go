package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_StatusMessages(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Success("index built")
	w.Warningf("%d files skipped", 3)
	w.Error("ollama unreachable")
	w.Status("", "continuation line")

	out := buf.String()
	assert.Contains(t, out, "✅ index built")
	assert.Contains(t, out, "3 files skipped")
	assert.Contains(t, out, "❌ ollama unreachable")
	assert.Contains(t, out, "   continuation line")
}

func TestWriter_Progress(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Progress(15, 30, "embedding chunks")
	assert.Contains(t, buf.String(), "50%")
	assert.False(t, strings.HasSuffix(buf.String(), "\n"))

	buf.Reset()
	w.Progress(30, 30, "embedding chunks")
	assert.Contains(t, buf.String(), "100%")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestRenderProgressBar_Bounds(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", 10), renderProgressBar(0, 0, 10))
	assert.Equal(t, strings.Repeat("█", 10), renderProgressBar(20, 10, 10))
}
