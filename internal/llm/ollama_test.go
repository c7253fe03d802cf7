package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate_ShortStringUntouched(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello", truncate("hello", 5))
}

func TestTruncate_CutsOnRuneBoundary(t *testing.T) {
	// A two-byte rune straddling the byte limit must not be split.
	s := strings.Repeat("a", 9) + "étc"
	got := truncate(s, 10)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 9), got)
}
