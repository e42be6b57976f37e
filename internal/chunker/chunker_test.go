package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextReturnedWhole(t *testing.T) {
	c := New()
	chunks := c.Split("a short page")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short page", chunks[0])
}

func TestSplit_EmptyTextYieldsNothing(t *testing.T) {
	c := New()
	assert.Empty(t, c.Split(""))
}

func TestSplit_ExactBoundaryIsSingleChunk(t *testing.T) {
	c := New()
	text := strings.Repeat("x", DefaultMaxChars)
	chunks := c.Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_WindowsCoverWholeInput(t *testing.T) {
	c := New()
	text := strings.Repeat("abcdefghij", 500) // 5000 chars

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	// Every chunk within bounds and non-empty.
	for i, ch := range chunks {
		assert.NotEmpty(t, ch, "chunk %d", i)
		assert.LessOrEqual(t, len(ch), DefaultMaxChars, "chunk %d", i)
	}

	// Reconstruct: each subsequent chunk repeats the previous overlap, so
	// dropping the overlap prefix from chunks 1..n must rebuild the input.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		rebuilt.WriteString(ch[DefaultOverlap:])
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	c := NewWithLimits(100, 20)
	text := strings.Repeat("0123456789", 35) // 350 chars

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-20:]
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d does not start with the previous chunk's overlap", i)
	}
}

func TestSplit_LastChunkReachesEnd(t *testing.T) {
	c := NewWithLimits(100, 10)
	text := strings.Repeat("z", 1001)
	chunks := c.Split(text)
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(text, last))
}

func TestSplit_LimitsCountCharactersNotBytes(t *testing.T) {
	c := New()

	// 1000 three-byte characters fit a single 1200-char window.
	uniform := strings.Repeat("€", 1000)
	chunks := c.Split(uniform)
	require.Len(t, chunks, 1)
	assert.Equal(t, uniform, chunks[0])
}

func TestSplit_MultiByteBoundariesStayValid(t *testing.T) {
	c := New()
	text := "a" + strings.Repeat("€", 3000)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.True(t, utf8.ValidString(ch), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(ch), DefaultMaxChars, "chunk %d", i)
	}

	// Reconstruction must hold for multi-byte text too.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		rebuilt.WriteString(string([]rune(ch)[DefaultOverlap:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestNewWithLimits_ClampsDegenerateOverlap(t *testing.T) {
	c := NewWithLimits(10, 50)
	// Must terminate despite overlap >= maxChars being requested.
	chunks := c.Split(strings.Repeat("y", 100))
	assert.NotEmpty(t, chunks)
}
