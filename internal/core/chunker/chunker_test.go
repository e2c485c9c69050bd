package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter()
	pieces := s.Split("The quick brown fox jumps over the lazy dog.")
	require.Len(t, pieces, 1)
	assert.Equal(t, 0, pieces[0].Start)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", pieces[0].Text)
}

func TestSplitEmpty(t *testing.T) {
	s := NewSplitter()
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t "))
}

func TestSplitSyntheticOverlapSpans(t *testing.T) {
	// 2500 unbreakable characters, size 1000 / overlap 50: three chunks with
	// fixed spans and 50-rune overlap regions.
	s := NewSplitter()
	text := strings.Repeat("a", 2500)

	pieces := s.Split(text)
	require.Len(t, pieces, 3)

	assert.Equal(t, 0, pieces[0].Start)
	assert.Equal(t, 1000, pieces[0].End)
	assert.Equal(t, 950, pieces[1].Start)
	assert.Equal(t, 1950, pieces[1].End)
	assert.Equal(t, 1900, pieces[2].Start)
	assert.Equal(t, 2500, pieces[2].End)

	for i := 1; i < len(pieces); i++ {
		assert.Equal(t, pieces[i-1].End-DefaultOverlap, pieces[i].Start)
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 60)

	a := s.Split(text)
	b := s.Split(text)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i], b[i])
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	// A sentence end sits inside the lookback window; the cut should land
	// right after it instead of mid-word.
	s := &Splitter{Size: 100, Overlap: 10}
	text := strings.Repeat("w", 80) + ". " + strings.Repeat("x", 200)

	pieces := s.Split(text)
	require.True(t, len(pieces) >= 2)
	assert.Equal(t, 82, pieces[0].End, "cut should follow the sentence end")
	assert.True(t, strings.HasSuffix(pieces[0].Text, ". "))
}

func TestSplitNoChunkExceedsSize(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("word and another word. ", 500)
	for _, p := range s.Split(text) {
		assert.LessOrEqual(t, len([]rune(p.Text)), DefaultSize)
	}
}

func TestReassembleRoundTrip(t *testing.T) {
	s := NewSplitter()
	cases := []string{
		"short text",
		strings.Repeat("a", 2500),
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 120),
		"para one\n\npara two " + strings.Repeat("filler words here ", 200),
	}
	for _, text := range cases {
		pieces := s.Split(text)
		assert.Equal(t, text, Reassemble(pieces))
	}
}
