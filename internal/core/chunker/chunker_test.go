package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEncoding is a deterministic word-level encoding for tests: every
// space-separated word is one token.
type wordEncoding struct {
	ids   map[string]int
	words []string
}

func newWordEncoding() *wordEncoding {
	return &wordEncoding{ids: make(map[string]int)}
}

func (e *wordEncoding) Encode(text string) []int {
	var tokens []int
	for _, w := range strings.Fields(text) {
		id, ok := e.ids[w]
		if !ok {
			id = len(e.words)
			e.ids[w] = id
			e.words = append(e.words, w)
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (e *wordEncoding) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = e.words[t]
	}
	return strings.Join(words, " ")
}

func wordsText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunkRejectsBadParameters(t *testing.T) {
	enc := newWordEncoding()

	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"zero chunk size", 0, 0},
		{"negative chunk size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals chunk size", 10, 10},
		{"overlap exceeds chunk size", 10, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk(enc, "some text", tt.chunkSize, tt.overlap)
			assert.Error(t, err)
		})
	}
}

func TestChunkEmptyInput(t *testing.T) {
	chunks, err := Chunk(newWordEncoding(), "", 800, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkCountLaw(t *testing.T) {
	tests := []struct {
		tokens    int
		chunkSize int
		overlap   int
		want      int
	}{
		{1, 800, 100, 1},
		{700, 800, 100, 1},
		{800, 800, 100, 2}, // second window starts at 700 < 800
		{1400, 800, 100, 2},
		{1401, 800, 100, 3},
		{1750, 800, 100, 3},
		{10, 4, 0, 3},
		{10, 4, 2, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d size=%d overlap=%d", tt.tokens, tt.chunkSize, tt.overlap), func(t *testing.T) {
			enc := newWordEncoding()
			chunks, err := Chunk(enc, wordsText(tt.tokens), tt.chunkSize, tt.overlap)
			require.NoError(t, err)

			// ceil(N / (chunkSize - overlap))
			stride := tt.chunkSize - tt.overlap
			assert.Equal(t, (tt.tokens+stride-1)/stride, len(chunks))
			assert.Equal(t, tt.want, len(chunks))
		})
	}
}

func TestChunkWindowOffsets(t *testing.T) {
	enc := newWordEncoding()
	text := wordsText(1750)
	tokens := enc.Encode(text)

	chunks, err := Chunk(enc, text, 800, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Windows start at token offsets 0, 700 and 1400.
	assert.Equal(t, enc.Decode(tokens[0:800]), chunks[0])
	assert.Equal(t, enc.Decode(tokens[700:1500]), chunks[1])
	assert.Equal(t, enc.Decode(tokens[1400:1750]), chunks[2])

	// Last window is the 350-token tail.
	assert.Len(t, enc.Encode(chunks[2]), 350)
}

func TestChunkRoundTrip(t *testing.T) {
	enc := newWordEncoding()
	text := wordsText(137)
	tokens := enc.Encode(text)

	chunks, err := Chunk(enc, text, 40, 7)
	require.NoError(t, err)

	stride := 40 - 7
	for i, c := range chunks {
		start := i * stride
		end := start + 40
		if end > len(tokens) {
			end = len(tokens)
		}
		// Decoding then re-encoding reproduces the original token subsequence.
		assert.Equal(t, tokens[start:end], enc.Encode(c), "chunk %d", i)
	}
}

func TestChunkDeterministic(t *testing.T) {
	enc := newWordEncoding()
	text := wordsText(512)

	a, err := Chunk(enc, text, 100, 25)
	require.NoError(t, err)
	b, err := Chunk(enc, text, 100, 25)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
