package chunker

import (
	"fmt"

	"github.com/docharbor/docharbor/internal/core"
)

// Chunk splits text into overlapping token windows using the given encoding.
//
// Windows are chunkSize tokens wide and advance by chunkSize-overlap tokens,
// starting at token 0; the final window may be shorter. Each window is decoded
// back to text and becomes one chunk, in order. An empty token sequence yields
// zero chunks. The function is pure: identical inputs always produce the same
// ordered chunk sequence.
func Chunk(enc core.Encoding, text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap (%d) must be smaller than chunk size (%d)", overlap, chunkSize)
	}

	tokens := enc.Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	stride := chunkSize - overlap
	chunks := make([]string, 0, (len(tokens)+stride-1)/stride)
	for start := 0; start < len(tokens); start += stride {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, enc.Decode(tokens[start:end]))
	}
	return chunks, nil
}
