package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/docharbor/docharbor/internal/core"
)

var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// localModel is the on-disk format for the in-process embedding backend:
// a word-vector table plus the vector dimension.
type localModel struct {
	Dimension int                  `json:"dimension"`
	Vectors   map[string][]float32 `json:"vectors"`
}

// LocalEmbedder computes embeddings in-process by averaging word vectors
// loaded once from a model file. It keeps the worker independent of any
// remote API.
type LocalEmbedder struct {
	model localModel
}

// NewLocalEmbedder loads the model file eagerly so a bad path fails at
// startup rather than mid-ingestion.
func NewLocalEmbedder(path string) (*LocalEmbedder, error) {
	if path == "" {
		return nil, fmt.Errorf("LOCAL_EMBED_MODEL_PATH is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("local embed model not accessible at %q: %w", path, err)
	}

	var m localModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse local embed model %q: %w", path, err)
	}
	if m.Dimension <= 0 {
		return nil, fmt.Errorf("local embed model %q: dimension must be positive", path)
	}
	for word, vec := range m.Vectors {
		if len(vec) != m.Dimension {
			return nil, fmt.Errorf("local embed model %q: vector for %q has %d values, want %d", path, word, len(vec), m.Dimension)
		}
	}
	return &LocalEmbedder{model: m}, nil
}

func (e *LocalEmbedder) Dimension() int { return e.model.Dimension }

// EmbedText averages the vectors of known words in the text. Text with no
// known words maps to the zero vector.
func (e *LocalEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	out := make([]float32, e.model.Dimension)
	var n int
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		vec, ok := e.model.Vectors[word]
		if !ok {
			continue
		}
		for i, v := range vec {
			out[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= float32(n)
		}
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*LocalEmbedder)(nil)
