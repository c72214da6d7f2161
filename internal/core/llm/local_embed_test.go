package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModel(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewLocalEmbedderFailsFast(t *testing.T) {
	_, err := NewLocalEmbedder("")
	assert.ErrorContains(t, err, "LOCAL_EMBED_MODEL_PATH")

	_, err = NewLocalEmbedder(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = NewLocalEmbedder(writeModel(t, `{"dimension":0,"vectors":{}}`))
	assert.ErrorContains(t, err, "dimension")

	_, err = NewLocalEmbedder(writeModel(t, `{"dimension":2,"vectors":{"a":[1]}}`))
	assert.ErrorContains(t, err, "vector")
}

func TestLocalEmbedderAveragesWordVectors(t *testing.T) {
	path := writeModel(t, `{
		"dimension": 2,
		"vectors": {
			"policy": [1, 0],
			"refund": [0, 1]
		}
	}`)
	e, err := NewLocalEmbedder(path)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Dimension())

	vec, err := e.EmbedText(context.Background(), "Policy refund UNKNOWNWORD")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)

	// No known words: zero vector, not an error.
	vec, err = e.EmbedText(context.Background(), "nothing matches")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, vec)
}
