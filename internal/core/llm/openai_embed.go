package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docharbor/docharbor/internal/core"
)

type OpenAIEmbedder struct {
	client    *openai.Client
	modelName string
}

// NewOpenAIEmbedder builds the remote embedding backend. Both the API key and
// the model name are required; missing either is a configuration error
// surfaced at construction time, not at first use.
func NewOpenAIEmbedder(apiKey, modelName string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("OPENAI_EMBEDDING_MODEL is required")
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(apiKey),
		modelName: modelName,
	}, nil
}

func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.modelName),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embed: empty response")
	}
	return resp.Data[0].Embedding, nil
}

var _ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)
