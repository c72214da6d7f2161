package llm

import (
	"context"
	"fmt"

	"github.com/docharbor/docharbor/internal/config"
	"github.com/docharbor/docharbor/internal/core"
)

// NewEmbedderFromConfig resolves the embedding backend once per run from
// configuration. There is no silent fallback between variants: a misconfigured
// provider fails here.
func NewEmbedderFromConfig(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	switch cfg.AIProvider {
	case "openai":
		return NewOpenAIEmbedder(cfg.AIAPIKey, cfg.EmbedModel)
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
	case "local":
		return NewLocalEmbedder(cfg.LocalEmbedModelPath)
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
}

// NewLLMFromConfig resolves the generation backend. The local provider has no
// generation model, so it pairs with OpenAI for the answer stream.
func NewLLMFromConfig(ctx context.Context, cfg *config.Config) (core.StreamingLLM, error) {
	switch cfg.AIProvider {
	case "openai", "local":
		return NewOpenAILLM(cfg.AIAPIKey, cfg.InferenceModel)
	case "gemini":
		return NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.InferenceModel)
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
}
