package core

import "context"

// EmbeddingProvider turns a piece of text into a fixed-width vector.
// Implementations: OpenAI API, Gemini API, local in-process model.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// StreamingLLM generates an answer and delivers it incrementally. onDelta is
// invoked once per text delta, in emission order; returning an error from it
// aborts the stream.
type StreamingLLM interface {
	StreamCompletion(ctx context.Context, systemPrompt, userPrompt string, onDelta func(delta string) error) error
}
