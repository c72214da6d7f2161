package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docharbor/docharbor/internal/core"
)

type OpenAILLM struct {
	client    *openai.Client
	modelName string
}

func NewOpenAILLM(apiKey, modelName string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("OPENAI_INFERENCE_MODEL is required")
	}
	return &OpenAILLM{
		client:    openai.NewClient(apiKey),
		modelName: modelName,
	}, nil
}

// StreamCompletion requests a streaming chat completion and forwards each
// text delta to onDelta in emission order. Failures before the first delta
// surface as a plain error; onDelta returning an error aborts the stream.
func (g *OpenAILLM) StreamCompletion(ctx context.Context, systemPrompt, userPrompt string, onDelta func(delta string) error) error {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: g.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("openai stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
	}
}

var _ core.StreamingLLM = (*OpenAILLM)(nil)
