package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/docharbor/docharbor/internal/core"
)

const answerSystemPrompt = "You are a helpful assistant. Use the provided context to answer the question. " +
	"If the context is insufficient, say you don't have enough information."

// contextDelimiter separates retrieved chunks inside the prompt so the model
// can tell them apart.
const contextDelimiter = "\n\n---\n\n"

// InquiryService answers a question from the embedded corpus: embed the
// query, fetch the nearest chunks within the allowed categories, and stream
// the model's answer. The query path never writes to the database.
type InquiryService struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	llm      core.StreamingLLM

	// allowedTypes is the global category allow-list; empty means any.
	allowedTypes map[string]bool
}

func NewInquiryService(db core.DbClient, embedder core.EmbeddingProvider, llm core.StreamingLLM, allowedTypes []string) *InquiryService {
	allow := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allow[t] = true
	}
	return &InquiryService{db: db, embedder: embedder, llm: llm, allowedTypes: allow}
}

// Answer validates the request, retrieves context, and streams the generated
// answer through onDelta. Validation and retrieval errors surface before any
// delta is emitted; a failure after that terminates the stream.
func (s *InquiryService) Answer(ctx context.Context, query string, categories []string, topK int, onDelta func(string) error) error {
	if strings.TrimSpace(query) == "" {
		return validationErrorf("query must not be empty")
	}
	if len(categories) == 0 {
		return validationErrorf("at least one document type is required")
	}
	if topK <= 0 {
		return validationErrorf("top_k must be a positive integer")
	}
	if len(s.allowedTypes) > 0 {
		var rejected []string
		for _, c := range categories {
			if !s.allowedTypes[c] {
				rejected = append(rejected, c)
			}
		}
		if len(rejected) > 0 {
			return validationErrorf("document types not allowed: %s", strings.Join(rejected, ", "))
		}
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.SearchEmbeddings(ctx, vector, categories, topK)
	if err != nil {
		return fmt.Errorf("search embeddings: %w", err)
	}

	// No matches means an empty context, not an error; the model says so.
	contents := make([]string, len(rows))
	for i, row := range rows {
		contents[i] = row.Content
	}
	contextBlock := strings.Join(contents, contextDelimiter)

	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query)
	return s.llm.StreamCompletion(ctx, answerSystemPrompt, userPrompt, onDelta)
}
