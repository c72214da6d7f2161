package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docharbor/docharbor/internal/models"
	"github.com/docharbor/docharbor/internal/testutil"
)

func newInquiryService(allowed []string) (*InquiryService, *testutil.FakeDB, *testutil.FakeLLM) {
	db := testutil.NewFakeDB()
	llm := &testutil.FakeLLM{}
	return NewInquiryService(db, &testutil.FakeEmbedder{}, llm, allowed), db, llm
}

func collectDeltas(buf *strings.Builder) func(string) error {
	return func(d string) error {
		buf.WriteString(d)
		return nil
	}
}

func TestAnswerStreamsFromRetrievedContext(t *testing.T) {
	svc, db, llm := newInquiryService(nil)
	db.Embeddings["doc-1"] = []models.DocumentEmbedding{
		{ID: "e1", DocumentID: "doc-1", DocumentType: "policy", ChunkIndex: 0, Content: "Policy content."},
	}
	llm.Deltas = []string{"Hello ", "world"}

	var out strings.Builder
	err := svc.Answer(context.Background(), "What is the policy?", []string{"policy"}, 5, collectDeltas(&out))
	require.NoError(t, err)

	assert.Equal(t, "Hello world", out.String())

	require.Len(t, llm.Prompts, 2)
	assert.Equal(t, answerSystemPrompt, llm.Prompts[0])
	assert.Contains(t, llm.Prompts[1], "Policy content.")
	assert.Contains(t, llm.Prompts[1], "Question: What is the policy?")
}

func TestAnswerJoinsChunksWithDelimiter(t *testing.T) {
	svc, db, llm := newInquiryService(nil)
	db.Embeddings["doc-1"] = []models.DocumentEmbedding{
		// The query "anything" embeds to [8 1 0]; e1 matches it exactly so it
		// ranks first.
		{ID: "e1", DocumentID: "doc-1", DocumentType: "policy", ChunkIndex: 0, Content: "first chunk", Embedding: []float32{8, 1, 0}},
		{ID: "e2", DocumentID: "doc-1", DocumentType: "policy", ChunkIndex: 1, Content: "second chunk", Embedding: []float32{1, 100, 0}},
	}
	llm.Deltas = []string{"ok"}

	var out strings.Builder
	err := svc.Answer(context.Background(), "anything", []string{"policy"}, 5, collectDeltas(&out))
	require.NoError(t, err)

	require.Len(t, llm.Prompts, 2)
	assert.Contains(t, llm.Prompts[1], "first chunk\n\n---\n\nsecond chunk")
}

func TestAnswerEmptyCorpusIsNotAnError(t *testing.T) {
	svc, _, llm := newInquiryService(nil)
	llm.Deltas = []string{"I don't have enough information."}

	var out strings.Builder
	err := svc.Answer(context.Background(), "anything", []string{"policy"}, 5, collectDeltas(&out))
	require.NoError(t, err)
	assert.Contains(t, llm.Prompts[1], "Context:\n\n\nQuestion: anything")
}

func TestAnswerValidation(t *testing.T) {
	svc, _, _ := newInquiryService([]string{"policy", "handbook"})

	noop := func(string) error { return nil }
	cases := []struct {
		name       string
		query      string
		categories []string
		topK       int
		wantMsg    string
	}{
		{"empty query", "  ", []string{"policy"}, 5, "query must not be empty"},
		{"no categories", "q", nil, 5, "at least one document type"},
		{"bad top_k", "q", []string{"policy"}, 0, "top_k must be a positive integer"},
		{"disallowed categories", "q", []string{"policy", "secret", "internal"}, 5, "not allowed: secret, internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Answer(context.Background(), tc.query, tc.categories, tc.topK, noop)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Msg, tc.wantMsg)
		})
	}
}

func TestAnswerEmbedFailureSurfacesBeforeStreaming(t *testing.T) {
	db := testutil.NewFakeDB()
	embedder := &testutil.FakeEmbedder{Err: errors.New("provider down")}
	llm := &testutil.FakeLLM{Deltas: []string{"never"}}
	svc := NewInquiryService(db, embedder, llm, nil)

	var out strings.Builder
	err := svc.Answer(context.Background(), "q", []string{"policy"}, 5, collectDeltas(&out))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
	assert.Empty(t, out.String(), "no delta may be emitted before the error")
}

func TestAnswerDeltaErrorAbortsStream(t *testing.T) {
	svc, _, llm := newInquiryService(nil)
	llm.Deltas = []string{"a", "b", "c"}

	seen := 0
	err := svc.Answer(context.Background(), "q", []string{"policy"}, 5, func(string) error {
		seen++
		if seen == 2 {
			return errors.New("client went away")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 2, seen)
}
