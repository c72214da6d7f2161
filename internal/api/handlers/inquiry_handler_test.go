package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docharbor/docharbor/internal/models"
	"github.com/docharbor/docharbor/internal/services"
	"github.com/docharbor/docharbor/internal/testutil"
)

func newInquiryHandler(db *testutil.FakeDB, llm *testutil.FakeLLM) *InquiryHandler {
	svc := services.NewInquiryService(db, &testutil.FakeEmbedder{}, llm, nil)
	return NewInquiryHandler(svc, 5)
}

func TestInquireStreamsPlainText(t *testing.T) {
	db := testutil.NewFakeDB()
	db.Embeddings["doc-1"] = []models.DocumentEmbedding{
		{ID: "e1", DocumentID: "doc-1", DocumentType: "policy", ChunkIndex: 0, Content: "Policy content."},
	}
	llm := &testutil.FakeLLM{Deltas: []string{"Hello ", "world"}}
	h := newInquiryHandler(db, llm)

	body := `{"query": "What is the policy?", "document_types": ["policy"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/inquire", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Inquire(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Hello world", rec.Body.String())
}

func TestInquireRejectsBeforeStreaming(t *testing.T) {
	h := newInquiryHandler(testutil.NewFakeDB(), &testutil.FakeLLM{Deltas: []string{"never"}})

	body := `{"query": "", "document_types": ["policy"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/inquire", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Inquire(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "query must not be empty")
}

func TestInquireDefaultsTopK(t *testing.T) {
	db := testutil.NewFakeDB()
	llm := &testutil.FakeLLM{Deltas: []string{"ok"}}
	h := newInquiryHandler(db, llm)

	body := `{"query": "anything", "document_types": ["policy"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/inquire", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Inquire(rec, req)

	// top_k omitted falls back to the handler default instead of failing
	// validation.
	assert.Equal(t, http.StatusOK, rec.Code)
}
