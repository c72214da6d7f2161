package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docharbor/docharbor/internal/core"
	"github.com/docharbor/docharbor/internal/models"
	"github.com/docharbor/docharbor/internal/testutil"
)

func newDocumentService() (*DocumentService, *testutil.FakeDB, *testutil.FakeStorage, *testutil.FakeQueue) {
	db := testutil.NewFakeDB()
	storage := testutil.NewFakeStorage()
	queue := &testutil.FakeQueue{}
	return NewDocumentService(db, storage, queue), db, storage, queue
}

func TestSaveCreatesDocumentAndEnqueues(t *testing.T) {
	svc, db, storage, queue := newDocumentService()

	doc, err := svc.Save(context.Background(), SaveDocumentInput{
		Name:         "Employee Handbook",
		DocumentType: "policy",
		Filename:     "handbook v3.pdf",
		ContentType:  "application/pdf",
		Data:         []byte("%PDF-1.7 fake"),
		Metadata:     map[string]string{"source": "hr"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Employee Handbook", doc.Name)
	assert.Equal(t, models.EmbeddingStatusPending, doc.EmbeddingStatus)
	assert.Equal(t, int64(len("%PDF-1.7 fake")), doc.SizeBytes)
	assert.Contains(t, storage.Objects, doc.StorageKey)
	assert.NotContains(t, doc.StorageKey, " ", "spaces are not allowed in storage keys")

	require.Len(t, queue.Sent, 1)
	var job map[string]any
	require.NoError(t, json.Unmarshal([]byte(queue.Sent[0]), &job))
	assert.Equal(t, doc.ID, job["document_id"])
	assert.Equal(t, doc.StorageKey, job["key"])

	stored := db.Documents[doc.ID]
	require.NotNil(t, stored)
	assert.Empty(t, stored.EnqueueError)
}

func TestSaveRejectsUnsupportedExtension(t *testing.T) {
	svc, db, storage, _ := newDocumentService()

	_, err := svc.Save(context.Background(), SaveDocumentInput{
		Filename:    "payload.exe",
		ContentType: "application/octet-stream",
		Data:        []byte("binary"),
	})
	require.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.Empty(t, db.Documents)
	assert.Empty(t, storage.Objects)
}

func TestSaveDefaultsNameToFilename(t *testing.T) {
	svc, _, _, _ := newDocumentService()

	doc, err := svc.Save(context.Background(), SaveDocumentInput{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Name)
}

func TestSaveNameConflictRollsBackStorage(t *testing.T) {
	svc, db, storage, queue := newDocumentService()

	_, err := svc.Save(context.Background(), SaveDocumentInput{
		Name: "handbook", Filename: "a.txt", ContentType: "text/plain", Data: []byte("one"),
	})
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), SaveDocumentInput{
		Name: "handbook", Filename: "b.txt", ContentType: "text/plain", Data: []byte("two"),
	})
	require.ErrorIs(t, err, ErrNameTaken)

	assert.Len(t, db.Documents, 1)
	assert.Len(t, storage.Objects, 1, "the rejected upload must not leave an object behind")
	assert.Len(t, queue.Sent, 1)
}

func TestEnqueueWithoutQueueMarksFailed(t *testing.T) {
	db := testutil.NewFakeDB()
	storage := testutil.NewFakeStorage()
	svc := NewDocumentService(db, storage, nil)

	doc, err := svc.Save(context.Background(), SaveDocumentInput{
		Name: "handbook", Filename: "a.txt", ContentType: "text/plain", Data: []byte("one"),
	})
	require.NoError(t, err, "the document is still saved when enqueue fails")

	stored := db.Documents[doc.ID]
	assert.Equal(t, models.EmbeddingStatusFailed, stored.EmbeddingStatus)
	assert.Contains(t, stored.EnqueueError, "SQS_QUEUE_URL")

	// The configuration error is the shared sentinel, matchable across
	// layers.
	err = svc.Enqueue(context.Background(), stored, nil)
	assert.ErrorIs(t, err, core.ErrQueueURLNotSet)
}

func TestEnqueueSendErrorMarksFailed(t *testing.T) {
	svc, db, _, queue := newDocumentService()
	queue.SendErr = errors.New("queue unreachable")

	doc, err := svc.Save(context.Background(), SaveDocumentInput{
		Name: "handbook", Filename: "a.txt", ContentType: "text/plain", Data: []byte("one"),
	})
	require.NoError(t, err)

	stored := db.Documents[doc.ID]
	assert.Equal(t, models.EmbeddingStatusFailed, stored.EmbeddingStatus)
	assert.Contains(t, stored.EnqueueError, "queue unreachable")
	assert.Empty(t, queue.Sent)
}

func TestRetryEnqueueResetsFailedDocument(t *testing.T) {
	svc, db, _, queue := newDocumentService()
	queue.SendErr = errors.New("queue unreachable")

	doc, err := svc.Save(context.Background(), SaveDocumentInput{
		Name: "handbook", Filename: "a.txt", ContentType: "text/plain", Data: []byte("one"),
	})
	require.NoError(t, err)
	require.Equal(t, models.EmbeddingStatusFailed, db.Documents[doc.ID].EmbeddingStatus)

	queue.SendErr = nil
	updated, err := svc.RetryEnqueue(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, models.EmbeddingStatusPending, updated.EmbeddingStatus)
	assert.Empty(t, updated.EnqueueError)
	assert.Empty(t, updated.EmbeddingError)
	assert.Len(t, queue.Sent, 1)
}

func TestUpdatePropagatesDocumentType(t *testing.T) {
	svc, db, _, _ := newDocumentService()

	doc, err := svc.Save(context.Background(), SaveDocumentInput{
		Name: "handbook", DocumentType: "policy",
		Filename: "a.txt", ContentType: "text/plain", Data: []byte("one"),
	})
	require.NoError(t, err)

	db.Embeddings[doc.ID] = []models.DocumentEmbedding{
		{ID: "e1", DocumentID: doc.ID, DocumentType: "policy", ChunkIndex: 0, Content: "c0"},
		{ID: "e2", DocumentID: doc.ID, DocumentType: "policy", ChunkIndex: 1, Content: "c1"},
	}

	newType := "handbook"
	updated, err := svc.Update(context.Background(), doc.ID, UpdateDocumentInput{DocumentType: &newType})
	require.NoError(t, err)
	assert.Equal(t, "handbook", updated.DocumentType)

	for _, row := range db.Embeddings[doc.ID] {
		assert.Equal(t, "handbook", row.DocumentType)
	}
}

func TestUpdateRejectsTakenName(t *testing.T) {
	svc, _, _, _ := newDocumentService()

	_, err := svc.Save(context.Background(), SaveDocumentInput{
		Name: "first", Filename: "a.txt", ContentType: "text/plain", Data: []byte("one"),
	})
	require.NoError(t, err)
	doc, err := svc.Save(context.Background(), SaveDocumentInput{
		Name: "second", Filename: "b.txt", ContentType: "text/plain", Data: []byte("two"),
	})
	require.NoError(t, err)

	taken := "first"
	_, err = svc.Update(context.Background(), doc.ID, UpdateDocumentInput{Name: &taken})
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestDeleteRemovesEmbeddingsAndObject(t *testing.T) {
	svc, db, storage, _ := newDocumentService()

	doc, err := svc.Save(context.Background(), SaveDocumentInput{
		Name: "handbook", Filename: "a.txt", ContentType: "text/plain", Data: []byte("one"),
	})
	require.NoError(t, err)
	db.Embeddings[doc.ID] = []models.DocumentEmbedding{
		{ID: "e1", DocumentID: doc.ID, ChunkIndex: 0, Content: "c0"},
	}

	require.NoError(t, svc.Delete(context.Background(), doc.ID))

	assert.Empty(t, db.Documents)
	assert.Empty(t, db.Embeddings[doc.ID], "embedding rows cascade with the document")
	assert.NotContains(t, storage.Objects, doc.StorageKey)

	err = svc.Delete(context.Background(), doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
