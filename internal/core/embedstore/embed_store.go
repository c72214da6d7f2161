package embedstore

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/docharbor/docharbor/internal/models"
)

// DefaultBatchSize bounds the size of a single insert transaction.
const DefaultBatchSize = 50

// ChunkStore is the narrow persistence surface the writer needs. The writer
// is the sole component allowed to mutate embedding rows.
type ChunkStore interface {
	DeleteEmbeddingsByDocument(ctx context.Context, documentID string) (int64, error)
	InsertEmbeddings(ctx context.Context, rows []models.DocumentEmbedding) error
}

// EmbedFunc turns one chunk of text into its embedding vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Writer replaces a document's embedding rows as one delete-then-insert run,
// flushing inserts in fixed-size batches.
type Writer struct {
	store     ChunkStore
	batchSize int
}

func NewWriter(store ChunkStore, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Writer{store: store, batchSize: batchSize}
}

// Replace deletes every existing embedding row of the document, then embeds
// each chunk in order and inserts the new rows. Each row carries the
// document's current category and its zero-based chunk index, so re-running
// with identical inputs is idempotent: the prior set is dropped first, never
// mixed with the new one. Returns the number of rows written.
func (w *Writer) Replace(ctx context.Context, doc *models.Document, chunks []string, embed EmbedFunc, metadata map[string]string) (int, error) {
	deleted, err := w.store.DeleteEmbeddingsByDocument(ctx, doc.ID)
	if err != nil {
		return 0, fmt.Errorf("delete stale embeddings: %w", err)
	}
	if deleted > 0 {
		log.Printf("document %s: deleted %d stale embedding rows", doc.ID, deleted)
	}

	batch := make([]models.DocumentEmbedding, 0, w.batchSize)
	written := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.store.InsertEmbeddings(ctx, batch); err != nil {
			return fmt.Errorf("insert embeddings: %w", err)
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for i, chunk := range chunks {
		vec, err := embed(ctx, chunk)
		if err != nil {
			return written, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		batch = append(batch, models.DocumentEmbedding{
			ID:           uuid.NewString(),
			DocumentID:   doc.ID,
			DocumentType: doc.DocumentType,
			ChunkIndex:   i,
			Content:      chunk,
			Embedding:    vec,
			Metadata:     metadata,
		})
		if len(batch) == w.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}
