package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/docharbor/docharbor/internal/core"
	"github.com/docharbor/docharbor/internal/models"
)

// allowedExtensions are the upload formats the extraction pipeline handles.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".xlsx": true,
	".pptx": true,
}

type DocumentService struct {
	db      core.DbClient
	storage core.ObjectClient
	queue   core.QueueClient // nil when SQS_QUEUE_URL is not configured
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, queue core.QueueClient) *DocumentService {
	return &DocumentService{db: db, storage: storage, queue: queue}
}

// SaveDocumentInput is everything the upload boundary hands us.
type SaveDocumentInput struct {
	Name         string
	Description  string
	DocumentType string
	Filename     string
	ContentType  string
	Data         []byte
	Metadata     map[string]string
}

// Save validates and persists a new document, uploads its content, and
// enqueues the embedding job. The storage object is removed again if the
// database insert fails, so a rejected upload leaves nothing behind.
func (s *DocumentService) Save(ctx context.Context, in SaveDocumentInput) (*models.Document, error) {
	ext := strings.ToLower(path.Ext(in.Filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
	if len(in.Data) == 0 {
		return nil, validationErrorf("document content is empty")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.Filename
	}
	existing, err := s.db.GetDocumentByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	docID := uuid.NewString()
	key := objectKey(docID, in.Filename)

	if err := s.storage.Save(ctx, key, in.Data, in.ContentType); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	doc := &models.Document{
		ID:               docID,
		Name:             name,
		Description:      in.Description,
		DocumentType:     in.DocumentType,
		OriginalFilename: in.Filename,
		StorageKey:       key,
		StorageProvider:  "s3",
		ContentType:      in.ContentType,
		SizeBytes:        int64(len(in.Data)),
		EmbeddingStatus:  models.EmbeddingStatusPending,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		// Roll the object back so storage does not accumulate orphans.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			log.Printf("rollback object %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := s.Enqueue(ctx, doc, in.Metadata); err != nil {
		// The document exists; the enqueue failure is recorded on it and the
		// caller can retry explicitly.
		log.Printf("document %s: enqueue failed: %v", doc.ID, err)
	}
	return doc, nil
}

// UpdateDocumentInput carries the mutable fields. Nil pointers leave the
// current value untouched.
type UpdateDocumentInput struct {
	Name         *string
	Description  *string
	DocumentType *string
}

// Update mutates a document's metadata. A document_type change is propagated
// to the embedding rows inside the same transaction by the database layer.
func (s *DocumentService) Update(ctx context.Context, id string, in UpdateDocumentInput) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationErrorf("name must not be empty")
		}
		if name != doc.Name {
			existing, err := s.db.GetDocumentByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("check name: %w", err)
			}
			if existing != nil {
				return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
			}
			doc.Name = name
		}
	}
	if in.Description != nil {
		doc.Description = *in.Description
	}
	if in.DocumentType != nil {
		doc.DocumentType = *in.DocumentType
	}

	if err := s.db.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the document row (embedding rows cascade) and then the
// stored object. A missing object is not an error.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.db.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
		log.Printf("delete object %s: %v", doc.StorageKey, err)
	}
	return nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, filter core.DocumentFilter) ([]models.Document, int, error) {
	return s.db.ListDocuments(ctx, filter)
}

func (s *DocumentService) ListTypes(ctx context.Context) ([]string, error) {
	return s.db.ListDocumentTypes(ctx)
}

// embedJob is the queue message the ingestion worker consumes.
type embedJob struct {
	DocumentID       string            `json:"document_id"`
	Name             string            `json:"name,omitempty"`
	DocumentType     string            `json:"document_type,omitempty"`
	OriginalFilename string            `json:"original_filename,omitempty"`
	Key              string            `json:"key,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Enqueue publishes an embedding job for the document. Without a configured
// queue the document is marked failed with the reason in enqueue_error and no
// message is sent. A successful publish resets the document to pending and
// clears both error fields.
func (s *DocumentService) Enqueue(ctx context.Context, doc *models.Document, metadata map[string]string) error {
	if s.queue == nil {
		err := core.ErrQueueURLNotSet
		if dbErr := s.db.SetEnqueueState(ctx, doc.ID, models.EmbeddingStatusFailed, err.Error()); dbErr != nil {
			log.Printf("document %s: record enqueue failure: %v", doc.ID, dbErr)
		}
		return err
	}

	body, err := json.Marshal(embedJob{
		DocumentID:       doc.ID,
		Name:             doc.Name,
		DocumentType:     doc.DocumentType,
		OriginalFilename: doc.OriginalFilename,
		Key:              doc.StorageKey,
		Metadata:         metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := s.queue.Send(ctx, string(body)); err != nil {
		if dbErr := s.db.SetEnqueueState(ctx, doc.ID, models.EmbeddingStatusFailed, err.Error()); dbErr != nil {
			log.Printf("document %s: record enqueue failure: %v", doc.ID, dbErr)
		}
		return fmt.Errorf("send job: %w", err)
	}

	return s.db.SetEnqueueState(ctx, doc.ID, models.EmbeddingStatusPending, "")
}

// RetryEnqueue re-publishes the embedding job for a document, typically one
// stuck in failed. The reset to pending happens through the enqueue path.
func (s *DocumentService) RetryEnqueue(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if err := s.Enqueue(ctx, doc, nil); err != nil {
		return nil, err
	}
	return s.db.GetDocumentByID(ctx, id)
}

// objectKey creates a consistent storage key layout.
func objectKey(docID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("documents", docID, filename)
}
