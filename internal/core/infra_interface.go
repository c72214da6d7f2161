package core

import (
	"context"
	"errors"
	"time"

	"github.com/docharbor/docharbor/internal/models"
)

// UserFilter narrows and pages user listings.
type UserFilter struct {
	Query   string // case-insensitive substring match on email
	Status  string // "active" or "inactive"; empty means all
	Page    int
	PerPage int
}

// DocumentFilter narrows and pages document listings.
type DocumentFilter struct {
	Query           string // case-insensitive substring match on name
	DocumentType    string
	EmbeddingStatus string
	Page            int
	PerPage         int
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, int, error)
	UpdateUser(ctx context.Context, user *models.User) error

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByName(ctx context.Context, name string) (*models.Document, error)
	GetDocumentByStorageKey(ctx context.Context, key string) (*models.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, int, error)
	ListDocumentTypes(ctx context.Context) ([]string, error)

	// UpdateDocument persists mutable document fields and, in the same
	// transaction, propagates the (possibly changed) document_type to every
	// embedding row of the document.
	UpdateDocument(ctx context.Context, doc *models.Document) error
	// SetEmbeddingStatus records an ingestion state transition. A non-empty
	// embeddingErr is stored alongside; an empty one clears the field.
	SetEmbeddingStatus(ctx context.Context, id, status, embeddingErr string) error
	// SetEnqueueState records the outcome of an enqueue attempt. On success
	// (status "pending", empty enqueueErr) both error fields are cleared.
	SetEnqueueState(ctx context.Context, id, status, enqueueErr string) error
	// DeleteDocument removes the document; its embedding rows cascade.
	DeleteDocument(ctx context.Context, id string) error

	DeleteEmbeddingsByDocument(ctx context.Context, documentID string) (int64, error)
	InsertEmbeddings(ctx context.Context, rows []models.DocumentEmbedding) error
	// DocumentsWithEmbeddings reports which of the given document IDs have at
	// least one embedding row.
	DocumentsWithEmbeddings(ctx context.Context, ids []string) (map[string]bool, error)
	// SearchEmbeddings returns the topK rows whose document_type is among the
	// given types, nearest first by cosine distance to the query vector.
	SearchEmbeddings(ctx context.Context, query []float32, documentTypes []string, topK int) ([]models.DocumentEmbedding, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectClient interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// ErrQueueURLNotSet is the named configuration error for a missing
// SQS_QUEUE_URL. It lives here so the queue client and the enqueue operation
// report the same condition and errors.Is matches across layers.
var ErrQueueURLNotSet = errors.New("SQS_QUEUE_URL is not configured")

// QueueMessage is one received work item.
type QueueMessage struct {
	Body          string
	ReceiptHandle string
}

// QueueClient abstracts the work queue (SQS in production).
type QueueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context) ([]QueueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}
