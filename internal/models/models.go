package models

import (
	"time"
)

// Embedding lifecycle states for a Document. Only the enqueue operation and
// the ingestion worker may move a document between these states.
const (
	EmbeddingStatusPending    = "pending"
	EmbeddingStatusProcessing = "processing"
	EmbeddingStatusEmbedded   = "embedded"
	EmbeddingStatusFailed     = "failed"
)

// User represents an authenticated operator of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	UserType     string    `db:"user_type" json:"user_type"` // "admin" or "member"
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents an uploaded document and its embedding lifecycle.
type Document struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"` // unique display name
	Description      string    `db:"description" json:"description"`
	DocumentType     string    `db:"document_type" json:"document_type"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	StorageKey       string    `db:"storage_key" json:"-"`
	StorageProvider  string    `db:"storage_provider" json:"storage_provider"` // "s3"
	ContentType      string    `db:"content_type" json:"content_type"`
	SizeBytes        int64     `db:"size_bytes" json:"size_bytes"`
	EmbeddingStatus  string    `db:"embedding_status" json:"embedding_status"`
	EnqueueError     string    `db:"enqueue_error" json:"enqueue_error"`
	EmbeddingError   string    `db:"embedding_error" json:"embedding_error"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentEmbedding is one embedded chunk of a document's extracted text.
// DocumentType is a denormalized copy of the parent's category, kept in sync
// whenever the parent document changes category, so retrieval filters can
// avoid a join.
type DocumentEmbedding struct {
	ID           string            `db:"id" json:"id"`
	DocumentID   string            `db:"document_id" json:"document_id"`
	DocumentType string            `db:"document_type" json:"document_type"`
	ChunkIndex   int               `db:"chunk_index" json:"chunk_index"`
	Content      string            `db:"content" json:"content"`
	Embedding    []float32         `db:"embedding" json:"embedding"` // pgvector column
	Metadata     map[string]string `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}
