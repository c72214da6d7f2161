package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/docharbor/docharbor/internal/config"
	"github.com/docharbor/docharbor/internal/core"
	"github.com/docharbor/docharbor/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

var _ core.DbClient = (*DatabaseClient)(nil)

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Implementing the db interface for users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, user_type, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.Email, user.PasswordHash, user.UserType, user.Active)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, user_type, active, created_at, updated_at
		FROM users WHERE email = $1
	`
	return c.scanUser(c.db.QueryRowContext(ctx, q, email))
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, user_type, active, created_at, updated_at
		FROM users WHERE id = $1
	`
	return c.scanUser(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) ListUsers(ctx context.Context, filter core.UserFilter) ([]models.User, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where += fmt.Sprintf(" AND email ILIKE $%d", len(args))
	}
	switch filter.Status {
	case "active":
		where += " AND active"
	case "inactive":
		where += " AND NOT active"
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)
	q := `
		SELECT id, email, password_hash, user_type, active, created_at, updated_at
		FROM users` + where + fmt.Sprintf(" ORDER BY email ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.UserType, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (c *DatabaseClient) UpdateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		UPDATE users
		SET email = $2, password_hash = $3, user_type = $4, active = $5, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		user.ID, user.Email, user.PasswordHash, user.UserType, user.Active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	return nil
}

func (c *DatabaseClient) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.UserType, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Implementing the db interface for documents

const documentColumns = `
	id, name, description, document_type, original_filename,
	storage_key, storage_provider, content_type, size_bytes,
	embedding_status, enqueue_error, embedding_error, created_at, updated_at
`

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, name, description, document_type, original_filename,
			 storage_key, storage_provider, content_type, size_bytes,
			 embedding_status, enqueue_error, embedding_error, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Name, doc.Description, doc.DocumentType, doc.OriginalFilename,
		doc.StorageKey, doc.StorageProvider, doc.ContentType, doc.SizeBytes,
		doc.EmbeddingStatus, doc.EnqueueError, doc.EmbeddingError)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	return c.getDocumentBy(ctx, "id", id)
}

func (c *DatabaseClient) GetDocumentByName(ctx context.Context, name string) (*models.Document, error) {
	return c.getDocumentBy(ctx, "name", name)
}

func (c *DatabaseClient) GetDocumentByStorageKey(ctx context.Context, key string) (*models.Document, error) {
	return c.getDocumentBy(ctx, "storage_key", key)
}

func (c *DatabaseClient) getDocumentBy(ctx context.Context, column, value string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE ` + column + ` = $1 LIMIT 1`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, value).Scan(
		&d.ID, &d.Name, &d.Description, &d.DocumentType, &d.OriginalFilename,
		&d.StorageKey, &d.StorageProvider, &d.ContentType, &d.SizeBytes,
		&d.EmbeddingStatus, &d.EnqueueError, &d.EmbeddingError, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context, filter core.DocumentFilter) ([]models.Document, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		where += fmt.Sprintf(" AND document_type = $%d", len(args))
	}
	if filter.EmbeddingStatus != "" {
		args = append(args, filter.EmbeddingStatus)
		where += fmt.Sprintf(" AND embedding_status = $%d", len(args))
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)
	q := `SELECT ` + documentColumns + ` FROM documents` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Description, &d.DocumentType, &d.OriginalFilename,
			&d.StorageKey, &d.StorageProvider, &d.ContentType, &d.SizeBytes,
			&d.EmbeddingStatus, &d.EnqueueError, &d.EmbeddingError, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (c *DatabaseClient) ListDocumentTypes(ctx context.Context) ([]string, error) {
	const q = `
		SELECT DISTINCT document_type FROM documents
		WHERE document_type <> ''
		ORDER BY document_type ASC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateDocument persists mutable fields and propagates the category to the
// document's embedding rows in the same transaction, so retrieval filters
// never observe a half-updated category.
func (c *DatabaseClient) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const q = `
		UPDATE documents
		SET name = $2, description = $3, document_type = $4, original_filename = $5,
		    storage_key = $6, content_type = $7, size_bytes = $8, updated_at = now()
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, q,
		doc.ID, doc.Name, doc.Description, doc.DocumentType, doc.OriginalFilename,
		doc.StorageKey, doc.ContentType, doc.SizeBytes)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return fmt.Errorf("document not found: %s", doc.ID)
	}

	const propagate = `
		UPDATE document_embeddings
		SET document_type = $2, updated_at = now()
		WHERE document_id = $1
	`
	if _, err := tx.ExecContext(ctx, propagate, doc.ID, doc.DocumentType); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *DatabaseClient) SetEmbeddingStatus(ctx context.Context, id, status, embeddingErr string) error {
	q := `
		UPDATE documents
		SET embedding_status = $2, embedding_error = $3, updated_at = now()
		WHERE id = $1
	`
	if status == models.EmbeddingStatusEmbedded {
		// A successful run clears the enqueue error as well.
		q = `
			UPDATE documents
			SET embedding_status = $2, embedding_error = $3, enqueue_error = '', updated_at = now()
			WHERE id = $1
		`
	}
	res, err := c.db.ExecContext(ctx, q, id, status, embeddingErr)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) SetEnqueueState(ctx context.Context, id, status, enqueueErr string) error {
	q := `
		UPDATE documents
		SET embedding_status = $2, enqueue_error = $3, updated_at = now()
		WHERE id = $1
	`
	if enqueueErr == "" {
		// A successful enqueue resets both error fields.
		q = `
			UPDATE documents
			SET embedding_status = $2, enqueue_error = '', embedding_error = '', updated_at = now()
			WHERE id = $1
		`
		res, err := c.db.ExecContext(ctx, q, id, status)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("document not found: %s", id)
		}
		return nil
	}
	res, err := c.db.ExecContext(ctx, q, id, status, enqueueErr)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// DeleteDocument removes the document row; embedding rows go with it via the
// ON DELETE CASCADE foreign key.
func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// Implementing the db interface for document embeddings

func (c *DatabaseClient) DeleteEmbeddingsByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM document_embeddings WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertEmbeddings inserts one batch in a single transaction.
func (c *DatabaseClient) InsertEmbeddings(ctx context.Context, rows []models.DocumentEmbedding) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_embeddings
			(id, document_id, document_type, chunk_index, content, embedding, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		meta, err := marshalMetadata(r.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.DocumentID, r.DocumentType, r.ChunkIndex, r.Content,
			pgvector.NewVector(r.Embedding), meta,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DocumentsWithEmbeddings(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `
		SELECT DISTINCT document_id FROM document_embeddings
		WHERE document_id = ANY($1)
	`
	rows, err := c.db.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// SearchEmbeddings finds the topK chunks among the given categories, nearest
// first by cosine distance to the query vector.
func (c *DatabaseClient) SearchEmbeddings(ctx context.Context, query []float32, documentTypes []string, topK int) ([]models.DocumentEmbedding, error) {
	const q = `
		SELECT id, document_id, document_type, chunk_index, content, embedding, metadata
		FROM document_embeddings
		WHERE document_type = ANY($2)
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(query), documentTypes, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentEmbedding
	for rows.Next() {
		var (
			r    models.DocumentEmbedding
			emb  pgvector.Vector
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.DocumentType, &r.ChunkIndex, &r.Content, &emb, &meta); err != nil {
			return nil, err
		}
		r.Embedding = emb.Slice()
		if r.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func marshalMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalMetadata(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
