// Package testutil provides in-memory fakes for the core interfaces so the
// pipeline and services can be tested without Postgres, S3 or SQS.
package testutil

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/docharbor/docharbor/internal/core"
	"github.com/docharbor/docharbor/internal/models"
)

// FakeDB is an in-memory core.DbClient.
type FakeDB struct {
	mu         sync.Mutex
	Users      map[string]*models.User
	Documents  map[string]*models.Document
	Embeddings map[string][]models.DocumentEmbedding

	// StatusLog records embedding status transitions as "id:status".
	StatusLog []string

	// Error hooks for failure-path tests.
	GetDocumentErr error
	InsertErr      error
}

func NewFakeDB() *FakeDB {
	return &FakeDB{
		Users:      make(map[string]*models.User),
		Documents:  make(map[string]*models.Document),
		Embeddings: make(map[string][]models.DocumentEmbedding),
	}
}

var _ core.DbClient = (*FakeDB)(nil)

func (f *FakeDB) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Email == user.Email {
			return fmt.Errorf("duplicate email %q", user.Email)
		}
	}
	cp := *user
	f.Users[user.ID] = &cp
	return nil
}

func (f *FakeDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *FakeDB) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.Users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *FakeDB) ListUsers(_ context.Context, filter core.UserFilter) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.User
	for _, u := range f.Users {
		if filter.Query != "" && !strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.Status == "active" && !u.Active {
			continue
		}
		if filter.Status == "inactive" && u.Active {
			continue
		}
		matched = append(matched, *u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *FakeDB) UpdateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Users[user.ID]; !ok {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	for id, u := range f.Users {
		if id != user.ID && u.Email == user.Email {
			return fmt.Errorf("duplicate email %q", user.Email)
		}
	}
	cp := *user
	f.Users[user.ID] = &cp
	return nil
}

func (f *FakeDB) CreateDocument(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.Documents {
		if d.Name == doc.Name {
			return fmt.Errorf("duplicate document name %q", doc.Name)
		}
	}
	cp := *doc
	f.Documents[doc.ID] = &cp
	return nil
}

func (f *FakeDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	if f.GetDocumentErr != nil {
		return nil, f.GetDocumentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.Documents[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (f *FakeDB) GetDocumentByName(_ context.Context, name string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.Documents {
		if d.Name == name {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *FakeDB) GetDocumentByStorageKey(_ context.Context, key string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.Documents {
		if d.StorageKey == key {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *FakeDB) ListDocuments(_ context.Context, filter core.DocumentFilter) ([]models.Document, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for _, d := range f.Documents {
		if filter.Query != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.DocumentType != "" && d.DocumentType != filter.DocumentType {
			continue
		}
		if filter.EmbeddingStatus != "" && d.EmbeddingStatus != filter.EmbeddingStatus {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (f *FakeDB) ListDocumentTypes(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, d := range f.Documents {
		if d.DocumentType != "" && !seen[d.DocumentType] {
			seen[d.DocumentType] = true
			out = append(out, d.DocumentType)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FakeDB) UpdateDocument(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.Documents[doc.ID]
	if !ok {
		return fmt.Errorf("document not found: %s", doc.ID)
	}
	for id, d := range f.Documents {
		if id != doc.ID && d.Name == doc.Name {
			return fmt.Errorf("duplicate document name %q", doc.Name)
		}
	}
	cp := *doc
	cp.EmbeddingStatus = stored.EmbeddingStatus
	cp.EnqueueError = stored.EnqueueError
	cp.EmbeddingError = stored.EmbeddingError
	f.Documents[doc.ID] = &cp

	rows := f.Embeddings[doc.ID]
	for i := range rows {
		rows[i].DocumentType = doc.DocumentType
	}
	return nil
}

func (f *FakeDB) SetEmbeddingStatus(_ context.Context, id, status, embeddingErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.Documents[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	d.EmbeddingStatus = status
	d.EmbeddingError = embeddingErr
	if status == models.EmbeddingStatusEmbedded {
		d.EnqueueError = ""
	}
	f.StatusLog = append(f.StatusLog, id+":"+status)
	return nil
}

func (f *FakeDB) SetEnqueueState(_ context.Context, id, status, enqueueErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.Documents[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	d.EmbeddingStatus = status
	d.EnqueueError = enqueueErr
	if enqueueErr == "" {
		d.EmbeddingError = ""
	}
	f.StatusLog = append(f.StatusLog, id+":"+status)
	return nil
}

func (f *FakeDB) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Documents[id]; !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	delete(f.Documents, id)
	delete(f.Embeddings, id)
	return nil
}

func (f *FakeDB) DeleteEmbeddingsByDocument(_ context.Context, documentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.Embeddings[documentID]))
	delete(f.Embeddings, documentID)
	return n, nil
}

func (f *FakeDB) InsertEmbeddings(_ context.Context, rows []models.DocumentEmbedding) error {
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		for _, existing := range f.Embeddings[r.DocumentID] {
			if existing.ChunkIndex == r.ChunkIndex {
				return fmt.Errorf("duplicate chunk index %d for document %s", r.ChunkIndex, r.DocumentID)
			}
		}
		f.Embeddings[r.DocumentID] = append(f.Embeddings[r.DocumentID], r)
	}
	return nil
}

func (f *FakeDB) DocumentsWithEmbeddings(_ context.Context, ids []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if len(f.Embeddings[id]) > 0 {
			out[id] = true
		}
	}
	return out, nil
}

func (f *FakeDB) SearchEmbeddings(_ context.Context, query []float32, documentTypes []string, topK int) ([]models.DocumentEmbedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := make(map[string]bool, len(documentTypes))
	for _, t := range documentTypes {
		allowed[t] = true
	}

	var out []models.DocumentEmbedding
	for _, rows := range f.Embeddings {
		for _, r := range rows {
			if allowed[r.DocumentType] {
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return cosineDistance(query, out[i].Embedding) < cosineDistance(query, out[j].Embedding)
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *FakeDB) Close() error { return nil }

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
