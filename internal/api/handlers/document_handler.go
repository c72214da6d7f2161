package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/docharbor/docharbor/internal/core"
	"github.com/docharbor/docharbor/internal/models"
	"github.com/docharbor/docharbor/internal/services"
)

const maxUploadBytes = 52 << 20 // 52 MB

type DocumentHandler struct {
	docs *services.DocumentService
}

func NewDocumentHandler(docs *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Upload handles multipart file upload, metadata insert, and job enqueue.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.docs.Save(r.Context(), services.SaveDocumentInput{
		Name:         r.FormValue("name"),
		Description:  r.FormValue("description"),
		DocumentType: r.FormValue("document_type"),
		// Strip any path components a client might smuggle in.
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type documentListResponse struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	PerPage   int               `json:"per_page"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, core.DocumentFilter{
		Query:           r.URL.Query().Get("q"),
		DocumentType:    r.URL.Query().Get("document_type"),
		EmbeddingStatus: r.URL.Query().Get("embedding_status"),
	})
}

// ListPublic exposes the embedded corpus without authentication; documents
// still being ingested (or failed) stay hidden.
func (h *DocumentHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, core.DocumentFilter{
		Query:           r.URL.Query().Get("q"),
		DocumentType:    r.URL.Query().Get("document_type"),
		EmbeddingStatus: models.EmbeddingStatusEmbedded,
	})
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request, filter core.DocumentFilter) {
	filter.Page = queryInt(r, "page", 1)
	filter.PerPage = queryInt(r, "per_page", 20)

	docs, total, err := h.docs.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, documentListResponse{
		Documents: docs,
		Total:     total,
		Page:      filter.Page,
		PerPage:   filter.PerPage,
	})
}

func (h *DocumentHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.docs.ListTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"document_types": types})
}

type updateDocumentRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DocumentType *string `json:"document_type"`
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	doc, err := h.docs.Update(r.Context(), chi.URLParam(r, "id"), services.UpdateDocumentInput{
		Name:         req.Name,
		Description:  req.Description,
		DocumentType: req.DocumentType,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryEnqueue re-publishes the embedding job for a failed document.
func (h *DocumentHandler) RetryEnqueue(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.RetryEnqueue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
