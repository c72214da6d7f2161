package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/docharbor/docharbor/internal/services"
)

type InquiryHandler struct {
	inquiries   *services.InquiryService
	defaultTopK int
}

func NewInquiryHandler(inquiries *services.InquiryService, defaultTopK int) *InquiryHandler {
	return &InquiryHandler{inquiries: inquiries, defaultTopK: defaultTopK}
}

type inquireRequest struct {
	Query         string   `json:"query"`
	DocumentTypes []string `json:"document_types"`
	TopK          int      `json:"top_k"`
}

// Inquire answers a question over the embedded corpus as a plain-text stream.
// Validation and retrieval errors come back as a JSON error body; once the
// first delta is written the response is committed and a later failure just
// ends the stream.
func (h *InquiryHandler) Inquire(w http.ResponseWriter, r *http.Request) {
	var req inquireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.TopK == 0 {
		req.TopK = h.defaultTopK
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	started := false
	err := h.inquiries.Answer(r.Context(), req.Query, req.DocumentTypes, req.TopK, func(delta string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(delta)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			writeServiceError(w, err)
			return
		}
		// Best effort: the stream just stops.
		log.Printf("inquire stream aborted: %v", err)
	}
}
