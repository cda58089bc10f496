// Package handler exposes the ingestion pipeline over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/searchcore/kbsearch/internal/ingest"
	apperrors "github.com/searchcore/kbsearch/pkg/errors"
	"github.com/searchcore/kbsearch/pkg/logger"
)

type Handler struct {
	publisher *ingest.Publisher
	logger    *slog.Logger
}

func New(pub *ingest.Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingest-handler"),
	}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req ingest.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ingest.ValidateIngestRequest(&req); err != nil {
		var validationErr *ingest.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.publisher.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("document accepted", "doc_id", resp.DocumentID)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	docID := r.PathValue("id")
	if docID == "" {
		h.writeError(w, http.StatusBadRequest, "document id is required")
		return
	}
	if err := h.publisher.Delete(ctx, docID); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("delete failed", "doc_id", docID, "error", err)
		h.writeError(w, statusCode, "delete failed")
		return
	}
	log.Info("document delete accepted", "doc_id", docID)
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"document_id": docID,
		"status":      "delete_pending",
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
