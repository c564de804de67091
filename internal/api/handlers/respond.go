package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Details   string `json:"details"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps an ingestion error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInputRejected):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrEmbeddingService):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorTitle(err error) string {
	switch core.KindOf(err) {
	case core.KindInputRejected:
		return "Invalid upload"
	case core.KindExtraction:
		return "Text extraction failed"
	case core.KindEmbeddingService:
		return "Embedding service unavailable"
	default:
		return "Failed to process file"
	}
}

func writeError(w http.ResponseWriter, err error) {
	details := err.Error()
	var ie *core.IngestError
	if errors.As(err, &ie) {
		details = ie.Message()
	}
	writeFailure(w, StatusFor(err), errorTitle(err), details, core.CodeOf(err))
}

func writeFailure(w http.ResponseWriter, status int, title, details, code string) {
	writeJSON(w, status, errorResponse{
		Error:     title,
		Details:   details,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
