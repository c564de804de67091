package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core/llm"
)

const serviceVersion = "1.0.0"

// Routes lists the endpoints reported by the banner and the 404 handler.
var Routes = []string{
	"GET /",
	"GET /api/health",
	"GET /api/supported-types",
	"GET /api/test",
	"GET /metrics",
	"POST /api/process-file",
	"POST /api/process-files",
	"POST /api/process-object",
}

type EmbeddingHealth interface {
	Health(ctx context.Context) llm.HealthStatus
	Model() string
}

type IndexInfo interface {
	IndexConfigured() bool
	IndexName() string
}

type SystemHandler struct {
	embedding   EmbeddingHealth
	index       IndexInfo
	pdfTool     func() bool
	embedHost   string
	cfg         *config.Config
	started     time.Time
	environment string
}

// NewSystemHandler builds the informational endpoints. pdfTool reports whether the PDF converter is installed.
func NewSystemHandler(emb EmbeddingHealth, index IndexInfo, pdfTool func() bool, embedHost string, cfg *config.Config) *SystemHandler {
	if pdfTool == nil {
		pdfTool = func() bool { return false }
	}
	return &SystemHandler{
		embedding:   emb,
		index:       index,
		pdfTool:     pdfTool,
		embedHost:   embedHost,
		cfg:         cfg,
		started:     time.Now(),
		environment: cfg.Environment,
	}
}

func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Document Processing Server",
		"version": serviceVersion,
		"status":  "running",
		"endpoints": map[string]string{
			"health":         "/api/health",
			"processFile":    "/api/process-file",
			"processFiles":   "/api/process-files",
			"processObject":  "/api/process-object",
			"supportedTypes": "/api/supported-types",
			"test":           "/api/test",
			"metrics":        "/metrics",
		},
	})
}

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Server    serverHealth   `json:"server"`
	Embedding embeddingState `json:"embedding"`
	PdfTools  map[string]any `json:"pdfTools"`
	Index     indexState     `json:"index"`
}

type serverHealth struct {
	Port          string  `json:"port"`
	UptimeSeconds float64 `json:"uptime"`
}

type embeddingState struct {
	Host string `json:"host"`
	llm.HealthStatus
}

type indexState struct {
	Configured bool   `json:"configured"`
	Name       string `json:"name,omitempty"`
}

// Health reports OK when the embedding service serves the configured model and DEGRADED otherwise.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	emb := h.embedding.Health(ctx)
	status := "OK"
	if !emb.Healthy {
		status = "DEGRADED"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Server: serverHealth{
			Port:          h.cfg.Port,
			UptimeSeconds: time.Since(h.started).Seconds(),
		},
		Embedding: embeddingState{Host: h.embedHost, HealthStatus: emb},
		PdfTools:  map[string]any{"pdftotext": h.pdfTool()},
		Index: indexState{
			Configured: h.index.IndexConfigured(),
			Name:       h.index.IndexName(),
		},
	})
}

func (h *SystemHandler) SupportedTypes(w http.ResponseWriter, r *http.Request) {
	maxMB := fmt.Sprintf("%dMB", h.cfg.MaxUploadBytes>>20)
	writeJSON(w, http.StatusOK, map[string]any{
		"supportedTypes":      h.cfg.AllowedTypes,
		"supportedExtensions": h.cfg.AllowedExtensions,
		"embeddingModel":      h.embedding.Model(),
		"dimensions":          h.cfg.EmbedDim,
		"maxChunkSize":        h.cfg.MaxChunkSize,
		"maxFileSize":         maxMB,
		"maxFiles":            h.cfg.MaxFilesPerRequest,
		"recommendations": map[string]string{
			"pdf":           "For best PDF results, install poppler-utils (pdftotext)",
			"imageBasedPdf": "Image-based PDFs require OCR preprocessing",
			"maxFileSize":   maxMB + " per file",
		},
	})
}

func (h *SystemHandler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Server is running!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"env":       h.environment,
	})
}

func (h *SystemHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":           "Not found",
		"message":         fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path),
		"availableRoutes": Routes,
	})
}
