package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

const (
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

type DocumentHandler struct {
	ingestor ingestion_engine.Ingestor
	objects  core.ObjectClient
	cfg      *config.Config
	log      hclog.Logger
}

// NewDocumentHandler builds the upload handlers. objects may be nil when object storage is not configured.
func NewDocumentHandler(ing ingestion_engine.Ingestor, objects core.ObjectClient, cfg *config.Config, log hclog.Logger) *DocumentHandler {
	return &DocumentHandler{ingestor: ing, objects: objects, cfg: cfg, log: logging.OrNull(log)}
}

type processResponse struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message"`
	Metadata *models.IngestionResult `json:"metadata"`
}

type batchResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	Processed int                  `json:"processed"`
	Failed    int                  `json:"failed"`
	Results   []models.FileOutcome `json:"results"`
}

type objectRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ProcessFile ingests the multipart field "file".
func (h *DocumentHandler) ProcessFile(w http.ResponseWriter, r *http.Request) {
	if err := h.parseUpload(w, r, h.cfg.MaxUploadBytes+multipartOverhead); err != nil {
		writeError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, core.InputRejected("please select a file to upload").WithCode(core.CodeNoFile))
		return
	}

	artifact, err := h.spool(headers[0])
	if err != nil {
		writeError(w, err)
		return
	}
	h.log.Info("processing upload", "file", artifact.Filename, "size", artifact.Size, "type", artifact.DeclaredType)

	res, err := h.ingestor.Ingest(r.Context(), artifact)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{
		Success:  true,
		Message:  "File processed successfully",
		Metadata: res,
	})
}

// ProcessFiles ingests every file in the multipart field "files" independently.
func (h *DocumentHandler) ProcessFiles(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.MaxUploadBytes*int64(h.cfg.MaxFilesPerRequest) + multipartOverhead
	if err := h.parseUpload(w, r, limit); err != nil {
		writeError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) > h.cfg.MaxFilesPerRequest {
		writeError(w, core.InputRejected("maximum %d files allowed, got %d", h.cfg.MaxFilesPerRequest, len(headers)).
			WithCode(core.CodeTooManyFiles))
		return
	}

	artifacts := make([]*models.UploadArtifact, 0, len(headers))
	for _, fh := range headers {
		a, err := h.spool(fh)
		if err != nil {
			for _, done := range artifacts {
				removeSpool(done)
			}
			writeError(w, err)
			return
		}
		artifacts = append(artifacts, a)
	}

	outcomes, err := h.ingestor.IngestBatch(r.Context(), artifacts)
	if err != nil {
		writeError(w, err)
		return
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, batchResponse{
		Success:   failed == 0,
		Message:   fmt.Sprintf("Processed %d of %d files", len(outcomes)-failed, len(outcomes)),
		Processed: len(outcomes) - failed,
		Failed:    failed,
		Results:   outcomes,
	})
}

const codeStorageNotConfigured = "STORAGE_NOT_CONFIGURED"

// ProcessObject fetches {"bucket","key"} from object storage and ingests it.
func (h *DocumentHandler) ProcessObject(w http.ResponseWriter, r *http.Request) {
	if h.objects == nil {
		writeFailure(w, http.StatusServiceUnavailable, "Object storage not configured",
			"set AWS_ACCESS_KEY, AWS_SECRET_KEY and AWS_REGION to enable object ingestion", codeStorageNotConfigured)
		return
	}

	var req objectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, core.InputRejected("invalid request body: %v", err))
		return
	}
	if req.Key == "" {
		writeError(w, core.InputRejected("key is required").WithCode(core.CodeNoFile))
		return
	}

	obj, err := h.objects.GetFile(r.Context(), req.Bucket, req.Key)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.ingestor.Ingest(r.Context(), &models.UploadArtifact{
		Data:         obj.Data,
		DeclaredType: obj.ContentType,
		Filename:     path.Base(obj.Key),
		Size:         int64(len(obj.Data)),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{
		Success:  true,
		Message:  "Object processed successfully",
		Metadata: res,
	})
}

func (h *DocumentHandler) parseUpload(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return core.InputRejected("maximum upload size is %d bytes", h.cfg.MaxUploadBytes).WithCode(core.CodeFileTooLarge)
	}
	return core.InputRejected("no file uploaded: %v", err).WithCode(core.CodeNoFile)
}

// spool reads the part into memory and keeps a copy under UploadDir until the pipeline removes it.
func (h *DocumentHandler) spool(fh *multipart.FileHeader) (*models.UploadArtifact, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}

	name := filepath.Base(fh.Filename)
	a := &models.UploadArtifact{
		Data:         data,
		DeclaredType: fh.Header.Get("Content-Type"),
		Filename:     name,
		Size:         fh.Size,
	}
	if h.cfg.UploadDir == "" {
		return a, nil
	}

	tmp, err := os.CreateTemp(h.cfg.UploadDir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("spool upload %s: %w", name, err)
	}
	a.SpoolPath = tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		removeSpool(a)
		return nil, fmt.Errorf("spool upload %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		removeSpool(a)
		return nil, fmt.Errorf("spool upload %s: %w", name, err)
	}
	return a, nil
}

func removeSpool(a *models.UploadArtifact) {
	if a.SpoolPath != "" {
		_ = os.Remove(a.SpoolPath)
	}
}
