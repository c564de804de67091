package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/core/llm"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

type fakeIngestor struct {
	mu       sync.Mutex
	seen     []*models.UploadArtifact
	err      error
	batchErr error
}

func (f *fakeIngestor) Ingest(_ context.Context, a *models.UploadArtifact) (*models.IngestionResult, error) {
	f.mu.Lock()
	f.seen = append(f.seen, a)
	f.mu.Unlock()
	if a.SpoolPath != "" {
		defer os.Remove(a.SpoolPath)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.IngestionResult{Filename: a.Filename, Size: a.Size, ResolvedType: "text/plain", ChunkCount: 1}, nil
}

func (f *fakeIngestor) IngestBatch(ctx context.Context, artifacts []*models.UploadArtifact) ([]models.FileOutcome, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([]models.FileOutcome, 0, len(artifacts))
	for _, a := range artifacts {
		var err error
		if strings.HasPrefix(a.Filename, "bad") {
			err = core.ExtractionFailed("no readable text", nil)
			_ = os.Remove(a.SpoolPath)
		}
		if err != nil {
			out = append(out, models.FileOutcome{Filename: a.Filename, Err: err, Error: err.Error()})
			continue
		}
		res, _ := f.Ingest(ctx, a)
		out = append(out, models.FileOutcome{Filename: a.Filename, Result: res})
	}
	return out, nil
}

type fakeObjects struct {
	obj *models.StoredObject
	err error
}

func (f *fakeObjects) GetFile(_ context.Context, bucket, key string) (*models.StoredObject, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.obj, nil
}

type fakeEmbeddingHealth struct{ healthy bool }

func (f fakeEmbeddingHealth) Health(context.Context) llm.HealthStatus {
	return llm.HealthStatus{Provider: "ollama", Model: "mxbai-embed-large", Healthy: f.healthy}
}

func (fakeEmbeddingHealth) Model() string { return "mxbai-embed-large" }

type fakeIndexInfo struct{}

func (fakeIndexInfo) IndexConfigured() bool { return true }
func (fakeIndexInfo) IndexName() string     { return "pinecone:docs" }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment:        "test",
		Port:               "3001",
		MaxUploadBytes:     1 << 20,
		MaxFilesPerRequest: 2,
		UploadDir:          t.TempDir(),
		AllowedTypes:       config.DefaultAllowedTypes,
		AllowedExtensions:  config.DefaultAllowedExtensions,
		EmbedDim:           1024,
		MaxChunkSize:       4000,
	}
}

type part struct {
	field, name, contentType string
	body                     []byte
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestProcessFileSuccess(t *testing.T) {
	cfg := testConfig(t)
	ing := &fakeIngestor{}
	h := NewDocumentHandler(ing, nil, cfg, nil)

	rec := httptest.NewRecorder()
	h.ProcessFile(rec, multipartRequest(t, "/api/process-file",
		part{"file", "notes.txt", "text/plain", []byte("hello world, this is a note")}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, "notes.txt", meta["name"])

	require.Len(t, ing.seen, 1)
	a := ing.seen[0]
	assert.Equal(t, "text/plain", a.DeclaredType)
	assert.Equal(t, []byte("hello world, this is a note"), a.Data)
	assert.NotEmpty(t, a.SpoolPath)
	assert.NoFileExists(t, a.SpoolPath)
}

func TestProcessFileStripsPathFromFilename(t *testing.T) {
	ing := &fakeIngestor{}
	h := NewDocumentHandler(ing, nil, testConfig(t), nil)

	rec := httptest.NewRecorder()
	h.ProcessFile(rec, multipartRequest(t, "/api/process-file",
		part{"file", "../../etc/report.md", "text/markdown", []byte("# Title\n\nbody text here")}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ing.seen, 1)
	assert.Equal(t, "report.md", ing.seen[0].Filename)
}

func TestProcessFileWithoutFile(t *testing.T) {
	h := NewDocumentHandler(&fakeIngestor{}, nil, testConfig(t), nil)

	rec := httptest.NewRecorder()
	h.ProcessFile(rec, multipartRequest(t, "/api/process-file",
		part{"other", "notes.txt", "text/plain", []byte("hello")}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, core.CodeNoFile, body["code"])
}

func TestProcessFileNotMultipart(t *testing.T) {
	h := NewDocumentHandler(&fakeIngestor{}, nil, testConfig(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process-file", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ProcessFile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.CodeNoFile, decode(t, rec)["code"])
}

func TestProcessFileTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxUploadBytes = 1024
	h := NewDocumentHandler(&fakeIngestor{}, nil, cfg, nil)

	rec := httptest.NewRecorder()
	h.ProcessFile(rec, multipartRequest(t, "/api/process-file",
		part{"file", "big.txt", "text/plain", bytes.Repeat([]byte("a"), 2<<20)}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.CodeFileTooLarge, decode(t, rec)["code"])
}

func TestProcessFileErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{"rejected", core.InputRejected("unsupported").WithCode(core.CodeUnsupportedType), http.StatusBadRequest, "Invalid upload"},
		{"extraction", core.ExtractionFailed("no readable text", nil), http.StatusUnprocessableEntity, "Text extraction failed"},
		{"embedding", core.EmbeddingServiceFailed("ollama down", errors.New("dial tcp")), http.StatusServiceUnavailable, "Embedding service unavailable"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Failed to process file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewDocumentHandler(&fakeIngestor{err: tc.err}, nil, testConfig(t), nil)
			rec := httptest.NewRecorder()
			h.ProcessFile(rec, multipartRequest(t, "/api/process-file",
				part{"file", "notes.txt", "text/plain", []byte("some text content")}))

			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tc.title, body["error"])
			assert.NotEmpty(t, body["details"])
			assert.NotEmpty(t, body["timestamp"])
		})
	}
}

func TestProcessFilesReportsPerFileOutcomes(t *testing.T) {
	h := NewDocumentHandler(&fakeIngestor{}, nil, testConfig(t), nil)

	rec := httptest.NewRecorder()
	h.ProcessFiles(rec, multipartRequest(t, "/api/process-files",
		part{"files", "good.txt", "text/plain", []byte("first file content")},
		part{"files", "bad.txt", "text/plain", []byte("second file content")},
	))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(1), body["processed"])
	assert.Equal(t, float64(1), body["failed"])

	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "good.txt", results[0].(map[string]any)["name"])
	assert.NotEmpty(t, results[1].(map[string]any)["error"])
}

func TestProcessFilesTooMany(t *testing.T) {
	cfg := testConfig(t)
	h := NewDocumentHandler(&fakeIngestor{}, nil, cfg, nil)

	rec := httptest.NewRecorder()
	h.ProcessFiles(rec, multipartRequest(t, "/api/process-files",
		part{"files", "a.txt", "text/plain", []byte("a")},
		part{"files", "b.txt", "text/plain", []byte("b")},
		part{"files", "c.txt", "text/plain", []byte("c")},
	))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.CodeTooManyFiles, decode(t, rec)["code"])

	entries, err := os.ReadDir(cfg.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessObject(t *testing.T) {
	ing := &fakeIngestor{}
	objects := &fakeObjects{obj: &models.StoredObject{
		Bucket: "docs", Key: "reports/q1.txt", Data: []byte("quarterly numbers"), ContentType: "text/plain",
	}}
	h := NewDocumentHandler(ing, objects, testConfig(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process-object", strings.NewReader(`{"bucket":"docs","key":"reports/q1.txt"}`))
	rec := httptest.NewRecorder()
	h.ProcessObject(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ing.seen, 1)
	assert.Equal(t, "q1.txt", ing.seen[0].Filename)
	assert.Equal(t, "text/plain", ing.seen[0].DeclaredType)
	assert.Empty(t, ing.seen[0].SpoolPath)
}

func TestProcessObjectNotConfigured(t *testing.T) {
	h := NewDocumentHandler(&fakeIngestor{}, nil, testConfig(t), nil)

	rec := httptest.NewRecorder()
	h.ProcessObject(rec, httptest.NewRequest(http.MethodPost, "/api/process-object", strings.NewReader(`{"key":"a"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Success)
	assert.Equal(t, "Object storage not configured", out.Error)
	assert.Equal(t, "STORAGE_NOT_CONFIGURED", out.Code)
	_, err := time.Parse(time.RFC3339, out.Timestamp)
	assert.NoError(t, err)
}

func TestProcessObjectRequiresKey(t *testing.T) {
	h := NewDocumentHandler(&fakeIngestor{}, &fakeObjects{}, testConfig(t), nil)

	rec := httptest.NewRecorder()
	h.ProcessObject(rec, httptest.NewRequest(http.MethodPost, "/api/process-object", strings.NewReader(`{"bucket":"docs"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthStatus(t *testing.T) {
	for _, healthy := range []bool{true, false} {
		h := NewSystemHandler(fakeEmbeddingHealth{healthy: healthy}, fakeIndexInfo{}, func() bool { return true },
			"http://localhost:11434", testConfig(t))

		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		want := "OK"
		if !healthy {
			want = "DEGRADED"
		}
		assert.Equal(t, want, body["status"])
		assert.Equal(t, "http://localhost:11434", body["embedding"].(map[string]any)["host"])
		assert.Equal(t, true, body["pdfTools"].(map[string]any)["pdftotext"])
		assert.Equal(t, "pinecone:docs", body["index"].(map[string]any)["name"])
	}
}

func TestSupportedTypes(t *testing.T) {
	h := NewSystemHandler(fakeEmbeddingHealth{}, fakeIndexInfo{}, nil, "", testConfig(t))

	rec := httptest.NewRecorder()
	h.SupportedTypes(rec, httptest.NewRequest(http.MethodGet, "/api/supported-types", nil))

	body := decode(t, rec)
	assert.Len(t, body["supportedTypes"], len(config.DefaultAllowedTypes))
	assert.Equal(t, "mxbai-embed-large", body["embeddingModel"])
	assert.Equal(t, "1MB", body["maxFileSize"])
	assert.Equal(t, float64(2), body["maxFiles"])
}

func TestNotFound(t *testing.T) {
	h := NewSystemHandler(fakeEmbeddingHealth{}, fakeIndexInfo{}, nil, "", testConfig(t))

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Route GET /nope not found", body["message"])
	assert.Len(t, body["availableRoutes"], len(Routes))
}
