package objectclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// fakeS3 serves one object over path-style HEAD and ranged GET requests.
func fakeS3(t *testing.T, bucket, key, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+bucket+"/"+key {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", contentType)
		switch r.Method {
		case http.MethodHead:
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			w.Header().Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", len(body)-1, len(body)))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, endpoint string, maxBytes int64) *S3Client {
	t.Helper()
	c, err := NewS3Client(context.Background(), &cfg.Config{
		AwsAccessKey:   "test",
		AwsSecretKey:   "test",
		AwsRegion:      "us-east-1",
		BucketName:     "docs",
		S3Endpoint:     endpoint,
		MaxUploadBytes: maxBytes,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNewS3ClientRequiresCredentials(t *testing.T) {
	_, err := NewS3Client(context.Background(), &cfg.Config{AwsRegion: "us-east-1"}, nil)
	assert.Error(t, err)
}

func TestGetFileDownloadsObject(t *testing.T) {
	body := []byte("quarterly revenue grew in every region")
	srv := fakeS3(t, "docs", "reports/q1.txt", "text/plain", body)
	c := newTestClient(t, srv.URL, 1<<20)

	obj, err := c.GetFile(context.Background(), "", "reports/q1.txt")
	require.NoError(t, err)

	assert.Equal(t, "docs", obj.Bucket)
	assert.Equal(t, "reports/q1.txt", obj.Key)
	assert.Equal(t, "text/plain", obj.ContentType)
	assert.Equal(t, body, obj.Data)
}

func TestGetFileRejectsOversizedObject(t *testing.T) {
	srv := fakeS3(t, "docs", "big.txt", "text/plain", make([]byte, 64))
	c := newTestClient(t, srv.URL, 16)

	_, err := c.GetFile(context.Background(), "docs", "big.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInputRejected)
	assert.Equal(t, core.CodeFileTooLarge, core.CodeOf(err))
}

func TestGetFileRequiresKey(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", 16)
	_, err := c.GetFile(context.Background(), "docs", "")
	assert.ErrorIs(t, err, core.ErrInputRejected)
}
