package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderExposesCounters(t *testing.T) {
	rec := NewRecorder()
	rec.IngestionFinished("success", "application/pdf", 2*time.Second)
	rec.ChunksProduced(3)
	rec.EmbeddingCreated(150 * time.Millisecond)
	rec.VectorsPersisted("pinecone", 3)

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `contexta_ingestions_total{outcome="success"} 1`)
	assert.Contains(t, out, "contexta_chunks_total 3")
	assert.Contains(t, out, `contexta_vectors_persisted_total{index="pinecone"} 3`)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.IngestionFinished("failed", "", time.Second)
		rec.ChunksProduced(1)
		rec.EmbeddingCreated(time.Millisecond)
		rec.VectorsPersisted("qdrant", 1)
	})
}
