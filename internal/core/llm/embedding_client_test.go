package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// fakeOllama serves /api/embeddings and /api/tags and records prompts.
type fakeOllama struct {
	mu      sync.Mutex
	prompts []string
	status  int
	body    string
	models  []string
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.prompts = append(f.prompts, req.Prompt)
		f.mu.Unlock()

		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		if f.body != "" {
			_, _ = w.Write([]byte(f.body))
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{"models": []map[string]string{}}
		var list []map[string]string
		for _, m := range f.models {
			list = append(list, map[string]string{"name": m})
		}
		if list != nil {
			out["models"] = list
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeOllama, opts ...ClientOption) *EmbeddingClient {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithRatePolicy(RatePolicy{})}, opts...)
	return NewEmbeddingClient(NewOllamaEmbedder(srv.URL, "mxbai-embed-large", 5*time.Second), "mxbai-embed-large", opts...)
}

func TestEmbedReturnsVector(t *testing.T) {
	f := &fakeOllama{}
	c := newTestClient(t, f)

	vec, err := c.Embed(context.Background(), "  hello world  ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, []string{"hello world"}, f.prompts)
}

func TestEmbedTruncatesLongInput(t *testing.T) {
	f := &fakeOllama{}
	c := newTestClient(t, f)

	_, err := c.Embed(context.Background(), strings.Repeat("a", 9000))
	require.NoError(t, err)
	require.Len(t, f.prompts, 1)
	assert.Len(t, f.prompts[0], DefaultMaxPromptChars)
}

func TestEmbedFailures(t *testing.T) {
	tests := []struct {
		name  string
		fake  *fakeOllama
		input string
	}{
		{name: "empty input", fake: &fakeOllama{}, input: "   \n\t"},
		{name: "server error", fake: &fakeOllama{status: http.StatusInternalServerError, body: "model crashed"}, input: "text"},
		{name: "missing vector", fake: &fakeOllama{body: `{"done":true}`}, input: "text"},
		{name: "non numeric vector", fake: &fakeOllama{body: `{"embedding":["a","b"]}`}, input: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.fake)
			vec, err := c.Embed(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, vec)
			assert.ErrorIs(t, err, core.ErrEmbeddingService)
		})
	}
}

func TestEmbedEmptyInputNeverCallsService(t *testing.T) {
	f := &fakeOllama{}
	c := newTestClient(t, f)

	_, err := c.Embed(context.Background(), "")
	require.Error(t, err)
	assert.Empty(t, f.prompts)
}

func TestEmbedUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewEmbeddingClient(NewOllamaEmbedder(url, "m", time.Second), "m", WithRatePolicy(RatePolicy{}))
	_, err := c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingService)

	err = c.CheckReady(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestRatePolicySpacesCalls(t *testing.T) {
	f := &fakeOllama{}
	c := newTestClient(t, f, WithRatePolicy(RatePolicy{Interval: 60 * time.Millisecond}))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Embed(context.Background(), "text")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 110*time.Millisecond)
}

func TestCheckReady(t *testing.T) {
	t.Run("model present with tag", func(t *testing.T) {
		c := newTestClient(t, &fakeOllama{models: []string{"llama3:8b", "mxbai-embed-large:latest"}})
		assert.NoError(t, c.CheckReady(context.Background()))
	})

	t.Run("model missing", func(t *testing.T) {
		c := newTestClient(t, &fakeOllama{models: []string{"llama3:8b"}})
		err := c.CheckReady(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrEmbeddingService)
		assert.Contains(t, err.Error(), "mxbai-embed-large")
	})
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, &fakeOllama{models: []string{"mxbai-embed-large:latest"}})
	st := c.Health(context.Background())
	assert.True(t, st.Healthy)
	assert.Equal(t, "ollama", st.Provider)
	assert.Equal(t, []string{"mxbai-embed-large:latest"}, st.Models)
}

func TestModelAvailable(t *testing.T) {
	names := []string{"nomic-embed-text:latest", "mxbai-embed-large:335m"}
	assert.True(t, ModelAvailable(names, "nomic-embed-text"))
	assert.True(t, ModelAvailable(names, "mxbai-embed-large:latest"))
	assert.False(t, ModelAvailable(names, "all-minilm"))
	assert.False(t, ModelAvailable(names, ""))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}
