package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "OLLAMA_HOST", "EMBEDDING_MODEL", "MAX_CHUNK_SIZE",
		"MAX_UPLOAD_BYTES", "EMBED_INTERVAL", "VECTOR_INDEX", "EMBED_PROVIDER", "ALLOWED_EXTENSIONS"} {
		unsetEnv(t, key)
	}

	cfg := LoadConfig()

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, "mxbai-embed-large", cfg.EmbedModel)
	assert.Equal(t, "ollama", cfg.EmbedProvider)
	assert.Equal(t, "auto", cfg.VectorIndex)
	assert.Equal(t, 4000, cfg.MaxChunkSize)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 200*time.Millisecond, cfg.EmbedInterval)
	assert.Equal(t, DefaultAllowedExtensions, cfg.AllowedExtensions)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("EMBEDDING_MODEL", "nomic-embed-text")
	t.Setenv("MAX_CHUNK_SIZE", "1200")
	t.Setenv("EMBED_INTERVAL", "50ms")
	t.Setenv("ALLOWED_EXTENSIONS", ".txt, .md ,")
	t.Setenv("LOG_JSON", "true")

	cfg := LoadConfig()

	assert.Equal(t, "http://ollama:11434", cfg.OllamaHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbedModel)
	assert.Equal(t, 1200, cfg.MaxChunkSize)
	assert.Equal(t, 50*time.Millisecond, cfg.EmbedInterval)
	assert.Equal(t, []string{".txt", ".md"}, cfg.AllowedExtensions)
	assert.True(t, cfg.LogJSON)
}

func TestLoadConfigBadNumberFallsBack(t *testing.T) {
	t.Setenv("MAX_CHUNK_SIZE", "lots")
	t.Setenv("EMBED_INTERVAL", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 4000, cfg.MaxChunkSize)
	assert.Equal(t, 200*time.Millisecond, cfg.EmbedInterval)
}

func validConfig() *Config {
	return &Config{
		EmbedProvider:      "ollama",
		OllamaHost:         "http://localhost:11434",
		MaxChunkSize:       4000,
		MaxUploadBytes:     1 << 20,
		MaxFilesPerRequest: 10,
		MaxPromptChars:     8000,
		UpsertBatchSize:    100,
		VectorIndex:        "auto",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero chunk size", mutate: func(c *Config) { c.MaxChunkSize = 0 }, wantErr: "MAX_CHUNK_SIZE"},
		{name: "zero upload size", mutate: func(c *Config) { c.MaxUploadBytes = 0 }, wantErr: "MAX_UPLOAD_BYTES"},
		{name: "upsert batch above index limit", mutate: func(c *Config) { c.UpsertBatchSize = 250 }, wantErr: "UPSERT_BATCH_SIZE"},
		{name: "unknown provider", mutate: func(c *Config) { c.EmbedProvider = "openai" }, wantErr: "EMBED_PROVIDER"},
		{name: "gemini without key", mutate: func(c *Config) { c.EmbedProvider = "gemini" }, wantErr: "GEMINI_API_KEY"},
		{name: "pinecone without key", mutate: func(c *Config) { c.VectorIndex = "pinecone" }, wantErr: "PINECONE_API_KEY"},
		{name: "unknown index", mutate: func(c *Config) { c.VectorIndex = "milvus" }, wantErr: "VECTOR_INDEX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIndexKind(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "none", cfg.IndexKind())

	cfg.DatabaseURL = "postgres://localhost/db"
	assert.Equal(t, "pgvector", cfg.IndexKind())

	cfg.PineconeAPIKey, cfg.PineconeIndexName = "key", "docs"
	assert.Equal(t, "pinecone", cfg.IndexKind())

	cfg.VectorIndex = "none"
	assert.Equal(t, "none", cfg.IndexKind())
}
