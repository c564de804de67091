package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAllowedTypes are the declared media types accepted at admission.
var DefaultAllowedTypes = []string{
	"application/pdf",
	"text/plain",
	"text/markdown",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-excel",
	"application/json",
	"text/csv",
	"text/html",
	"application/rtf",
}

// DefaultAllowedExtensions are the filename extensions accepted at admission.
var DefaultAllowedExtensions = []string{
	".txt", ".md", ".pdf", ".docx", ".doc", ".xlsx", ".xls",
	".json", ".csv", ".html", ".htm", ".rtf",
}

type Config struct {
	Environment    string
	Port           string
	CorsOrigins    []string
	RequestTimeout time.Duration
	LogLevel       string
	LogJSON        bool

	// embedding service
	EmbedProvider  string
	OllamaHost     string
	EmbedModel     string
	EmbedDim       int
	EmbedInterval  time.Duration
	EmbedTimeout   time.Duration
	MaxPromptChars int
	AIAPIKey       string

	// ingestion limits
	MaxChunkSize       int
	MaxUploadBytes     int64
	MaxFilesPerRequest int
	AllowedTypes       []string
	AllowedExtensions  []string
	UploadDir          string
	PdfToTextPath      string
	BatchConcurrency   int
	UpsertBatchSize    int

	// vector index
	VectorIndex       string
	PineconeAPIKey    string
	PineconeIndexName string
	PineconeNamespace string
	QdrantHost        string
	QdrantPort        int
	QdrantAPIKey      string
	QdrantCollection  string
	QdrantUseTLS      bool
	DatabaseURL       string

	// object storage
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	S3Endpoint   string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "3001"),
		CorsOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Minute),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getEnvBool("LOG_JSON", false),

		EmbedProvider:  strings.ToLower(getEnv("EMBED_PROVIDER", "ollama")),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		EmbedModel:     getEnv("EMBEDDING_MODEL", "mxbai-embed-large"),
		EmbedDim:       getEnvInt("EMBED_DIM", 1024),
		EmbedInterval:  getEnvDuration("EMBED_INTERVAL", 200*time.Millisecond),
		EmbedTimeout:   getEnvDuration("EMBED_TIMEOUT", 60*time.Second),
		MaxPromptChars: getEnvInt("MAX_PROMPT_CHARS", 8000),
		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),

		MaxChunkSize:       getEnvInt("MAX_CHUNK_SIZE", 4000),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 50<<20),
		MaxFilesPerRequest: getEnvInt("MAX_FILES_PER_REQUEST", 10),
		AllowedTypes:       getEnvList("ALLOWED_TYPES", DefaultAllowedTypes),
		AllowedExtensions:  getEnvList("ALLOWED_EXTENSIONS", DefaultAllowedExtensions),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		PdfToTextPath:      getEnv("PDFTOTEXT_PATH", "pdftotext"),
		BatchConcurrency:   getEnvInt("BATCH_CONCURRENCY", 2),
		UpsertBatchSize:    getEnvInt("UPSERT_BATCH_SIZE", 100),

		VectorIndex:       strings.ToLower(getEnv("VECTOR_INDEX", "auto")),
		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", ""),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", ""),
		QdrantHost:        getEnv("QDRANT_HOST", ""),
		QdrantPort:        getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey:      getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:  getEnv("QDRANT_COLLECTION", "documents"),
		QdrantUseTLS:      getEnvBool("QDRANT_USE_TLS", false),
		DatabaseURL:       getEnv("DATABASE_URL", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
	}

	return cfg
}

// Validate rejects settings the ingestion pipeline cannot run with.
func (c *Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("MAX_CHUNK_SIZE must be positive, got %d", c.MaxChunkSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.MaxFilesPerRequest <= 0 {
		return fmt.Errorf("MAX_FILES_PER_REQUEST must be positive, got %d", c.MaxFilesPerRequest)
	}
	if c.MaxPromptChars <= 0 {
		return fmt.Errorf("MAX_PROMPT_CHARS must be positive, got %d", c.MaxPromptChars)
	}
	if c.UpsertBatchSize <= 0 || c.UpsertBatchSize > 100 {
		return fmt.Errorf("UPSERT_BATCH_SIZE must be between 1 and 100, got %d", c.UpsertBatchSize)
	}
	switch c.EmbedProvider {
	case "ollama":
		if c.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST not set")
		}
	case "gemini":
		if c.AIAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY not set")
		}
	default:
		return fmt.Errorf("unknown EMBED_PROVIDER %q", c.EmbedProvider)
	}
	switch c.VectorIndex {
	case "auto", "none", "":
	case "pinecone":
		if c.PineconeAPIKey == "" || c.PineconeIndexName == "" {
			return fmt.Errorf("PINECONE_API_KEY and PINECONE_INDEX_NAME are required for the pinecone index")
		}
	case "qdrant":
		if c.QdrantHost == "" {
			return fmt.Errorf("QDRANT_HOST is required for the qdrant index")
		}
	case "pgvector":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the pgvector index")
		}
	default:
		return fmt.Errorf("unknown VECTOR_INDEX %q", c.VectorIndex)
	}
	return nil
}

// IndexKind resolves "auto" to the first index whose credentials are present.
func (c *Config) IndexKind() string {
	if c.VectorIndex != "auto" {
		if c.VectorIndex == "" {
			return "none"
		}
		return c.VectorIndex
	}
	switch {
	case c.PineconeAPIKey != "" && c.PineconeIndexName != "":
		return "pinecone"
	case c.QdrantHost != "":
		return "qdrant"
	case c.DatabaseURL != "":
		return "pgvector"
	}
	return "none"
}

// S3Configured reports whether object storage credentials are present.
func (c *Config) S3Configured() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != "" && c.AwsRegion != ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvInt64(key string, def int64) int64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		out := make([]string, len(def))
		copy(out, def)
		return out
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
