package models

import (
	"time"
)

// UploadArtifact is one file handed to the ingestion pipeline.
//
// Data:          raw file bytes.
// DeclaredType:  client supplied media type; untrusted.
// Filename:      original filename as uploaded.
// Size:          byte length reported by the uploader.
// SpoolPath:     optional on-disk copy of the upload; removed once the pipeline finishes.
type UploadArtifact struct {
	Data         []byte
	DeclaredType string
	Filename     string
	Size         int64
	SpoolPath    string
}

// ExtractedDocument is the plain text recovered from an upload.
type ExtractedDocument struct {
	Text           string `json:"text"`
	SourceFilename string `json:"source_filename"`
	ResolvedType   string `json:"resolved_type"`
	CharCount      int    `json:"char_count"`
	Strategy       string `json:"strategy"`
}

// Chunk represents one bounded slice of extracted text.
type Chunk struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// EmbeddingRecord pairs a chunk with its vector.
type EmbeddingRecord struct {
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}

// VectorRecord is the unit written to a vector index.
type VectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata"`
}

// IngestionResult summarises one completed ingestion.
type IngestionResult struct {
	Filename             string        `json:"name"`
	Size                 int64         `json:"size"`
	ResolvedType         string        `json:"type"`
	Strategy             string        `json:"strategy"`
	ExtractedCharCount   int           `json:"textLength"`
	ChunkCount           int           `json:"chunks"`
	EmbeddingsCreated    int           `json:"vectorsCreated"`
	PersistedVectorCount int           `json:"vectorsUploaded"`
	PersistenceError     string        `json:"persistenceError,omitempty"`
	IndexConfigured      bool          `json:"indexConfigured"`
	IndexName            string        `json:"indexName,omitempty"`
	EmbeddingModel       string        `json:"embeddingModel"`
	VectorDimensions     int           `json:"dimensions"`
	TextPreview          string        `json:"textPreview"`
	ProcessingTime       time.Duration `json:"-"`
	ProcessingTimeMs     int64         `json:"processingTimeMs"`
}

// FileOutcome is the per-file result of a multi-file ingestion.
type FileOutcome struct {
	Filename string           `json:"name"`
	Result   *IngestionResult `json:"metadata,omitempty"`
	Err      error            `json:"-"`
	Error    string           `json:"error,omitempty"`
}

// StoredObject is an object fetched from object storage.
type StoredObject struct {
	Bucket      string
	Key         string
	Data        []byte
	ContentType string
}
