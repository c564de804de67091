package ingestion_engine

// IngestConfig is the explicit configuration of the ingestion pipeline.
//
// EmbeddingServiceAddress:  where the embedding service lives (reported in health output).
// EmbeddingModel:           model identifier requested from the service.
// MaxChunkSize:             chunk ceiling in characters.
// MaxUploadBytes:           upload size ceiling.
// MaxFilesPerRequest:       ceiling for multi-file ingestion.
// AllowedTypes:             declared media types admitted at the boundary.
// AllowedExtensions:        filename extensions admitted at the boundary.
// UpsertBatchSize:          vectors per index write, at most 100.
// BatchConcurrency:         pipelines run at once for multi-file ingestion.
// ExpectedDimensions:       vector size the index expects (0 = accept whatever the model returns).
type IngestConfig struct {
	EmbeddingServiceAddress string
	EmbeddingModel          string
	MaxChunkSize            int
	MaxUploadBytes          int64
	MaxFilesPerRequest      int
	AllowedTypes            []string
	AllowedExtensions       []string
	UpsertBatchSize         int
	BatchConcurrency        int
	ExpectedDimensions      int
}

const (
	resultPreviewChars = 300
	indexPreviewChars  = 500
	maxUpsertBatch     = 100
)

func (c *IngestConfig) withDefaults() *IngestConfig {
	out := *c
	if out.MaxChunkSize <= 0 {
		out.MaxChunkSize = DefaultMaxChunkSize
	}
	if out.UpsertBatchSize <= 0 || out.UpsertBatchSize > maxUpsertBatch {
		out.UpsertBatchSize = maxUpsertBatch
	}
	if out.BatchConcurrency <= 0 {
		out.BatchConcurrency = 1
	}
	return &out
}
