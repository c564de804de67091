package core

import "context"

// EmbeddingProvider is the transport to an embedding model.
type EmbeddingProvider interface {
	// Embed returns the vector for a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// ListModels returns the names of the models the service can serve.
	ListModels(ctx context.Context) ([]string, error)
	// Name identifies the provider in logs and health output.
	Name() string
}

// Embedder is what the ingestion pipeline needs from an embedding client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// CheckReady fails when the service is unreachable or lacks the configured model.
	CheckReady(ctx context.Context) error
	Model() string
}
