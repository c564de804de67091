package vectorindex

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	db "github.com/markdave123-py/contexta-ingest/internal/core/database"
)

// Open connects the index selected by cfg.IndexKind. It returns a nil index, not an error, when none is configured.
func Open(ctx context.Context, cfg *config.Config, log hclog.Logger) (core.VectorIndex, error) {
	switch kind := cfg.IndexKind(); kind {
	case "none":
		return nil, nil
	case "pinecone":
		idx, err := NewPineconeIndex(ctx, PineconeConfig{
			APIKey:    cfg.PineconeAPIKey,
			IndexName: cfg.PineconeIndexName,
			Namespace: cfg.PineconeNamespace,
		}, log)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "qdrant":
		idx, err := NewQdrantIndex(QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
		}, log)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "pgvector":
		client, err := db.NewDatabaseClient(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown vector index %q", kind)
	}
}
