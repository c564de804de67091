package core

import (
	"context"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// VectorIndex is an external similarity index that accepts vector batches.
// Implementations must treat Upsert as idempotent on record ID.
type VectorIndex interface {
	Name() string
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	GetFile(ctx context.Context, bucket, key string) (*models.StoredObject, error)
}
