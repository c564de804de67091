package db

import (
	"context"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// DbClient is the pgvector-backed vector index. Beyond upserts it can report connectivity.
type DbClient interface {
	core.VectorIndex
	Ping(ctx context.Context) error
}
