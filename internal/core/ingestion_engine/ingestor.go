package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

type Ingestor interface {
	Ingest(ctx context.Context, artifact *models.UploadArtifact) (*models.IngestionResult, error)
	IngestBatch(ctx context.Context, artifacts []*models.UploadArtifact) ([]models.FileOutcome, error)
}

var _ Ingestor = (*DocumentIngestor)(nil)
