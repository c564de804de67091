package ingestion_engine

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// VectorID is <upload unix millis>_<sanitized filename>_chunk_<index>.
func VectorID(uploadedAt time.Time, filename string, chunkIndex int) string {
	return fmt.Sprintf("%d_%s_chunk_%d", uploadedAt.UnixMilli(), unsafeIDChars.ReplaceAllString(filename, "_"), chunkIndex)
}

func buildVectorRecords(a *models.UploadArtifact, size int64, resolvedType string, records []models.EmbeddingRecord, model string, uploadedAt time.Time) []models.VectorRecord {
	out := make([]models.VectorRecord, len(records))
	for k, r := range records {
		out[k] = models.VectorRecord{
			ID:     VectorID(uploadedAt, a.Filename, r.ChunkIndex),
			Values: r.Vector,
			Metadata: map[string]any{
				"filename":       a.Filename,
				"fileType":       resolvedType,
				"fileSize":       size,
				"uploadedAt":     uploadedAt.UTC().Format(time.RFC3339),
				"chunkIndex":     r.ChunkIndex,
				"totalChunks":    len(records),
				"textContent":    r.Text,
				"textPreview":    preview(r.Text, indexPreviewChars, ""),
				"embeddingModel": model,
				"dimensions":     len(r.Vector),
			},
		}
	}
	return out
}

// persist writes vectors in order, UpsertBatchSize at a time, and stops at the first failed batch.
// It returns how many vectors were written before the failure.
func (i *DocumentIngestor) persist(ctx context.Context, vectors []models.VectorRecord) (int, error) {
	size := i.cfg.UpsertBatchSize
	written := 0
	for start := 0; start < len(vectors); start += size {
		end := min(start+size, len(vectors))
		if err := i.index.Upsert(ctx, vectors[start:end]); err != nil {
			return written, core.PersistenceFailed(
				fmt.Sprintf("upsert of vectors %d-%d to %s failed", start, end-1, i.index.Name()), err)
		}
		written += end - start
	}
	return written, nil
}
