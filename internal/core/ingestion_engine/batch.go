package ingestion_engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// IngestBatch runs one independent pipeline per artifact, BatchConcurrency at a time.
// A failing file never affects the others; outcomes keep request order.
func (i *DocumentIngestor) IngestBatch(ctx context.Context, artifacts []*models.UploadArtifact) ([]models.FileOutcome, error) {
	if len(artifacts) == 0 {
		return nil, core.InputRejected("no files uploaded").WithCode(core.CodeNoFile)
	}
	if max := i.cfg.MaxFilesPerRequest; max > 0 && len(artifacts) > max {
		for _, a := range artifacts {
			i.cleanup(i.log, a)
		}
		return nil, core.InputRejected("too many files: %d uploaded, at most %d allowed", len(artifacts), max).
			WithCode(core.CodeTooManyFiles)
	}

	out := make([]models.FileOutcome, len(artifacts))
	var g errgroup.Group
	g.SetLimit(i.cfg.BatchConcurrency)

	for idx, a := range artifacts {
		g.Go(func() error {
			res, err := i.Ingest(ctx, a)
			out[idx] = models.FileOutcome{Filename: a.Filename, Result: res, Err: err}
			if err != nil {
				out[idx].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	i.log.Info("batch ingestion complete", "files", len(artifacts), "failed", countFailed(out))
	return out, nil
}

func countFailed(outcomes []models.FileOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
