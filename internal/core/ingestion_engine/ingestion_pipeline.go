package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/metrics"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// Stage is a step of a single ingestion.
type Stage int

const (
	StageReceived Stage = iota
	StageTypeResolved
	StageExtracted
	StageChunked
	StageEmbedding
	StagePersisting
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageTypeResolved:
		return "type_resolved"
	case StageExtracted:
		return "extracted"
	case StageChunked:
		return "chunked"
	case StageEmbedding:
		return "embedding"
	case StagePersisting:
		return "persisting"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// DocumentIngestor runs uploads through resolve, extract, chunk, embed and persist.
//
// resolver:   admission and type resolution.
// extractor:  resolved type -> plain text.
// chunker:    plain text -> bounded chunks.
// embedder:   chunk -> vector, one call at a time.
// index:      optional vector index; nil when none is configured.
// cfg:        runtime limits for the pipeline.
type DocumentIngestor struct {
	resolver  *TypeResolver
	extractor core.DocumentExtractor
	chunker   *Chunker
	embedder  core.Embedder
	index     core.VectorIndex
	cfg       *IngestConfig
	log       hclog.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

type IngestorOption func(*DocumentIngestor)

func WithLogger(l hclog.Logger) IngestorOption {
	return func(i *DocumentIngestor) { i.log = logging.OrNull(l) }
}

func WithMetrics(m *metrics.Recorder) IngestorOption {
	return func(i *DocumentIngestor) { i.metrics = m }
}

func WithClock(now func() time.Time) IngestorOption {
	return func(i *DocumentIngestor) { i.now = now }
}

// NewDocumentIngestor wires the pipeline. index may be nil.
func NewDocumentIngestor(emb core.Embedder, extractor core.DocumentExtractor, index core.VectorIndex, cfg *IngestConfig, opts ...IngestorOption) *DocumentIngestor {
	cfg = cfg.withDefaults()
	i := &DocumentIngestor{
		resolver:  NewTypeResolver(cfg.AllowedTypes, cfg.AllowedExtensions, cfg.MaxUploadBytes),
		extractor: extractor,
		chunker:   NewChunker(cfg.MaxChunkSize),
		embedder:  emb,
		index:     index,
		cfg:       cfg,
		log:       hclog.NewNullLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *DocumentIngestor) IndexConfigured() bool { return i.index != nil }

func (i *DocumentIngestor) IndexName() string {
	if i.index == nil {
		return ""
	}
	return i.index.Name()
}

// Resolver exposes admission and type resolution to callers that only extract.
func (i *DocumentIngestor) Resolver() *TypeResolver { return i.resolver }

func (i *DocumentIngestor) Chunker() *Chunker { return i.chunker }

// Ingest runs one upload end to end. The spool file, if any, is removed on every exit.
// Any failure before persistence aborts the request; persistence failures are reported
// in the result instead.
func (i *DocumentIngestor) Ingest(ctx context.Context, a *models.UploadArtifact) (*models.IngestionResult, error) {
	start := i.now()
	stage := StageReceived
	resolved := ""
	log := i.log.With("file", a.Filename)

	defer i.cleanup(log, a)

	res, err := func() (*models.IngestionResult, error) {
		size := a.Size
		if size == 0 {
			size = int64(len(a.Data))
		}
		if err := i.resolver.Admit(a.DeclaredType, a.Filename, size); err != nil {
			return nil, err
		}
		if len(a.Data) == 0 {
			return nil, core.InputRejected("file %q is empty", a.Filename).WithCode(core.CodeEmptyFile)
		}

		var err error
		resolved, err = i.resolver.Resolve(a.Data, a.DeclaredType, a.Filename)
		if err != nil {
			return nil, err
		}
		stage = StageTypeResolved
		log.Debug("type resolved", "declared", a.DeclaredType, "resolved", resolved)

		doc, err := i.extractor.Extract(ctx, a.Data, resolved, a.Filename)
		if err != nil {
			return nil, err
		}
		stage = StageExtracted

		chunks := i.chunker.Split(doc.Text)
		if len(chunks) == 0 {
			return nil, core.ExtractionFailed(fmt.Sprintf("no text chunks produced for %s", a.Filename), nil)
		}
		stage = StageChunked
		i.metrics.ChunksProduced(len(chunks))
		log.Info("text chunked", "chars", doc.CharCount, "chunks", len(chunks))

		if err := i.embedder.CheckReady(ctx); err != nil {
			return nil, err
		}

		stage = StageEmbedding
		records, err := i.embedChunks(ctx, log, chunks)
		if err != nil {
			return nil, err
		}

		uploadedAt := i.now()
		res := &models.IngestionResult{
			Filename:           a.Filename,
			Size:               size,
			ResolvedType:       resolved,
			Strategy:           doc.Strategy,
			ExtractedCharCount: doc.CharCount,
			ChunkCount:         len(chunks),
			EmbeddingsCreated:  len(records),
			IndexConfigured:    i.index != nil,
			IndexName:          i.IndexName(),
			EmbeddingModel:     i.embedder.Model(),
			VectorDimensions:   len(records[0].Vector),
			TextPreview:        preview(doc.Text, resultPreviewChars, "..."),
		}

		if i.index != nil {
			stage = StagePersisting
			vectors := buildVectorRecords(a, size, resolved, records, i.embedder.Model(), uploadedAt)
			n, perr := i.persist(ctx, vectors)
			res.PersistedVectorCount = n
			i.metrics.VectorsPersisted(i.index.Name(), n)
			if perr != nil {
				log.Warn("vector persistence failed", "index", i.index.Name(), "persisted", n, "error", perr)
				res.PersistenceError = perr.Error()
			} else {
				log.Info("vectors persisted", "index", i.index.Name(), "count", n)
			}
		}

		stage = StageDone
		res.ProcessingTime = i.now().Sub(start)
		res.ProcessingTimeMs = res.ProcessingTime.Milliseconds()
		return res, nil
	}()

	took := i.now().Sub(start)
	if err != nil {
		log.Error("ingestion failed", "stage", stage.String(), "kind", string(core.KindOf(err)), "error", err)
		i.metrics.IngestionFinished(outcomeOf(err), resolved, took)
		return nil, err
	}
	log.Info("ingestion complete", "type", resolved, "chunks", res.ChunkCount, "vectors", res.EmbeddingsCreated,
		"persisted", res.PersistedVectorCount, "took", took)
	i.metrics.IngestionFinished("success", resolved, took)
	return res, nil
}

// embedChunks embeds every chunk in order. The first failure discards all vectors.
func (i *DocumentIngestor) embedChunks(ctx context.Context, log hclog.Logger, chunks []models.Chunk) ([]models.EmbeddingRecord, error) {
	records := make([]models.EmbeddingRecord, 0, len(chunks))
	for _, ch := range chunks {
		log.Debug("embedding chunk", "stage", StageEmbedding.String(), "chunk", ch.Index+1, "of", len(chunks))
		vec, err := i.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d of %d: %w", ch.Index+1, len(chunks), err)
		}
		if len(records) > 0 && len(vec) != len(records[0].Vector) {
			return nil, core.EmbeddingServiceFailed(fmt.Sprintf("chunk %d returned %d dimensions, expected %d",
				ch.Index+1, len(vec), len(records[0].Vector)), nil)
		}
		records = append(records, models.EmbeddingRecord{ChunkIndex: ch.Index, Text: ch.Text, Vector: vec})
	}
	if want := i.cfg.ExpectedDimensions; want > 0 && len(records) > 0 && len(records[0].Vector) != want {
		log.Warn("embedding dimensions differ from configured index dimensions", "got", len(records[0].Vector), "want", want)
	}
	return records, nil
}

func (i *DocumentIngestor) cleanup(log hclog.Logger, a *models.UploadArtifact) {
	if a.SpoolPath == "" {
		return
	}
	if err := os.Remove(a.SpoolPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove spooled upload", "path", a.SpoolPath, "error", err)
	}
}

func outcomeOf(err error) string {
	if k := core.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

// preview cuts s to at most n characters, appending suffix when it was cut.
func preview(s string, n int, suffix string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + suffix
}
