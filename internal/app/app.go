package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/core/llm"
	objectclient "github.com/markdave123-py/contexta-ingest/internal/core/object-client"
	"github.com/markdave123-py/contexta-ingest/internal/core/vectorindex"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/metrics"
)

type App struct {
	Config    *config.Config
	Log       hclog.Logger
	Metrics   *metrics.Recorder
	Embedder  *llm.EmbeddingClient
	PDF       *ingestion_engine.PDFStrategy
	Extractor *ingestion_engine.DocumentTextExtractor
	Index     core.VectorIndex
	Ingestor  *ingestion_engine.DocumentIngestor
	Objects   *objectclient.S3Client

	closers []func() error
}

type Option func(*options)

type options struct {
	log       hclog.Logger
	skipIndex bool
}

func WithLogger(l hclog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithoutIndex builds the pipeline with persistence disabled.
func WithoutIndex() Option {
	return func(o *options) { o.skipIndex = true }
}

// IngestConfigFrom derives the pipeline configuration from the environment.
func IngestConfigFrom(cfg *config.Config) *ingestion_engine.IngestConfig {
	address := cfg.OllamaHost
	if cfg.EmbedProvider == "gemini" {
		address = "generativelanguage.googleapis.com"
	}
	return &ingestion_engine.IngestConfig{
		EmbeddingServiceAddress: address,
		EmbeddingModel:          cfg.EmbedModel,
		MaxChunkSize:            cfg.MaxChunkSize,
		MaxUploadBytes:          cfg.MaxUploadBytes,
		MaxFilesPerRequest:      cfg.MaxFilesPerRequest,
		AllowedTypes:            cfg.AllowedTypes,
		AllowedExtensions:       cfg.AllowedExtensions,
		UpsertBatchSize:         cfg.UpsertBatchSize,
		BatchConcurrency:        cfg.BatchConcurrency,
		ExpectedDimensions:      cfg.EmbedDim,
	}
}

// NewApp wires the ingestion pipeline and its optional collaborators from cfg.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	log := o.log
	if log == nil {
		log = logging.New(cfg.LogLevel, cfg.LogJSON)
	}

	appCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	a := &App{Config: cfg, Log: log, Metrics: metrics.NewRecorder()}

	if cfg.UploadDir != "" {
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}

	provider, err := a.embeddingProvider(appCtx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	a.Embedder = llm.NewEmbeddingClient(provider, cfg.EmbedModel,
		llm.WithRatePolicy(llm.RatePolicy{Interval: cfg.EmbedInterval}),
		llm.WithMaxPromptChars(cfg.MaxPromptChars),
		llm.WithClientLogger(log.Named("embedder")),
		llm.WithClientMetrics(a.Metrics),
	)

	a.PDF = ingestion_engine.NewPDFStrategy(
		ingestion_engine.WithPdfToTextPath(cfg.PdfToTextPath),
		ingestion_engine.WithPDFTempDir(cfg.UploadDir),
		ingestion_engine.WithPDFLogger(log.Named("pdf")),
	)
	a.Extractor = ingestion_engine.NewDocumentTextExtractor(
		ingestion_engine.WithStrategy(a.PDF, ingestion_engine.TypePDF),
		ingestion_engine.WithExtractorLogger(log.Named("extractor")),
	)

	if !o.skipIndex {
		idx, err := vectorindex.Open(appCtx, cfg, log.Named("index"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open vector index: %w", err)
		}
		if idx != nil {
			a.Index = idx
			a.closers = append(a.closers, idx.Close)
			log.Info("vector index ready", "index", idx.Name())
		} else {
			log.Warn("no vector index configured, embeddings will not be persisted")
		}
	}

	if cfg.S3Configured() {
		objects, err := objectclient.NewS3Client(appCtx, cfg, log.Named("objects"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Objects = objects
	}

	a.Ingestor = ingestion_engine.NewDocumentIngestor(a.Embedder, a.Extractor, a.Index, IngestConfigFrom(cfg),
		ingestion_engine.WithLogger(log.Named("ingestor")),
		ingestion_engine.WithMetrics(a.Metrics),
	)
	return a, nil
}

func (a *App) embeddingProvider(ctx context.Context) (core.EmbeddingProvider, error) {
	switch a.Config.EmbedProvider {
	case "gemini":
		g, err := llm.NewGeminiEmbedder(ctx, a.Config.AIAPIKey, a.Config.EmbedModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	case "ollama", "":
		return llm.NewOllamaEmbedder(a.Config.OllamaHost, a.Config.EmbedModel, a.Config.EmbedTimeout), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", a.Config.EmbedProvider)
	}
}

// ObjectClient returns the object store, or nil when none is configured.
func (a *App) ObjectClient() core.ObjectClient {
	if a.Objects == nil {
		return nil
	}
	return a.Objects
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
