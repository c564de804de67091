package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the ingestion metrics registered on its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	ingestions       *prometheus.CounterVec
	chunks           prometheus.Counter
	embeddings       prometheus.Counter
	persisted        *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	embedDuration    prometheus.Histogram
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		ingestions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contexta_ingestions_total",
			Help: "Ingestion requests by outcome.",
		}, []string{"outcome"}),
		chunks: f.NewCounter(prometheus.CounterOpts{
			Name: "contexta_chunks_total",
			Help: "Chunks produced by the chunker.",
		}),
		embeddings: f.NewCounter(prometheus.CounterOpts{
			Name: "contexta_embeddings_total",
			Help: "Embedding vectors created.",
		}),
		persisted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contexta_vectors_persisted_total",
			Help: "Vectors written to the configured index.",
		}, []string{"index"}),
		pipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contexta_ingestion_duration_seconds",
			Help:    "End to end ingestion latency.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"type"}),
		embedDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "contexta_embedding_duration_seconds",
			Help:    "Latency of single embedding calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) IngestionFinished(outcome, resolvedType string, took time.Duration) {
	if r == nil {
		return
	}
	r.ingestions.WithLabelValues(outcome).Inc()
	if resolvedType != "" {
		r.pipelineDuration.WithLabelValues(resolvedType).Observe(took.Seconds())
	}
}

func (r *Recorder) ChunksProduced(n int) {
	if r == nil {
		return
	}
	r.chunks.Add(float64(n))
}

func (r *Recorder) EmbeddingCreated(took time.Duration) {
	if r == nil {
		return
	}
	r.embeddings.Inc()
	r.embedDuration.Observe(took.Seconds())
}

func (r *Recorder) VectorsPersisted(index string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.persisted.WithLabelValues(index).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
