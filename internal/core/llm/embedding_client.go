package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/metrics"
)

const (
	DefaultMaxPromptChars = 8000
	DefaultEmbedInterval  = 200 * time.Millisecond
)

// RatePolicy spaces successive embedding calls by at least Interval.
// A zero Interval disables pacing.
type RatePolicy struct {
	Interval time.Duration
}

func (p RatePolicy) limiter() *rate.Limiter {
	if p.Interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.Interval), 1)
}

// EmbeddingClient validates input, applies the rate policy and classifies provider failures.
//
// provider:        transport to the embedding model.
// model:           model identifier reported in results and checked on readiness.
// maxPromptChars:  input is truncated to this many characters.
// limiter:         enforces the RatePolicy across calls.
type EmbeddingClient struct {
	provider       core.EmbeddingProvider
	model          string
	maxPromptChars int
	limiter        *rate.Limiter
	log            hclog.Logger
	metrics        *metrics.Recorder
}

type ClientOption func(*EmbeddingClient)

func WithRatePolicy(p RatePolicy) ClientOption {
	return func(c *EmbeddingClient) { c.limiter = p.limiter() }
}

func WithMaxPromptChars(n int) ClientOption {
	return func(c *EmbeddingClient) {
		if n > 0 {
			c.maxPromptChars = n
		}
	}
}

func WithClientLogger(l hclog.Logger) ClientOption {
	return func(c *EmbeddingClient) { c.log = logging.OrNull(l) }
}

func WithClientMetrics(m *metrics.Recorder) ClientOption {
	return func(c *EmbeddingClient) { c.metrics = m }
}

func NewEmbeddingClient(provider core.EmbeddingProvider, model string, opts ...ClientOption) *EmbeddingClient {
	c := &EmbeddingClient{
		provider:       provider,
		model:          model,
		maxPromptChars: DefaultMaxPromptChars,
		limiter:        RatePolicy{Interval: DefaultEmbedInterval}.limiter(),
		log:            hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *EmbeddingClient) Model() string { return c.model }

func (c *EmbeddingClient) Provider() string { return c.provider.Name() }

// Embed returns the vector for text. Every failure is an EmbeddingServiceError.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil, core.EmbeddingServiceFailed("text must be a non-empty string", nil)
	}
	clean = truncateRunes(clean, c.maxPromptChars)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, core.EmbeddingServiceFailed("waiting for rate limiter", err)
	}

	start := time.Now()
	vec, err := c.provider.Embed(ctx, clean)
	if err != nil {
		c.log.Error("embedding failed", "provider", c.provider.Name(), "model", c.model, "error", err)
		var ie *core.IngestError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, core.EmbeddingServiceFailed("failed to generate embedding", err)
	}
	if len(vec) == 0 {
		return nil, core.EmbeddingServiceFailed("embedding response contained no vector", nil)
	}
	c.metrics.EmbeddingCreated(time.Since(start))
	c.log.Trace("embedding generated", "dimensions", len(vec))
	return vec, nil
}

// CheckReady verifies the service answers and serves the configured model.
func (c *EmbeddingClient) CheckReady(ctx context.Context) error {
	names, err := c.provider.ListModels(ctx)
	if err != nil {
		return core.EmbeddingServiceFailed(fmt.Sprintf("%s service is not reachable", c.provider.Name()), err)
	}
	if !ModelAvailable(names, c.model) {
		return core.EmbeddingServiceFailed(fmt.Sprintf("model %q is not available (found: %s)",
			c.model, strings.Join(names, ", ")), nil)
	}
	return nil
}

// HealthStatus is the readiness snapshot reported by the health endpoint.
type HealthStatus struct {
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Healthy  bool     `json:"healthy"`
	Models   []string `json:"availableModels,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (c *EmbeddingClient) Health(ctx context.Context) HealthStatus {
	st := HealthStatus{Provider: c.provider.Name(), Model: c.model}
	names, err := c.provider.ListModels(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Models = names
	st.Healthy = ModelAvailable(names, c.model)
	if !st.Healthy {
		st.Error = fmt.Sprintf("model %q not found", c.model)
	}
	return st
}

// ModelAvailable matches model against names either in full or without its ":tag".
func ModelAvailable(names []string, model string) bool {
	if model == "" {
		return false
	}
	base, _, _ := strings.Cut(model, ":")
	for _, n := range names {
		if strings.Contains(n, model) || strings.Contains(n, base) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
