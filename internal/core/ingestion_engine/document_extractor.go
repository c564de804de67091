package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// MinExtractedChars is the least amount of trimmed text an extraction must yield.
const MinExtractedChars = 10

var _ core.DocumentExtractor = (*DocumentTextExtractor)(nil)

// DocumentTextExtractor selects one TextStrategy per resolved type and runs it.
//
// strategies:  resolved media type -> strategy.
// fallback:    used for types without a registered strategy.
type DocumentTextExtractor struct {
	strategies map[string]core.TextStrategy
	fallback   core.TextStrategy
	log        hclog.Logger
}

type ExtractorOption func(*DocumentTextExtractor)

// WithStrategy registers s for the given media types, replacing any default.
func WithStrategy(s core.TextStrategy, mediaTypes ...string) ExtractorOption {
	return func(e *DocumentTextExtractor) {
		for _, t := range mediaTypes {
			e.strategies[CanonicalType(t)] = s
		}
	}
}

func WithExtractorLogger(l hclog.Logger) ExtractorOption {
	return func(e *DocumentTextExtractor) {
		e.log = logging.OrNull(l)
	}
}

func NewDocumentTextExtractor(opts ...ExtractorOption) *DocumentTextExtractor {
	plain := PlainTextStrategy{}
	word := NewWordStrategy()
	sheets := SpreadsheetStrategy{}

	e := &DocumentTextExtractor{
		strategies: map[string]core.TextStrategy{
			TypeText:     plain,
			TypeMarkdown: plain,
			TypeCSV:      plain,
			TypeDocx:     word,
			TypeDoc:      word,
			TypeXlsx:     sheets,
			TypeXls:      sheets,
			TypePDF:      NewPDFStrategy(),
			TypeJSON:     JSONStrategy{},
			TypeHTML:     HTMLStrategy{},
			TypeRTF:      RTFStrategy{},
		},
		fallback: ReadableTextStrategy{},
		log:      hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StrategyFor returns the strategy the extractor would run for resolvedType.
func (e *DocumentTextExtractor) StrategyFor(resolvedType string) core.TextStrategy {
	if s, ok := e.strategies[CanonicalType(resolvedType)]; ok {
		return s
	}
	return e.fallback
}

// Extract runs the strategy for resolvedType and enforces the minimum text length.
func (e *DocumentTextExtractor) Extract(ctx context.Context, buf []byte, resolvedType, filename string) (*models.ExtractedDocument, error) {
	s := e.StrategyFor(resolvedType)
	e.log.Debug("extracting text", "file", filename, "type", resolvedType, "strategy", s.Name())

	text, err := runStrategy(ctx, s, buf)
	if err != nil {
		e.log.Warn("extraction failed", "file", filename, "strategy", s.Name(), "error", err)
		var ie *core.IngestError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, core.ExtractionFailed(fmt.Sprintf("failed to extract text from %s", filename), err)
	}

	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < MinExtractedChars {
		return nil, core.ExtractionFailed(
			fmt.Sprintf("no meaningful text could be extracted from %s (%d characters)", filename, n), nil)
	}

	e.log.Info("text extracted", "file", filename, "strategy", s.Name(), "chars", n)
	return &models.ExtractedDocument{
		Text:           text,
		SourceFilename: filename,
		ResolvedType:   resolvedType,
		CharCount:      n,
		Strategy:       s.Name(),
	}, nil
}

// runStrategy turns converter panics on malformed input into errors.
func runStrategy(ctx context.Context, s core.TextStrategy, buf []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s parser panicked: %v", s.Name(), r)
		}
	}()
	return s.Extract(ctx, buf)
}
