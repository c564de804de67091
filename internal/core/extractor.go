package core

import (
	"context"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// TextStrategy recovers plain text from one family of formats.
type TextStrategy interface {
	Name() string
	Extract(ctx context.Context, buf []byte) (string, error)
}

// DocumentExtractor defines the interface for extracting text from various document types.
// The resolved type selects the parsing strategy; it is never re-sniffed.
type DocumentExtractor interface {
	Extract(ctx context.Context, buf []byte, resolvedType, filename string) (*models.ExtractedDocument, error)
}
