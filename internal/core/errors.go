package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ingestion failures.
type ErrorKind string

const (
	KindInputRejected    ErrorKind = "input_rejected"
	KindExtraction       ErrorKind = "extraction_error"
	KindEmbeddingService ErrorKind = "embedding_service_error"
	KindPersistence      ErrorKind = "persistence_error"
)

var (
	// ErrInputRejected marks uploads that are unsupported, oversized or unreadable.
	ErrInputRejected = errors.New("input rejected")

	// ErrExtraction marks uploads from which no usable text could be recovered.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbeddingService marks an unreachable or misbehaving embedding service.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrPersistence marks a failed vector index write. Never fatal to a request.
	ErrPersistence = errors.New("vector persistence failed")
)

// Machine readable codes attached to rejected input.
const (
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeTooManyFiles    = "TOO_MANY_FILES"
	CodeUnsupportedType = "UNSUPPORTED_TYPE"
	CodeNoFile          = "NO_FILE"
	CodeEmptyFile       = "EMPTY_FILE"
)

var kindSentinels = map[ErrorKind]error{
	KindInputRejected:    ErrInputRejected,
	KindExtraction:       ErrExtraction,
	KindEmbeddingService: ErrEmbeddingService,
	KindPersistence:      ErrPersistence,
}

// IngestError carries the kind of failure plus a human readable detail.
type IngestError struct {
	Kind   ErrorKind
	Code   string
	Detail string
	Err    error
}

func (e *IngestError) Error() string {
	switch {
	case e.Err != nil && e.Detail != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel of the error's kind.
func (e *IngestError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// WithCode sets the machine readable code and returns e.
func (e *IngestError) WithCode(code string) *IngestError {
	e.Code = code
	return e
}

// Message is the detail if present, else the wrapped error's text.
func (e *IngestError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func InputRejected(format string, args ...any) *IngestError {
	return &IngestError{Kind: KindInputRejected, Detail: fmt.Sprintf(format, args...)}
}

func ExtractionFailed(detail string, err error) *IngestError {
	return &IngestError{Kind: KindExtraction, Detail: detail, Err: err}
}

func EmbeddingServiceFailed(detail string, err error) *IngestError {
	return &IngestError{Kind: KindEmbeddingService, Detail: detail, Err: err}
}

func PersistenceFailed(detail string, err error) *IngestError {
	return &IngestError{Kind: KindPersistence, Detail: detail, Err: err}
}

// CodeOf returns the code of err, or "" when it has none.
func CodeOf(err error) string {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// KindOf returns the ErrorKind of err, or "" when err is not an IngestError.
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
