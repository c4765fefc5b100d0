package domain

import (
	"errors"
	"fmt"
)

var (
	// Input errors.
	ErrEmptyDocument    = errors.New("document produced no text fragments")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidChunking  = errors.New("chunk size must be positive and greater than overlap")
	ErrMissingField     = errors.New("missing required field")
	ErrModelMismatch    = errors.New("embedding model does not match index")

	// Collaborator errors.
	ErrExtraction = errors.New("text extraction failed")
	ErrEmbedding  = errors.New("embedding provider failed")
	ErrGeneration = errors.New("answer generation failed")
	ErrStorage    = errors.New("index storage failed")

	// Invariant violations.
	ErrEmptyIndex        = errors.New("embedding index has no fragments")
	ErrNoRelevantContent = errors.New("no relevant content found")
)

// DimensionMismatchError reports vectors of different lengths within one index.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrorKind groups errors by how callers should surface them.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInput
	KindNotFound
	KindCollaborator
	KindInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNotFound:
		return "not_found"
	case KindCollaborator:
		return "collaborator"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Classify maps an error onto the taxonomy used at the transport boundary.
func Classify(err error) ErrorKind {
	var dm *DimensionMismatchError
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrDocumentNotFound):
		return KindNotFound
	case errors.Is(err, ErrEmptyDocument),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidChunking),
		errors.Is(err, ErrModelMismatch):
		return KindInput
	case errors.Is(err, ErrEmptyIndex),
		errors.Is(err, ErrNoRelevantContent),
		errors.As(err, &dm):
		return KindInvariant
	case errors.Is(err, ErrExtraction),
		errors.Is(err, ErrEmbedding),
		errors.Is(err, ErrGeneration),
		errors.Is(err, ErrStorage):
		return KindCollaborator
	default:
		return KindUnknown
	}
}
