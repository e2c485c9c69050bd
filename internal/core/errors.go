package core

import (
	"errors"
	"fmt"
)

// Domain errors shared across the pipeline. Handlers translate these into
// HTTP responses; the ingest engine uses them to decide between retrying a
// step and failing the source outright.
var (
	// ErrNotFound is returned for rows that do not exist or are not owned by
	// the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks request payloads rejected before any row or job
	// is created.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedContentType rejects file types no extractor handles.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrTranscriptUnavailable is returned for YouTube videos with no captions.
	ErrTranscriptUnavailable = errors.New("transcript unavailable")

	// ErrNoSourcesSelected rejects retrieval against zero sources before any
	// vector search is issued.
	ErrNoSourcesSelected = errors.New("no sources selected")

	// ErrVectorIndexUnavailable wraps vector index read/write failures.
	// Transient from the workflow engine's point of view.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrObjectStoreUnavailable wraps object storage read/write failures.
	// Also treated as transient.
	ErrObjectStoreUnavailable = errors.New("object storage unavailable")
)

// ExtractionError marks a source whose content could not be extracted.
// Not retried; the owning source transitions to FAILED.
type ExtractionError struct {
	SourceID string
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for source %s: %v", e.SourceID, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }
