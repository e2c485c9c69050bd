// Package extract turns raw source material into plain-text documents with
// source-specific metadata. One extractor per source type, selected through
// an explicit lookup table.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/inferahq/infera/internal/core"
)

// Input describes one unit of raw material to extract.
type Input struct {
	SourceID    string
	Type        string // file | website | youtube | text
	URL         string
	Data        []byte // already-fetched bytes for file sources
	ContentType string // MIME hint for file sources
	Text        string // verbatim content for text sources
}

// Document is one logical extracted document. A file source may yield several
// (one per CSV row, for instance); most sources yield one.
type Document struct {
	Text     string
	Title    string
	Metadata map[string]string
}

// Extractor extracts documents for one source type. Read-only with respect to
// persisted state; network fetches are the only side effects.
type Extractor interface {
	Extract(ctx context.Context, in Input) ([]Document, error)
}

// Registry dispatches to the extractor registered for a source type.
type Registry struct {
	byType map[string]Extractor
}

// NewRegistry wires the default extractor set.
func NewRegistry() *Registry {
	httpc := &http.Client{Timeout: 60 * time.Second}
	return &Registry{byType: map[string]Extractor{
		"file":    NewFileExtractor(),
		"website": NewWebsiteExtractor(httpc),
		"youtube": NewYoutubeExtractor(httpc),
		"text":    &TextExtractor{},
	}}
}

// Register replaces the extractor for a type. Used by tests to substitute
// fakes.
func (r *Registry) Register(sourceType string, e Extractor) {
	r.byType[sourceType] = e
}

// Extract dispatches on the input's source type.
func (r *Registry) Extract(ctx context.Context, in Input) ([]Document, error) {
	e, ok := r.byType[in.Type]
	if !ok {
		return nil, fmt.Errorf("%w: source type %q", core.ErrUnsupportedContentType, in.Type)
	}
	return e.Extract(ctx, in)
}
