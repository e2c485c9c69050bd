package core

import "context"

// ChunkRecord is one embedded fragment of a source's extracted text as stored
// in the vector index. SourceID, NotebookID and UserID are mandatory on every
// record; the retrieval filter depends on them.
type ChunkRecord struct {
	ID         string
	SourceID   string
	NotebookID string
	UserID     string
	Text       string
	Embedding  []float32
	Metadata   map[string]string
}

// Filter restricts vector operations to records matching every set clause:
// equality on NotebookID and UserID, any-of on SourceIDs. Zero-valued clauses
// are omitted from the conjunction.
type Filter struct {
	NotebookID string
	UserID     string
	SourceIDs  []string
}

// Matches reports whether the record satisfies every set clause.
func (f Filter) Matches(rec *ChunkRecord) bool {
	if f.NotebookID != "" && rec.NotebookID != f.NotebookID {
		return false
	}
	if f.UserID != "" && rec.UserID != f.UserID {
		return false
	}
	if len(f.SourceIDs) > 0 {
		ok := false
		for _, id := range f.SourceIDs {
			if rec.SourceID == id {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// VectorStore wraps the single shared chunk collection. Every call MUST carry
// the filter discipline: the collection spans all notebooks and users, so a
// missing filter clause is a tenant-isolation bug, not just a correctness one.
type VectorStore interface {
	// Upsert embeds each chunk's text and writes vector + payload + metadata.
	// At-least-once; re-ingestion must Delete old chunks first.
	Upsert(ctx context.Context, chunks []ChunkRecord) error

	// Search embeds the query and returns the top-k nearest chunks matching
	// the filter.
	Search(ctx context.Context, query string, k int, f Filter) ([]ChunkRecord, error)

	// Delete removes all chunks matching the filter, synchronously.
	Delete(ctx context.Context, f Filter) error
}
