package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/inferahq/infera/internal/core"
)

// MemoryStore is a brute-force in-memory VectorStore with the same filter
// semantics as the Postgres store. Used by tests and small local setups.
type MemoryStore struct {
	embedder core.EmbeddingProvider

	mu      sync.RWMutex
	records []core.ChunkRecord
	vectors [][]float32
}

func NewMemoryStore(embedder core.EmbeddingProvider) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

func (m *MemoryStore) Upsert(ctx context.Context, chunks []core.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if err := validateRecord(&chunks[i]); err != nil {
			return err
		}
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vecs, err := m.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range chunks {
		rec := chunks[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		m.records = append(m.records, rec)
		m.vectors = append(m.vectors, vecs[i])
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, query string, k int, f core.Filter) ([]core.ChunkRecord, error) {
	vecs, err := m.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil, err
	}
	qv := vecs[0]

	type scored struct {
		rec   core.ChunkRecord
		score float64
	}

	m.mu.RLock()
	var hits []scored
	for i := range m.records {
		if !f.Matches(&m.records[i]) {
			continue
		}
		hits = append(hits, scored{rec: m.records[i], score: cosine(qv, m.vectors[i])})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]core.ChunkRecord, len(hits))
	for i := range hits {
		out[i] = hits[i].rec
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, f core.Filter) error {
	if f.NotebookID == "" && f.UserID == "" && len(f.SourceIDs) == 0 {
		return fmt.Errorf("refusing to delete with an empty filter")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keptRecs := m.records[:0]
	keptVecs := m.vectors[:0]
	for i := range m.records {
		if f.Matches(&m.records[i]) {
			continue
		}
		keptRecs = append(keptRecs, m.records[i])
		keptVecs = append(keptVecs, m.vectors[i])
	}
	m.records = keptRecs
	m.vectors = keptVecs
	return nil
}

// Count returns the number of stored records matching the filter.
func (m *MemoryStore) Count(f core.Filter) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for i := range m.records {
		if f.Matches(&m.records[i]) {
			n++
		}
	}
	return n
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ core.VectorStore = (*MemoryStore)(nil)
