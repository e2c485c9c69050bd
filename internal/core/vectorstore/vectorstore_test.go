package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferahq/infera/internal/core"
)

type hashEmbedder struct{}

func (hashEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, 8)
		for j, r := range t {
			vec[j%8] += float32(r)
		}
		out[i] = vec
	}
	return out, nil
}

func record(id, sourceID, notebookID, userID, text string) core.ChunkRecord {
	return core.ChunkRecord{ID: id, SourceID: sourceID, NotebookID: notebookID, UserID: userID, Text: text}
}

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore(hashEmbedder{})
	require.NoError(t, m.Upsert(context.Background(), []core.ChunkRecord{
		record("a1", "src-a", "nb-1", "user-1", "alpha text about databases"),
		record("a2", "src-a", "nb-1", "user-1", "more alpha text"),
		record("b1", "src-b", "nb-1", "user-1", "beta text about networks"),
		record("c1", "src-c", "nb-2", "user-2", "gamma text about databases"),
	}))
	return m
}

func TestMemoryStoreFilterBySources(t *testing.T) {
	m := seedStore(t)

	hits, err := m.Search(context.Background(), "databases", 10,
		core.Filter{NotebookID: "nb-1", UserID: "user-1", SourceIDs: []string{"src-b", "src-c"}})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "b1", hits[0].ID, "src-a and the other notebook's src-c must never surface")
}

func TestMemoryStoreFilterByNotebook(t *testing.T) {
	m := seedStore(t)

	hits, err := m.Search(context.Background(), "text", 10, core.Filter{NotebookID: "nb-1", UserID: "user-1"})
	require.NoError(t, err)

	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.Equal(t, "nb-1", h.NotebookID)
		assert.Equal(t, "user-1", h.UserID)
	}
}

func TestMemoryStoreSearchRespectsK(t *testing.T) {
	m := seedStore(t)
	hits, err := m.Search(context.Background(), "text", 2, core.Filter{NotebookID: "nb-1", UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestMemoryStoreDeleteThenSearch(t *testing.T) {
	m := seedStore(t)
	f := core.Filter{NotebookID: "nb-1", UserID: "user-1", SourceIDs: []string{"src-a"}}

	require.NoError(t, m.Delete(context.Background(), f))

	assert.Equal(t, 0, m.Count(f))
	hits, err := m.Search(context.Background(), "alpha", 10, f)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Other sources are untouched.
	assert.Equal(t, 1, m.Count(core.Filter{SourceIDs: []string{"src-b"}}))
	assert.Equal(t, 1, m.Count(core.Filter{SourceIDs: []string{"src-c"}}))
}

func TestMemoryStoreDeleteRefusesEmptyFilter(t *testing.T) {
	m := seedStore(t)
	require.Error(t, m.Delete(context.Background(), core.Filter{}))
	assert.Equal(t, 4, m.Count(core.Filter{NotebookID: "nb-1"})+m.Count(core.Filter{NotebookID: "nb-2"}),
		"an unfiltered delete must not wipe the collection")
}

func TestMemoryStoreUpsertRejectsIncompleteRecords(t *testing.T) {
	m := NewMemoryStore(hashEmbedder{})
	err := m.Upsert(context.Background(), []core.ChunkRecord{
		{ID: "x", SourceID: "src-a", Text: "missing tenant identity"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, m.Count(core.Filter{}))
}

func TestFilterClauses(t *testing.T) {
	where, args := filterClauses(core.Filter{NotebookID: "nb-1", UserID: "user-1", SourceIDs: []string{"s1", "s2"}}, 2)
	assert.Equal(t, "WHERE notebook_id = $2 AND user_id = $3 AND source_id = ANY($4::uuid[])", where)
	require.Len(t, args, 3)
	assert.Equal(t, []string{"s1", "s2"}, args[2])

	where, args = filterClauses(core.Filter{SourceIDs: []string{"s1"}}, 1)
	assert.Equal(t, "WHERE source_id = ANY($1::uuid[])", where)
	assert.Len(t, args, 1)

	where, args = filterClauses(core.Filter{}, 1)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestPgStoreDeleteRefusesEmptyFilter(t *testing.T) {
	s := NewPgStore(nil, hashEmbedder{})
	err := s.Delete(context.Background(), core.Filter{})
	require.Error(t, err)
}
