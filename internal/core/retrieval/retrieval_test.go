package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/vectorstore"
	"github.com/inferahq/infera/internal/models"
)

type stubStore struct {
	hits      []core.ChunkRecord
	gotQuery  string
	gotK      int
	gotFilter core.Filter
	searched  bool
}

func (s *stubStore) Upsert(context.Context, []core.ChunkRecord) error { return nil }
func (s *stubStore) Delete(context.Context, core.Filter) error        { return nil }

func (s *stubStore) Search(_ context.Context, query string, k int, f core.Filter) ([]core.ChunkRecord, error) {
	s.searched = true
	s.gotQuery = query
	s.gotK = k
	s.gotFilter = f
	if len(s.hits) > k {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

type stubHistory struct {
	msgs []models.ChatMessage
}

func (s *stubHistory) LatestChatMessages(context.Context, string, int) ([]models.ChatMessage, error) {
	return s.msgs, nil
}

type wordEmbedder struct{}

func (wordEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, 4)
		for j, r := range t {
			vec[j%4] += float32(r)
		}
		out[i] = vec
	}
	return out, nil
}

func chunkOfWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "w"
	}
	return strings.Join(words, " ")
}

func testNotebook() *models.Notebook {
	return &models.Notebook{ID: "nb-1", UserID: "user-1", Title: "research"}
}

func TestBuildChatContextNoSources(t *testing.T) {
	b := NewBuilder(&stubStore{}, &stubHistory{})
	_, err := b.BuildChatContext(context.Background(), testNotebook(), nil, "what is go")
	require.ErrorIs(t, err, core.ErrNoSourcesSelected)

	store := &stubStore{}
	b = NewBuilder(store, &stubHistory{})
	_, err = b.BuildChatContext(context.Background(), testNotebook(), []string{}, "what is go")
	require.ErrorIs(t, err, core.ErrNoSourcesSelected)
	assert.False(t, store.searched, "no search may run without selected sources")
}

func TestBuildChatContextRendering(t *testing.T) {
	store := &stubStore{hits: []core.ChunkRecord{
		{Text: "Go compiles fast.", Metadata: map[string]string{"title": "Go Notes"}},
		{Text: "Channels carry values.", Metadata: map[string]string{"title": "Go Notes"}},
	}}
	history := &stubHistory{msgs: []models.ChatMessage{
		{Sender: models.SenderAssistant, Message: "It is a compiled language."},
		{Sender: models.SenderUser, Message: "What is Go?"},
	}}
	b := NewBuilder(store, history)

	cc, err := b.BuildChatContext(context.Background(), testNotebook(), []string{"src-1", "src-2"}, "how fast is go")
	require.NoError(t, err)

	assert.Equal(t, ChatTopK, store.gotK)
	assert.Equal(t, "how fast is go", store.gotQuery)
	assert.Equal(t, core.Filter{NotebookID: "nb-1", UserID: "user-1", SourceIDs: []string{"src-1", "src-2"}}, store.gotFilter)

	assert.Contains(t, cc.Sources, "Content: Go compiles fast.")
	assert.Contains(t, cc.Sources, `Metadata: {"title":"Go Notes"}`)
	assert.Equal(t, "User: What is Go?\nAssistant: It is a compiled language.", cc.History,
		"history must read oldest first")
}

func TestBuildBulkContextWordBudget(t *testing.T) {
	store := &stubStore{hits: []core.ChunkRecord{
		{Text: chunkOfWords(1500)},
		{Text: chunkOfWords(400)},
		{Text: chunkOfWords(300)},
	}}
	b := NewBuilder(store, &stubHistory{})

	out, err := b.BuildBulkContext(context.Background(), testNotebook(), []string{"src-1"}, "overview")
	require.NoError(t, err)

	assert.Equal(t, BulkTopK, store.gotK)
	assert.Len(t, strings.Fields(out), BulkWordBudget,
		"boundary chunk is cut so the budget is hit exactly")
}

func TestBuildBulkContextUnderBudget(t *testing.T) {
	store := &stubStore{hits: []core.ChunkRecord{
		{Text: "just a handful of words here"},
	}}
	b := NewBuilder(store, &stubHistory{})

	out, err := b.BuildBulkContext(context.Background(), testNotebook(), []string{"src-1"}, "overview")
	require.NoError(t, err)
	assert.Equal(t, "just a handful of words here", out)
}

func TestBuildBulkContextNoSources(t *testing.T) {
	b := NewBuilder(&stubStore{}, &stubHistory{})
	_, err := b.BuildBulkContext(context.Background(), testNotebook(), nil, "overview")
	require.ErrorIs(t, err, core.ErrNoSourcesSelected)
}

// The filter must keep other sources, notebooks and users out even when their
// content matches the query better.
func TestChatContextFilterIsolation(t *testing.T) {
	ctx := context.Background()
	mem := vectorstore.NewMemoryStore(wordEmbedder{})
	require.NoError(t, mem.Upsert(ctx, []core.ChunkRecord{
		{ID: "a", SourceID: "src-a", NotebookID: "nb-1", UserID: "user-1", Text: "alpha chunk"},
		{ID: "b", SourceID: "src-b", NotebookID: "nb-1", UserID: "user-1", Text: "alpha chunk"},
		{ID: "c", SourceID: "src-a", NotebookID: "nb-2", UserID: "user-2", Text: "alpha chunk"},
	}))

	b := NewBuilder(mem, &stubHistory{})
	cc, err := b.BuildChatContext(ctx, testNotebook(), []string{"src-b"}, "alpha chunk")
	require.NoError(t, err)

	assert.Contains(t, cc.Sources, "alpha chunk")
	assert.Equal(t, 1, strings.Count(cc.Sources, "Content:"),
		"only the selected source in the caller's notebook may surface")
}
