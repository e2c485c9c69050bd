package generate

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/retrieval"
	"github.com/inferahq/infera/internal/models"
)

type scriptedLLM struct {
	replies []string
	err     error

	systems []string
	users   []string
}

func (s *scriptedLLM) Generate(_ context.Context, system, user string) (string, error) {
	s.systems = append(s.systems, system)
	s.users = append(s.users, user)
	if s.err != nil {
		return "", s.err
	}
	i := len(s.users) - 1
	if i >= len(s.replies) {
		return "", errors.New("no scripted reply left")
	}
	return s.replies[i], nil
}

type stubBuilder struct {
	chat   *retrieval.ChatContext
	bulk   string
	err    error
	onChat func()
}

func (s *stubBuilder) BuildChatContext(context.Context, *models.Notebook, []string, string) (*retrieval.ChatContext, error) {
	if s.onChat != nil {
		s.onChat()
	}
	return s.chat, s.err
}

func (s *stubBuilder) BuildBulkContext(context.Context, *models.Notebook, []string, string) (string, error) {
	return s.bulk, s.err
}

type recordingChatStore struct {
	msgs []models.ChatMessage
}

func (r *recordingChatStore) CreateChatMessage(_ context.Context, msg *models.ChatMessage) error {
	r.msgs = append(r.msgs, *msg)
	return nil
}

type recordingNoteStore struct {
	created *models.Note
	updates []string // status history
	title   string
	content string
}

func (r *recordingNoteStore) CreateNote(_ context.Context, note *models.Note) error {
	cp := *note
	r.created = &cp
	return nil
}

func (r *recordingNoteStore) UpdateNote(_ context.Context, _, title, content, status string) error {
	r.title = title
	r.content = content
	r.updates = append(r.updates, status)
	return nil
}

func (r *recordingNoteStore) UpdateNoteStatus(_ context.Context, _, status string) error {
	r.updates = append(r.updates, status)
	return nil
}

func TestChatRespond(t *testing.T) {
	store := &recordingChatStore{}
	llm := &scriptedLLM{replies: []string{"Go was released in 2009."}}
	builder := &stubBuilder{chat: &retrieval.ChatContext{
		Sources: "Content: Go was released in 2009.",
		History: "User: hello\nAssistant: hi",
	}}
	nb := &models.Notebook{ID: "nb-1", UserID: "user-1"}

	c := NewChatResponder(store, builder, llm)
	reply, err := c.Respond(context.Background(), nb, []string{"src-1"}, "when was go released")
	require.NoError(t, err)

	require.Len(t, store.msgs, 2)
	assert.Equal(t, models.SenderUser, store.msgs[0].Sender)
	assert.Equal(t, "when was go released", store.msgs[0].Message)
	assert.Equal(t, models.SenderAssistant, store.msgs[1].Sender)
	assert.Equal(t, "Go was released in 2009.", reply.Message)

	require.Len(t, llm.systems, 1)
	assert.Contains(t, llm.systems[0], "this information is not available in the provided context",
		"the decline policy must ride along on every chat call")
	assert.Contains(t, llm.users[0], "Question:\nwhen was go released")
	assert.Contains(t, llm.users[0], "Content: Go was released in 2009.")
	assert.Contains(t, llm.users[0], "User: hello")
}

func TestChatRespondPersistsUserBeforeRetrieval(t *testing.T) {
	store := &recordingChatStore{}
	builder := &stubBuilder{chat: &retrieval.ChatContext{}}
	var atRetrieval int
	builder.onChat = func() { atRetrieval = len(store.msgs) }

	c := NewChatResponder(store, builder, &scriptedLLM{replies: []string{"ok"}})
	_, err := c.Respond(context.Background(), &models.Notebook{ID: "nb-1"}, []string{"src-1"}, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, atRetrieval, "the user turn is on record before the history fetch runs")
}

func TestChatRespondBuilderError(t *testing.T) {
	store := &recordingChatStore{}
	builder := &stubBuilder{err: errors.New("index down")}
	c := NewChatResponder(store, builder, &scriptedLLM{})

	_, err := c.Respond(context.Background(), &models.Notebook{ID: "nb-1"}, []string{"src-1"}, "q")
	require.Error(t, err)
	require.Len(t, store.msgs, 1, "the user turn stays on record when context assembly fails")
	assert.Equal(t, models.SenderUser, store.msgs[0].Sender)
}

func TestChatRespondNoSources(t *testing.T) {
	store := &recordingChatStore{}
	c := NewChatResponder(store, &stubBuilder{}, &scriptedLLM{})

	_, err := c.Respond(context.Background(), &models.Notebook{ID: "nb-1"}, nil, "q")
	require.ErrorIs(t, err, core.ErrNoSourcesSelected)
	assert.Empty(t, store.msgs, "nothing is persisted when no sources are selected")
}

func TestNoteLifecycle(t *testing.T) {
	store := &recordingNoteStore{}
	llm := &scriptedLLM{replies: []string{"Raft Explained", "## summary\ndetails"}}
	g := NewNoteGenerator(store, llm, zap.NewNop())

	note, err := g.Begin(context.Background(), "nb-1", "explain raft", models.NoteTypeText)
	require.NoError(t, err)
	assert.Equal(t, models.NoteStatusProcessing, store.created.Status)

	require.NoError(t, g.Complete(context.Background(), note, "explain raft"))
	assert.Equal(t, []string{models.NoteStatusCompleted}, store.updates)
	assert.Equal(t, "Raft Explained", store.title)
	assert.Equal(t, "## summary\ndetails", store.content)
}

func TestNoteFailureIsTerminal(t *testing.T) {
	store := &recordingNoteStore{}
	llm := &scriptedLLM{err: errors.New("model unavailable")}
	g := NewNoteGenerator(store, llm, zap.NewNop())

	note, err := g.Begin(context.Background(), "nb-1", "explain raft", models.NoteTypeText)
	require.NoError(t, err)

	require.Error(t, g.Complete(context.Background(), note, "explain raft"))
	assert.Equal(t, []string{models.NoteStatusFailed}, store.updates)
}

func TestNoteRejectsUnknownType(t *testing.T) {
	g := NewNoteGenerator(&recordingNoteStore{}, &scriptedLLM{}, zap.NewNop())
	_, err := g.Begin(context.Background(), "nb-1", "brief", "DIAGRAM")
	require.Error(t, err)
}

func TestParsePodcastScript(t *testing.T) {
	raw := "```json\n{\"title\": \"On Consensus\", \"segments\": [" +
		"{\"content\": \"Welcome to the Podcast.\", \"voice\": \"en-US-Wavenet-F\"}," +
		"{\"content\": \"Hi, I am the cohost.\", \"voice\": \"en-US-Wavenet-D\"}]}\n```"

	script, err := ParsePodcastScript(raw)
	require.NoError(t, err)
	assert.Equal(t, "On Consensus", script.Title)
	require.Len(t, script.Segments, 2)
	assert.Equal(t, PodcastVoiceFirst, script.Segments[0].Voice)
	assert.Equal(t, PodcastVoiceSecond, script.Segments[1].Voice)
}

func TestParsePodcastScriptRejects(t *testing.T) {
	cases := map[string]string{
		"prose":       "Here is your podcast script! Hope you like it.",
		"no title":    `{"segments": [{"content": "hi", "voice": "en-US-Wavenet-F"}]}`,
		"no segments": `{"title": "Empty", "segments": []}`,
		"blank body":  `{"title": "Blank", "segments": [{"content": "  ", "voice": "en-US-Wavenet-F"}]}`,
	}
	for name, raw := range cases {
		_, err := ParsePodcastScript(raw)
		assert.Errorf(t, err, "case %s should fail", name)
	}
}

func TestParsePodcastScriptDefaultsVoice(t *testing.T) {
	script, err := ParsePodcastScript(`{"title": "T", "segments": [{"content": "hello"}]}`)
	require.NoError(t, err)
	assert.Equal(t, PodcastVoiceFirst, script.Segments[0].Voice)
}

type recordingAudioStore struct {
	statuses []string
	url      string
	title    string
}

func (r *recordingAudioStore) UpdateNotebookAudioOverview(_ context.Context, _, status, url, title string) error {
	r.statuses = append(r.statuses, status)
	if status == models.NoteStatusCompleted {
		r.url = url
		r.title = title
	}
	return nil
}

type fakeTTS struct {
	mu    sync.Mutex
	calls []string // voices, in completion order
}

func (f *fakeTTS) Synthesize(_ context.Context, _, voice string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, voice)
	f.mu.Unlock()
	return []byte(voice + "|"), nil
}

type uploadRecorder struct {
	keys   []string
	bodies [][]byte
}

func (u *uploadRecorder) UploadFile(_ context.Context, _, key string, data io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	u.keys = append(u.keys, key)
	u.bodies = append(u.bodies, b)
	return "https://infera-notebook.s3.test/" + key, nil
}

func (u *uploadRecorder) DeleteFile(context.Context, string, string) error { return nil }
func (u *uploadRecorder) GetFile(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}
func (u *uploadRecorder) GetObjectReader(context.Context, string, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func TestPodcastGenerate(t *testing.T) {
	store := &recordingAudioStore{}
	tts := &fakeTTS{}
	uploads := &uploadRecorder{}
	llm := &scriptedLLM{replies: []string{`{"title": "On Go", "segments": [` +
		`{"content": "Welcome.", "voice": "en-US-Wavenet-F"},` +
		`{"content": "Hi.", "voice": "en-US-Wavenet-D"}]}`}}
	builder := &stubBuilder{bulk: "everything about go"}
	nb := &models.Notebook{ID: "nb-1", UserID: "user-1", Title: "go notes"}

	g := NewPodcastGenerator(store, builder, llm, tts, uploads, "infera-notebook", zap.NewNop())
	require.NoError(t, g.Generate(context.Background(), nb, []string{"src-1"}))

	assert.Equal(t, []string{models.NoteStatusProcessing, models.NoteStatusCompleted}, store.statuses)
	assert.Equal(t, "On Go", store.title)
	assert.Contains(t, store.url, "podcasts/nb-1/on-go-")

	assert.ElementsMatch(t, []string{PodcastVoiceFirst, PodcastVoiceSecond}, tts.calls)
	require.Len(t, uploads.keys, 3, "two segments plus the merged file")
	assert.Equal(t, []byte("en-US-Wavenet-F|en-US-Wavenet-D|"), uploads.bodies[2],
		"merged audio is the segments concatenated in order")
}

func TestPodcastGenerateBadScript(t *testing.T) {
	store := &recordingAudioStore{}
	llm := &scriptedLLM{replies: []string{"not json at all"}}
	g := NewPodcastGenerator(store, &stubBuilder{bulk: "ctx"}, llm, &fakeTTS{}, &uploadRecorder{}, "b", zap.NewNop())

	err := g.Generate(context.Background(), &models.Notebook{ID: "nb-1", Title: "t"}, []string{"src-1"})
	require.Error(t, err)
	assert.Equal(t, []string{models.NoteStatusProcessing, models.NoteStatusFailed}, store.statuses)
}

func TestPodcastSystemPromptPinsVoices(t *testing.T) {
	assert.True(t, strings.Contains(podcastSystemPrompt, PodcastVoiceFirst))
	assert.True(t, strings.Contains(podcastSystemPrompt, PodcastVoiceSecond))
}
