package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/models"
)

// stubDB overrides only the calls under test; anything else panics through
// the embedded nil interface.
type stubDB struct {
	core.DbClient

	notebooks map[string]*models.Notebook
	sources   map[string]*models.Source

	createdSources  []string
	deletedSources  []string
	deletedSteps    []string
	deletedNotebook string
	renamed         map[string]string
}

func newStubDB() *stubDB {
	return &stubDB{
		notebooks: map[string]*models.Notebook{},
		sources:   map[string]*models.Source{},
		renamed:   map[string]string{},
	}
}

func (s *stubDB) CreateNotebook(_ context.Context, nb *models.Notebook) error {
	s.notebooks[nb.ID] = nb
	return nil
}

func (s *stubDB) GetNotebookByID(_ context.Context, id string) (*models.Notebook, error) {
	return s.notebooks[id], nil
}

func (s *stubDB) DeleteNotebook(_ context.Context, id string) error {
	s.deletedNotebook = id
	delete(s.notebooks, id)
	return nil
}

func (s *stubDB) CreateSource(_ context.Context, src *models.Source) error {
	s.sources[src.ID] = src
	s.createdSources = append(s.createdSources, src.ID)
	return nil
}

func (s *stubDB) GetSourceByID(_ context.Context, id string) (*models.Source, error) {
	return s.sources[id], nil
}

func (s *stubDB) UpdateSourceTitle(_ context.Context, id, title string) error {
	s.renamed[id] = title
	return nil
}

func (s *stubDB) DeleteSource(_ context.Context, id string) error {
	s.deletedSources = append(s.deletedSources, id)
	delete(s.sources, id)
	return nil
}

func (s *stubDB) DeleteIngestSteps(_ context.Context, sourceID string) error {
	s.deletedSteps = append(s.deletedSteps, sourceID)
	return nil
}

type stubQueue struct {
	enqueued []string
	purged   []core.Filter
}

func (q *stubQueue) Enqueue(sourceID string)        { q.enqueued = append(q.enqueued, sourceID) }
func (q *stubQueue) EnqueuePurge(f core.Filter)     { q.purged = append(q.purged, f) }

type stubStorage struct {
	uploads map[string][]byte
	deleted []string
}

func newStubStorage() *stubStorage { return &stubStorage{uploads: map[string][]byte{}} }

func (s *stubStorage) UploadFile(_ context.Context, _, key string, data io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	s.uploads[key] = b
	return "https://infera-notebook.s3.test/" + key, nil
}

func (s *stubStorage) DeleteFile(_ context.Context, _, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubStorage) GetFile(context.Context, string, string) ([]byte, error) { return nil, nil }
func (s *stubStorage) GetObjectReader(context.Context, string, string) (io.ReadCloser, error) {
	return nil, nil
}

func notebook() *models.Notebook {
	return &models.Notebook{ID: "nb-1", UserID: "user-1", Title: "research"}
}

func newSourceFixture() (*stubDB, *stubStorage, *stubQueue, *SourceService) {
	db := newStubDB()
	storage := newStubStorage()
	queue := &stubQueue{}
	return db, storage, queue, NewSourceService(db, storage, queue, "infera-notebook")
}

func TestCreateFromFileRejectsUnsupportedType(t *testing.T) {
	db, storage, queue, svc := newSourceFixture()

	_, err := svc.CreateFromFile(context.Background(), notebook(), "malware.exe", "application/octet-stream", strings.NewReader("x"))
	require.ErrorIs(t, err, core.ErrUnsupportedContentType)

	assert.Empty(t, db.createdSources, "no row may exist for a rejected upload")
	assert.Empty(t, storage.uploads, "nothing may be stored for a rejected upload")
	assert.Empty(t, queue.enqueued)
}

func TestCreateFromFile(t *testing.T) {
	db, _, queue, svc := newSourceFixture()

	src, err := svc.CreateFromFile(context.Background(), notebook(), "paper.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceStatusUploading, src.Status)
	assert.Equal(t, models.SourceTypeFile, src.Type)
	assert.Equal(t, "paper.pdf", src.Title)
	assert.Contains(t, src.URL, "user-1/nb-1/"+src.ID+"/paper.pdf")
	require.Len(t, db.createdSources, 1)
	assert.Equal(t, []string{src.ID}, queue.enqueued)
}

func TestCreateFromURLValidation(t *testing.T) {
	_, _, queue, svc := newSourceFixture()

	_, err := svc.CreateFromURL(context.Background(), notebook(), "ftp-thing", "https://example.com")
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.CreateFromURL(context.Background(), notebook(), models.SourceTypeWebsite, "not a url")
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.CreateFromURL(context.Background(), notebook(), models.SourceTypeWebsite, "ftp://example.com/file")
	require.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Empty(t, queue.enqueued)
}

func TestCreateFromURL(t *testing.T) {
	_, _, queue, svc := newSourceFixture()

	src, err := svc.CreateFromURL(context.Background(), notebook(), models.SourceTypeYoutube, "https://youtu.be/abc123DEF45")
	require.NoError(t, err)
	assert.Equal(t, "YouTube video", src.Title)
	assert.Equal(t, []string{src.ID}, queue.enqueued)
}

func TestCreateFromText(t *testing.T) {
	_, storage, queue, svc := newSourceFixture()

	_, err := svc.CreateFromText(context.Background(), notebook(), "   ")
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, storage.uploads)

	src, err := svc.CreateFromText(context.Background(), notebook(), "pasted research notes")
	require.NoError(t, err)
	assert.Equal(t, models.SourceTypeText, src.Type)
	assert.Equal(t, "pasted research notes", src.Title)
	assert.Equal(t, []byte("pasted research notes"), storage.uploads["user-1/nb-1/"+src.ID+"/content.txt"],
		"pasted text is stored like any other source body")
	assert.Equal(t, []string{src.ID}, queue.enqueued)
}

func TestRenameChecksNotebookMembership(t *testing.T) {
	db, _, _, svc := newSourceFixture()
	db.sources["src-other"] = &models.Source{ID: "src-other", NotebookID: "nb-other"}

	_, err := svc.Rename(context.Background(), notebook(), "src-other", "new title")
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, db.renamed)
}

func TestDeleteSourcePurgesEverything(t *testing.T) {
	db, storage, queue, svc := newSourceFixture()
	db.sources["src-1"] = &models.Source{
		ID:         "src-1",
		NotebookID: "nb-1",
		Type:       models.SourceTypeFile,
		URL:        "https://infera-notebook.s3.test/user-1/nb-1/src-1/paper.pdf",
	}

	require.NoError(t, svc.Delete(context.Background(), notebook(), "src-1"))

	assert.Equal(t, []string{"src-1"}, db.deletedSources)
	assert.Equal(t, []string{"src-1"}, db.deletedSteps)
	assert.Equal(t, []string{"user-1/nb-1/src-1/paper.pdf"}, storage.deleted)
	require.Len(t, queue.purged, 1)
	assert.Equal(t, core.Filter{NotebookID: "nb-1", UserID: "user-1", SourceIDs: []string{"src-1"}}, queue.purged[0])
}

func TestNotebookOwnership(t *testing.T) {
	db := newStubDB()
	queue := &stubQueue{}
	svc := NewNotebookService(db, queue)

	nb, err := svc.Create(context.Background(), "user-1", "research")
	require.NoError(t, err)

	got, err := svc.GetOwned(context.Background(), nb.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, nb.ID, got.ID)

	_, err = svc.GetOwned(context.Background(), nb.ID, "user-2")
	require.ErrorIs(t, err, core.ErrNotFound, "foreign notebooks look like missing ones")

	_, err = svc.GetOwned(context.Background(), "nope", "user-1")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestNotebookDeletePurgesVectors(t *testing.T) {
	db := newStubDB()
	queue := &stubQueue{}
	svc := NewNotebookService(db, queue)

	nb, err := svc.Create(context.Background(), "user-1", "research")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), nb))

	assert.Equal(t, nb.ID, db.deletedNotebook)
	require.Len(t, queue.purged, 1)
	assert.Equal(t, core.Filter{NotebookID: nb.ID, UserID: "user-1"}, queue.purged[0])
}
