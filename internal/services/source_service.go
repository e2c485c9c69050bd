package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/extract"
	"github.com/inferahq/infera/internal/models"
)

var supportedFileExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
}

type SourceService struct {
	db      core.DbClient
	storage core.ObjectClient
	queue   IngestQueue
	bucket  string
}

func NewSourceService(db core.DbClient, storage core.ObjectClient, queue IngestQueue, bucket string) *SourceService {
	return &SourceService{db: db, storage: storage, queue: queue, bucket: bucket}
}

// CreateFromFile stores the upload, creates the UPLOADING row and schedules
// ingestion. Unsupported file types are rejected before anything is written.
func (s *SourceService) CreateFromFile(ctx context.Context, nb *models.Notebook, filename, contentType string, data io.Reader) (*models.Source, error) {
	clean := filepath.Base(filename)
	if !supportedFileExts[strings.ToLower(path.Ext(clean))] {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedContentType, clean)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	sourceID := uuid.NewString()
	key := s.objectKey(nb, sourceID, clean)
	storageURL, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload source file: %w", err)
	}

	return s.createAndEnqueue(ctx, &models.Source{
		ID:         sourceID,
		NotebookID: nb.ID,
		Title:      clean,
		Type:       models.SourceTypeFile,
		URL:        storageURL,
		Status:     models.SourceStatusUploading,
	})
}

// CreateFromURL registers a website or YouTube source. Only the URL shape is
// validated here; fetchability is the pipeline's problem.
func (s *SourceService) CreateFromURL(ctx context.Context, nb *models.Notebook, sourceType, rawURL string) (*models.Source, error) {
	if sourceType != models.SourceTypeWebsite && sourceType != models.SourceTypeYoutube {
		return nil, fmt.Errorf("%w: unknown url source type %q", core.ErrInvalidInput, sourceType)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: a valid http(s) url is required", core.ErrInvalidInput)
	}

	title := u.Host
	if sourceType == models.SourceTypeYoutube {
		title = "YouTube video"
	}
	return s.createAndEnqueue(ctx, &models.Source{
		ID:         uuid.NewString(),
		NotebookID: nb.ID,
		Title:      title,
		Type:       sourceType,
		URL:        rawURL,
		Status:     models.SourceStatusUploading,
	})
}

// CreateFromText stores pasted text as an object so the pipeline reads every
// source the same way. The title is a provisional prefix until ingestion
// generates a real one.
func (s *SourceService) CreateFromText(ctx context.Context, nb *models.Notebook, text string) (*models.Source, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text content is required", core.ErrInvalidInput)
	}

	sourceID := uuid.NewString()
	key := s.objectKey(nb, sourceID, "content.txt")
	storageURL, err := s.storage.UploadFile(ctx, s.bucket, key, strings.NewReader(text), "text/plain")
	if err != nil {
		return nil, fmt.Errorf("store text content: %w", err)
	}

	return s.createAndEnqueue(ctx, &models.Source{
		ID:         sourceID,
		NotebookID: nb.ID,
		Title:      extract.TruncateTitle(text),
		Type:       models.SourceTypeText,
		URL:        storageURL,
		Status:     models.SourceStatusUploading,
	})
}

func (s *SourceService) createAndEnqueue(ctx context.Context, src *models.Source) (*models.Source, error) {
	if err := s.db.CreateSource(ctx, src); err != nil {
		return nil, err
	}
	s.queue.Enqueue(src.ID)
	return src, nil
}

func (s *SourceService) List(ctx context.Context, notebookID string) ([]models.Source, error) {
	return s.db.ListSourcesByNotebook(ctx, notebookID)
}

// GetInNotebook loads a source and checks it belongs to the notebook.
// Mismatches look identical to missing sources.
func (s *SourceService) GetInNotebook(ctx context.Context, nb *models.Notebook, sourceID string) (*models.Source, error) {
	src, err := s.db.GetSourceByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if src == nil || src.NotebookID != nb.ID {
		return nil, core.ErrNotFound
	}
	return src, nil
}

func (s *SourceService) Rename(ctx context.Context, nb *models.Notebook, sourceID, title string) (*models.Source, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", core.ErrInvalidInput)
	}
	src, err := s.GetInNotebook(ctx, nb, sourceID)
	if err != nil {
		return nil, err
	}
	if err := s.db.UpdateSourceTitle(ctx, src.ID, title); err != nil {
		return nil, err
	}
	src.Title = title
	return src, nil
}

// Delete removes the row and the stored object, then schedules vector
// cleanup. An in-flight ingestion job observing the missing row stops on its
// own.
func (s *SourceService) Delete(ctx context.Context, nb *models.Notebook, sourceID string) error {
	src, err := s.GetInNotebook(ctx, nb, sourceID)
	if err != nil {
		return err
	}
	if err := s.db.DeleteSource(ctx, src.ID); err != nil {
		return err
	}
	if err := s.db.DeleteIngestSteps(ctx, src.ID); err != nil {
		return err
	}
	if src.Type == models.SourceTypeFile || src.Type == models.SourceTypeText {
		if u, perr := url.Parse(src.URL); perr == nil {
			_ = s.storage.DeleteFile(ctx, s.bucket, strings.TrimPrefix(u.Path, "/"))
		}
	}
	s.queue.EnqueuePurge(core.Filter{NotebookID: nb.ID, UserID: nb.UserID, SourceIDs: []string{src.ID}})
	return nil
}

func (s *SourceService) objectKey(nb *models.Notebook, sourceID, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s", nb.UserID, nb.ID, sourceID, filename)
}
