package core

import (
	"context"
	"io"

	"github.com/inferahq/infera/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateNotebook(ctx context.Context, nb *models.Notebook) error
	GetNotebookByID(ctx context.Context, id string) (*models.Notebook, error)
	ListNotebooksByUser(ctx context.Context, userID string) ([]models.Notebook, error)
	DeleteNotebook(ctx context.Context, id string) error
	UpdateNotebookAudioOverview(ctx context.Context, id, status, audioURL, audioTitle string) error

	CreateSource(ctx context.Context, src *models.Source) error
	GetSourceByID(ctx context.Context, id string) (*models.Source, error)
	ListSourcesByNotebook(ctx context.Context, notebookID string) ([]models.Source, error)
	ListSourcesByStatus(ctx context.Context, status string) ([]models.Source, error)
	// UpdateSourceStatus is a no-op when the row was deleted mid-flight.
	UpdateSourceStatus(ctx context.Context, id, status string) error
	// FinalizeSource applies COMPLETED status and the discovered title in a
	// single UPDATE so no intermediate state is visible.
	FinalizeSource(ctx context.Context, id, title string) error
	UpdateSourceTitle(ctx context.Context, id, title string) error
	DeleteSource(ctx context.Context, id string) error

	CreateChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ListChatMessages(ctx context.Context, notebookID string) ([]models.ChatMessage, error)
	// LatestChatMessages returns the most recent n messages, newest first.
	LatestChatMessages(ctx context.Context, notebookID string, n int) ([]models.ChatMessage, error)

	CreateNote(ctx context.Context, note *models.Note) error
	UpdateNote(ctx context.Context, id, title, content, status string) error
	UpdateNoteStatus(ctx context.Context, id, status string) error
	ListNotesByNotebook(ctx context.Context, notebookID string) ([]models.Note, error)
	DeleteNote(ctx context.Context, notebookID, noteID string) error

	// Ingest step ledger. GetIngestStep returns (nil, nil) when the step has
	// not been recorded yet.
	RecordIngestStep(ctx context.Context, step *models.IngestStep) error
	GetIngestStep(ctx context.Context, sourceID, step string) (*models.IngestStep, error)
	DeleteIngestSteps(ctx context.Context, sourceID string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// Abstract so AWS can be swapped for MinIO, GCP, etc.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
