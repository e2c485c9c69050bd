package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/models"
)

// IngestQueue is the slice of the workflow engine the services schedule work
// on. *ingest.Engine satisfies it.
type IngestQueue interface {
	Enqueue(sourceID string)
	EnqueuePurge(f core.Filter)
}

type NotebookService struct {
	db    core.DbClient
	queue IngestQueue
}

func NewNotebookService(db core.DbClient, queue IngestQueue) *NotebookService {
	return &NotebookService{db: db, queue: queue}
}

func (s *NotebookService) Create(ctx context.Context, userID, title string) (*models.Notebook, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", core.ErrInvalidInput)
	}
	nb := &models.Notebook{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
	}
	if err := s.db.CreateNotebook(ctx, nb); err != nil {
		return nil, err
	}
	return nb, nil
}

// GetOwned loads a notebook and checks ownership. A notebook that exists but
// belongs to someone else is reported exactly like one that does not exist.
func (s *NotebookService) GetOwned(ctx context.Context, notebookID, userID string) (*models.Notebook, error) {
	nb, err := s.db.GetNotebookByID(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	if nb == nil || nb.UserID != userID {
		return nil, core.ErrNotFound
	}
	return nb, nil
}

func (s *NotebookService) ListByUser(ctx context.Context, userID string) ([]models.Notebook, error) {
	return s.db.ListNotebooksByUser(ctx, userID)
}

// Delete removes the notebook row (sources, notes and messages cascade) and
// schedules removal of every vector the notebook owned.
func (s *NotebookService) Delete(ctx context.Context, nb *models.Notebook) error {
	if err := s.db.DeleteNotebook(ctx, nb.ID); err != nil {
		return err
	}
	s.queue.EnqueuePurge(core.Filter{NotebookID: nb.ID, UserID: nb.UserID})
	return nil
}
