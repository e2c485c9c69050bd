package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/generate"
	"github.com/inferahq/infera/internal/models"
)

type NoteService struct {
	db  core.DbClient
	gen *generate.NoteGenerator
	log *zap.Logger
}

func NewNoteService(db core.DbClient, gen *generate.NoteGenerator, log *zap.Logger) *NoteService {
	return &NoteService{db: db, gen: gen, log: log}
}

// Create returns the PROCESSING note immediately and finishes generation in
// the background. The background context is independent of the request so a
// closed connection cannot strand the note.
func (s *NoteService) Create(ctx context.Context, nb *models.Notebook, brief, noteType string) (*models.Note, error) {
	note, err := s.gen.Begin(ctx, nb.ID, brief, noteType)
	if err != nil {
		return nil, err
	}
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.gen.Complete(bg, note, brief); err != nil {
			s.log.Error("note generation", zap.String("note_id", note.ID), zap.Error(err))
		}
	}()
	return note, nil
}

func (s *NoteService) List(ctx context.Context, notebookID string) ([]models.Note, error) {
	return s.db.ListNotesByNotebook(ctx, notebookID)
}

func (s *NoteService) Delete(ctx context.Context, nb *models.Notebook, noteID string) error {
	return s.db.DeleteNote(ctx, nb.ID, noteID)
}
