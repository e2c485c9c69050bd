package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/models"
)

type noteStore interface {
	CreateNote(ctx context.Context, note *models.Note) error
	UpdateNote(ctx context.Context, id, title, content, status string) error
	UpdateNoteStatus(ctx context.Context, id, status string) error
}

// NoteGenerator expands a brief note into a titled, formatted document with
// two sequential model calls. Notes start PROCESSING and always end in a
// terminal status, COMPLETED or FAILED.
type NoteGenerator struct {
	db  noteStore
	llm core.LLMProvider
	log *zap.Logger
}

func NewNoteGenerator(db noteStore, llm core.LLMProvider, log *zap.Logger) *NoteGenerator {
	return &NoteGenerator{db: db, llm: llm, log: log}
}

// Begin creates the PROCESSING row callers can return immediately. The brief
// is stored as the interim content so the client has something to show.
func (g *NoteGenerator) Begin(ctx context.Context, notebookID, brief, noteType string) (*models.Note, error) {
	if noteType != models.NoteTypeText && noteType != models.NoteTypeMindMap {
		return nil, fmt.Errorf("%w: unknown note type %q", core.ErrInvalidInput, noteType)
	}
	note := &models.Note{
		ID:         uuid.NewString(),
		NotebookID: notebookID,
		Title:      "Generating...",
		Content:    brief,
		Type:       noteType,
		Status:     models.NoteStatusProcessing,
	}
	if err := g.db.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// Complete runs both model calls and finalizes the row. Any failure marks
// the note FAILED; it never stays PROCESSING.
func (g *NoteGenerator) Complete(ctx context.Context, note *models.Note, brief string) error {
	title, err := g.llm.Generate(ctx, "", noteTitlePrompt(brief))
	if err != nil {
		return g.fail(ctx, note.ID, fmt.Errorf("generate title: %w", err))
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled Note"
	}

	var content string
	switch note.Type {
	case models.NoteTypeMindMap:
		content, err = g.llm.Generate(ctx, "", mindMapPrompt(brief))
	default:
		content, err = g.llm.Generate(ctx, "", noteContentPrompt(brief))
	}
	if err != nil {
		return g.fail(ctx, note.ID, fmt.Errorf("generate content: %w", err))
	}
	content = strings.TrimSpace(content)
	if content == "" {
		content = brief
	}

	if err := g.db.UpdateNote(ctx, note.ID, title, content, models.NoteStatusCompleted); err != nil {
		return g.fail(ctx, note.ID, fmt.Errorf("finalize note: %w", err))
	}
	return nil
}

func (g *NoteGenerator) fail(ctx context.Context, noteID string, cause error) error {
	g.log.Error("note generation failed", zap.String("note_id", noteID), zap.Error(cause))
	if err := g.db.UpdateNoteStatus(ctx, noteID, models.NoteStatusFailed); err != nil {
		g.log.Error("marking note failed", zap.String("note_id", noteID), zap.Error(err))
	}
	return cause
}
