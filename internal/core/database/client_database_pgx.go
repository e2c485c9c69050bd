package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/inferahq/infera/internal/config"
	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// DB exposes the underlying pool for components that share the connection
// (the pgvector store keeps its chunks in the same database).
func (c *DatabaseClient) DB() *sql.DB { return c.db }

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Notebooks

func (c *DatabaseClient) CreateNotebook(ctx context.Context, nb *models.Notebook) error {
	if nb == nil {
		return errors.New("nil notebook")
	}
	const q = `
		INSERT INTO notebooks (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, nb.ID, nb.UserID, nb.Title)
	return err
}

func (c *DatabaseClient) GetNotebookByID(ctx context.Context, id string) (*models.Notebook, error) {
	const q = `
		SELECT id, user_id, title, has_audio_overview, audio_status, audio_url, audio_title, created_at, updated_at
		FROM notebooks WHERE id = $1
	`
	var nb models.Notebook
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&nb.ID, &nb.UserID, &nb.Title, &nb.HasAudioOverview, &nb.AudioStatus, &nb.AudioURL, &nb.AudioTitle, &nb.CreatedAt, &nb.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &nb, nil
}

func (c *DatabaseClient) ListNotebooksByUser(ctx context.Context, userID string) ([]models.Notebook, error) {
	const q = `
		SELECT id, user_id, title, has_audio_overview, audio_status, audio_url, audio_title, created_at, updated_at
		FROM notebooks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notebook
	for rows.Next() {
		var nb models.Notebook
		if err := rows.Scan(
			&nb.ID, &nb.UserID, &nb.Title, &nb.HasAudioOverview, &nb.AudioStatus, &nb.AudioURL, &nb.AudioTitle, &nb.CreatedAt, &nb.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, nb)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteNotebook(ctx context.Context, id string) error {
	// Sources, notes and chat messages cascade via FK.
	const q = `DELETE FROM notebooks WHERE id = $1`
	_, err := c.db.ExecContext(ctx, q, id)
	return err
}

func (c *DatabaseClient) UpdateNotebookAudioOverview(ctx context.Context, id, status, audioURL, audioTitle string) error {
	const q = `
		UPDATE notebooks
		SET has_audio_overview = TRUE, audio_status = $2, audio_url = $3, audio_title = $4, updated_at = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, status, audioURL, audioTitle)
	return err
}

// Sources

func (c *DatabaseClient) CreateSource(ctx context.Context, src *models.Source) error {
	if src == nil {
		return errors.New("nil source")
	}
	const q = `
		INSERT INTO sources (id, notebook_id, title, type, url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, src.ID, src.NotebookID, src.Title, src.Type, src.URL, src.Status)
	return err
}

func (c *DatabaseClient) GetSourceByID(ctx context.Context, id string) (*models.Source, error) {
	const q = `
		SELECT id, notebook_id, title, type, url, status, created_at, updated_at
		FROM sources WHERE id = $1
	`
	var s models.Source
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.NotebookID, &s.Title, &s.Type, &s.URL, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) ListSourcesByNotebook(ctx context.Context, notebookID string) ([]models.Source, error) {
	const q = `
		SELECT id, notebook_id, title, type, url, status, created_at, updated_at
		FROM sources
		WHERE notebook_id = $1
		ORDER BY created_at DESC
	`
	return c.scanSources(ctx, q, notebookID)
}

func (c *DatabaseClient) ListSourcesByStatus(ctx context.Context, status string) ([]models.Source, error) {
	const q = `
		SELECT id, notebook_id, title, type, url, status, created_at, updated_at
		FROM sources
		WHERE status = $1
		ORDER BY created_at ASC
	`
	return c.scanSources(ctx, q, status)
}

func (c *DatabaseClient) scanSources(ctx context.Context, q string, arg any) ([]models.Source, error) {
	rows, err := c.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var s models.Source
		if err := rows.Scan(
			&s.ID, &s.NotebookID, &s.Title, &s.Type, &s.URL, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSourceStatus is deliberately a no-op when the row no longer exists:
// an in-flight ingestion job may race a concurrent delete of its source.
func (c *DatabaseClient) UpdateSourceStatus(ctx context.Context, id, status string) error {
	const q = `
		UPDATE sources
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, status)
	return err
}

func (c *DatabaseClient) FinalizeSource(ctx context.Context, id, title string) error {
	const q = `
		UPDATE sources
		SET status = 'COMPLETED', title = $2, updated_at = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, title)
	return err
}

func (c *DatabaseClient) UpdateSourceTitle(ctx context.Context, id, title string) error {
	const q = `
		UPDATE sources
		SET title = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, title)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (c *DatabaseClient) DeleteSource(ctx context.Context, id string) error {
	const q = `DELETE FROM sources WHERE id = $1`
	_, err := c.db.ExecContext(ctx, q, id)
	return err
}

// Chat messages

func (c *DatabaseClient) CreateChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg == nil {
		return errors.New("nil chat message")
	}
	const q = `
		INSERT INTO chat_messages (id, notebook_id, sender, message, created_at)
		VALUES ($1, $2, $3, $4, now())
	`
	_, err := c.db.ExecContext(ctx, q, msg.ID, msg.NotebookID, msg.Sender, msg.Message)
	return err
}

func (c *DatabaseClient) ListChatMessages(ctx context.Context, notebookID string) ([]models.ChatMessage, error) {
	const q = `
		SELECT id, notebook_id, sender, message, created_at
		FROM chat_messages
		WHERE notebook_id = $1
		ORDER BY created_at ASC
	`
	return c.scanMessages(ctx, q, notebookID)
}

func (c *DatabaseClient) LatestChatMessages(ctx context.Context, notebookID string, n int) ([]models.ChatMessage, error) {
	const q = `
		SELECT id, notebook_id, sender, message, created_at
		FROM chat_messages
		WHERE notebook_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return c.scanMessages(ctx, q, notebookID, n)
}

func (c *DatabaseClient) scanMessages(ctx context.Context, q string, args ...any) ([]models.ChatMessage, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.NotebookID, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Notes

func (c *DatabaseClient) CreateNote(ctx context.Context, note *models.Note) error {
	if note == nil {
		return errors.New("nil note")
	}
	const q = `
		INSERT INTO notes (id, notebook_id, title, content, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, note.ID, note.NotebookID, note.Title, note.Content, note.Type, note.Status)
	return err
}

func (c *DatabaseClient) UpdateNote(ctx context.Context, id, title, content, status string) error {
	const q = `
		UPDATE notes
		SET title = $2, content = $3, status = $4, updated_at = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, title, content, status)
	return err
}

func (c *DatabaseClient) UpdateNoteStatus(ctx context.Context, id, status string) error {
	const q = `
		UPDATE notes
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, status)
	return err
}

func (c *DatabaseClient) ListNotesByNotebook(ctx context.Context, notebookID string) ([]models.Note, error) {
	const q = `
		SELECT id, notebook_id, title, content, type, status, created_at, updated_at
		FROM notes
		WHERE notebook_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, notebookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.NotebookID, &n.Title, &n.Content, &n.Type, &n.Status, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteNote(ctx context.Context, notebookID, noteID string) error {
	const q = `DELETE FROM notes WHERE id = $1 AND notebook_id = $2`
	res, err := c.db.ExecContext(ctx, q, noteID, notebookID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Ingest step ledger

func (c *DatabaseClient) RecordIngestStep(ctx context.Context, step *models.IngestStep) error {
	if step == nil {
		return errors.New("nil ingest step")
	}
	const q = `
		INSERT INTO ingest_steps (source_id, step, payload, completed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (source_id, step) DO UPDATE SET payload = EXCLUDED.payload, completed_at = now()
	`
	_, err := c.db.ExecContext(ctx, q, step.SourceID, step.Step, step.Payload)
	return err
}

func (c *DatabaseClient) GetIngestStep(ctx context.Context, sourceID, step string) (*models.IngestStep, error) {
	const q = `
		SELECT source_id, step, payload, completed_at
		FROM ingest_steps
		WHERE source_id = $1 AND step = $2
	`
	var s models.IngestStep
	err := c.db.QueryRowContext(ctx, q, sourceID, step).Scan(&s.SourceID, &s.Step, &s.Payload, &s.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) DeleteIngestSteps(ctx context.Context, sourceID string) error {
	const q = `DELETE FROM ingest_steps WHERE source_id = $1`
	_, err := c.db.ExecContext(ctx, q, sourceID)
	return err
}
