package models

import (
	"time"
)

// Source lifecycle statuses. Transitions are enforced by the ingest engine;
// COMPLETED and FAILED are terminal.
const (
	SourceStatusUploading  = "UPLOADING"
	SourceStatusProcessing = "PROCESSING"
	SourceStatusCompleted  = "COMPLETED"
	SourceStatusFailed     = "FAILED"
)

// Source types accepted by the ingestion pipeline.
const (
	SourceTypeFile    = "file"
	SourceTypeWebsite = "website"
	SourceTypeYoutube = "youtube"
	SourceTypeText    = "text"
)

// Note and audio-overview statuses.
const (
	NoteStatusProcessing = "PROCESSING"
	NoteStatusCompleted  = "COMPLETED"
	NoteStatusFailed     = "FAILED"
)

const (
	NoteTypeText    = "TEXT"
	NoteTypeMindMap = "MIND_MAP"
)

// Chat message senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Notebook groups sources, notes and chat history for one user.
type Notebook struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	Title            string    `db:"title" json:"title"`
	HasAudioOverview bool      `db:"has_audio_overview" json:"has_audio_overview"`
	AudioStatus      string    `db:"audio_status" json:"audio_status,omitempty"`
	AudioURL         string    `db:"audio_url" json:"audio_url,omitempty"`
	AudioTitle       string    `db:"audio_title" json:"audio_title,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Source is one unit of ingested material (file, URL, or pasted text).
// The row holds no content; a source's content lives only in its chunks.
type Source struct {
	ID         string    `db:"id" json:"id"`
	NotebookID string    `db:"notebook_id" json:"notebook_id"`
	Title      string    `db:"title" json:"title"`
	Type       string    `db:"type" json:"type"` // file | website | youtube | text
	URL        string    `db:"url" json:"url"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage is one turn in a notebook's conversation. Append-only.
type ChatMessage struct {
	ID         string    `db:"id" json:"id"`
	NotebookID string    `db:"notebook_id" json:"notebook_id"`
	Sender     string    `db:"sender" json:"sender"` // "user" or "assistant"
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Note is a generated artifact (text note or mind-map payload).
type Note struct {
	ID         string    `db:"id" json:"id"`
	NotebookID string    `db:"notebook_id" json:"notebook_id"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	Type       string    `db:"type" json:"type"`     // TEXT | MIND_MAP
	Status     string    `db:"status" json:"status"` // PROCESSING | COMPLETED | FAILED
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// IngestStep is one durably recorded workflow step for a source's ingestion
// job. A step row exists only after the step completed successfully; the
// engine resumes a restarted job from the last recorded step.
type IngestStep struct {
	SourceID    string    `db:"source_id" json:"source_id"`
	Step        string    `db:"step" json:"step"`
	Payload     []byte    `db:"payload" json:"payload"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}
