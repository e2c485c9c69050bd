// Package retrieval assembles model context from the vector index: a small
// top-k context for chat turns and a large word-budgeted context for bulk
// generation (notes and audio overviews).
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/models"
)

const (
	// ChatTopK bounds how many chunks back a single chat turn.
	ChatTopK = 3
	// TranscriptDepth is how many prior messages the chat prompt carries.
	TranscriptDepth = 3

	// BulkTopK is deliberately larger than any realistic corpus so bulk
	// generation sees every relevant chunk; the word budget does the capping.
	BulkTopK       = 1000
	BulkWordBudget = 2000
)

// ChatContext is everything the chat prompt needs beyond the user's message.
type ChatContext struct {
	Sources string // rendered retrieved chunks
	History string // last few conversation turns, oldest first
}

// historyStore is the one persistence call the builder needs. core.DbClient
// satisfies it.
type historyStore interface {
	LatestChatMessages(ctx context.Context, notebookID string, n int) ([]models.ChatMessage, error)
}

// Builder runs filtered searches and renders their results for prompting.
type Builder struct {
	store core.VectorStore
	db    historyStore
}

func NewBuilder(store core.VectorStore, db historyStore) *Builder {
	return &Builder{store: store, db: db}
}

// BuildChatContext retrieves the top chunks for the query, restricted to the
// selected sources, plus the recent conversation. Fails fast when no sources
// are selected; no search is issued.
func (b *Builder) BuildChatContext(ctx context.Context, nb *models.Notebook, sourceIDs []string, query string) (*ChatContext, error) {
	if len(sourceIDs) == 0 {
		return nil, core.ErrNoSourcesSelected
	}

	f := core.Filter{NotebookID: nb.ID, UserID: nb.UserID, SourceIDs: sourceIDs}
	hits, err := b.store.Search(ctx, query, ChatTopK, f)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	history, err := b.recentHistory(ctx, nb.ID)
	if err != nil {
		return nil, err
	}

	return &ChatContext{Sources: renderChunks(hits), History: history}, nil
}

// BuildBulkContext retrieves as much of the selected sources as the word
// budget allows. The boundary chunk is included partially so the budget is
// used exactly rather than undershooting by up to a whole chunk.
func (b *Builder) BuildBulkContext(ctx context.Context, nb *models.Notebook, sourceIDs []string, query string) (string, error) {
	if len(sourceIDs) == 0 {
		return "", core.ErrNoSourcesSelected
	}

	f := core.Filter{NotebookID: nb.ID, UserID: nb.UserID, SourceIDs: sourceIDs}
	hits, err := b.store.Search(ctx, query, BulkTopK, f)
	if err != nil {
		return "", fmt.Errorf("search chunks: %w", err)
	}

	var parts []string
	remaining := BulkWordBudget
	for _, hit := range hits {
		if remaining <= 0 {
			break
		}
		words := strings.Fields(hit.Text)
		if len(words) <= remaining {
			parts = append(parts, hit.Text)
			remaining -= len(words)
			continue
		}
		parts = append(parts, strings.Join(words[:remaining], " "))
		remaining = 0
	}
	return strings.Join(parts, "\n\n"), nil
}

func (b *Builder) recentHistory(ctx context.Context, notebookID string) (string, error) {
	msgs, err := b.db.LatestChatMessages(ctx, notebookID, TranscriptDepth)
	if err != nil {
		return "", fmt.Errorf("load chat history: %w", err)
	}
	// LatestChatMessages returns newest first; the prompt wants oldest first.
	var sb strings.Builder
	for i := len(msgs) - 1; i >= 0; i-- {
		sb.WriteString(senderLabel(msgs[i].Sender))
		sb.WriteString(": ")
		sb.WriteString(msgs[i].Message)
		if i > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func senderLabel(sender string) string {
	switch sender {
	case models.SenderUser:
		return "User"
	case models.SenderAssistant:
		return "Assistant"
	default:
		return sender
	}
}

func renderChunks(hits []core.ChunkRecord) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		md, _ := json.Marshal(hit.Metadata)
		parts = append(parts, "Content: "+hit.Text+"\nMetadata: "+string(md))
	}
	return strings.Join(parts, "\n\n")
}
