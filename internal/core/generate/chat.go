// Package generate orchestrates the LLM-backed read paths: chat answers,
// note expansion, and the audio overview podcast.
package generate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/retrieval"
	"github.com/inferahq/infera/internal/models"
)

// ContextBuilder is what this package needs from retrieval.Builder.
type ContextBuilder interface {
	BuildChatContext(ctx context.Context, nb *models.Notebook, sourceIDs []string, query string) (*retrieval.ChatContext, error)
	BuildBulkContext(ctx context.Context, nb *models.Notebook, sourceIDs []string, query string) (string, error)
}

type chatStore interface {
	CreateChatMessage(ctx context.Context, msg *models.ChatMessage) error
}

// ChatResponder produces one grounded assistant turn per user message.
type ChatResponder struct {
	db      chatStore
	builder ContextBuilder
	llm     core.LLMProvider
}

func NewChatResponder(db chatStore, builder ContextBuilder, llm core.LLMProvider) *ChatResponder {
	return &ChatResponder{db: db, builder: builder, llm: llm}
}

// Respond persists the user's message, retrieves context restricted to the
// selected sources, asks the model, and persists the answer. The user message
// is written before retrieval runs, so it survives even when retrieval or
// generation fails and the transcript the prompt carries includes it.
func (c *ChatResponder) Respond(ctx context.Context, nb *models.Notebook, sourceIDs []string, message string) (*models.ChatMessage, error) {
	if len(sourceIDs) == 0 {
		return nil, core.ErrNoSourcesSelected
	}

	userMsg := &models.ChatMessage{
		ID:         uuid.NewString(),
		NotebookID: nb.ID,
		Sender:     models.SenderUser,
		Message:    message,
	}
	if err := c.db.CreateChatMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	cc, err := c.builder.BuildChatContext(ctx, nb, sourceIDs, message)
	if err != nil {
		return nil, err
	}

	answer, err := c.llm.Generate(ctx, chatSystemPrompt, chatUserPrompt(cc.History, cc.Sources, message))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	reply := &models.ChatMessage{
		ID:         uuid.NewString(),
		NotebookID: nb.ID,
		Sender:     models.SenderAssistant,
		Message:    answer,
	}
	if err := c.db.CreateChatMessage(ctx, reply); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}
	return reply, nil
}
