package core

import "context"

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// SpeechSynthesizer turns one podcast segment into audio bytes.
// Voice is a provider voice identity (e.g. "en-US-Wavenet-F").
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// SearchResult is one candidate from the "discover sources" web search.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchProvider is the external web search used to discover candidate
// sources. Accepted candidates re-enter ingestion as ordinary sources.
type SearchProvider interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}
