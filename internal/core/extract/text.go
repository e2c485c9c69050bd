package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/inferahq/infera/internal/core"
)

// titleMaxLen bounds the provisional title derived from pasted text. The
// finalize step replaces it with an LLM-generated title.
const titleMaxLen = 50

// TextExtractor treats the pasted string as the document verbatim.
type TextExtractor struct{}

func (e *TextExtractor) Extract(_ context.Context, in Input) ([]Document, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("empty text content")}
	}
	return []Document{{
		Text:     in.Text,
		Title:    TruncateTitle(in.Text),
		Metadata: map[string]string{"type": "text"},
	}}, nil
}

// TruncateTitle derives a short title from the text's leading characters.
func TruncateTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= titleMaxLen {
		return text
	}
	return string(runes[:titleMaxLen]) + "..."
}
