package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/extract"
	"github.com/inferahq/infera/internal/models"
)

// Ledger step names, in execution order. Finalize has no ledger row: it ends
// with the status flip to COMPLETED, which already makes it idempotent.
const (
	StepExtract = "extract"
	StepSplit   = "split"
	StepEmbed   = "embed"
)

type extractPayload struct {
	Title string             `json:"title"`
	Docs  []extract.Document `json:"docs"`
}

type splitPayload struct {
	Chunks []core.ChunkRecord `json:"chunks"`
}

type embedPayload struct {
	Count int `json:"count"`
}

// recorded loads a previously completed step's payload into out. Returns
// false when the step has not run yet.
func (e *Engine) recorded(ctx context.Context, sourceID, step string, out any) (bool, error) {
	row, err := e.db.GetIngestStep(ctx, sourceID, step)
	if err != nil || row == nil {
		return false, err
	}
	if out != nil {
		if err := json.Unmarshal(row.Payload, out); err != nil {
			return false, fmt.Errorf("decode %s step payload: %w", step, err)
		}
	}
	e.log.Debug("skipping recorded step", zap.String("source_id", sourceID), zap.String("step", step))
	return true, nil
}

func (e *Engine) record(ctx context.Context, sourceID, step string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s step payload: %w", step, err)
	}
	return e.db.RecordIngestStep(ctx, &models.IngestStep{
		SourceID:    sourceID,
		Step:        step,
		Payload:     raw,
		CompletedAt: time.Now(),
	})
}

func (e *Engine) stepExtract(ctx context.Context, src *models.Source) (*extractPayload, error) {
	var p extractPayload
	if ok, err := e.recorded(ctx, src.ID, StepExtract, &p); err != nil {
		return nil, err
	} else if ok {
		return &p, nil
	}

	in := extract.Input{SourceID: src.ID, Type: src.Type, URL: src.URL}
	switch src.Type {
	case models.SourceTypeFile, models.SourceTypeText:
		key := objectKeyFromURL(src.URL)
		var data []byte
		err := e.withRetry(ctx, "fetch source object", func() error {
			b, err := e.objects.GetFile(ctx, e.bucket, key)
			if err != nil {
				return fmt.Errorf("%w: %v", core.ErrObjectStoreUnavailable, err)
			}
			data = b
			return nil
		})
		if err != nil {
			return nil, err
		}
		if src.Type == models.SourceTypeFile {
			in.Data = data
			in.ContentType = contentTypeForKey(key)
		} else {
			in.Text = string(data)
		}
	}

	var docs []extract.Document
	err := e.withRetry(ctx, "extract", func() error {
		var xerr error
		docs, xerr = e.extract.Extract(ctx, in)
		return xerr
	})
	if err != nil {
		return nil, err
	}

	p = extractPayload{Title: src.Title, Docs: docs}
	if len(docs) > 0 && docs[0].Title != "" {
		p.Title = docs[0].Title
	}
	if err := e.record(ctx, src.ID, StepExtract, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// stepSplit chunks every extracted document and assigns the record identity
// the vector index requires. Chunk IDs are persisted with the ledger so a
// resumed job upserts the same records instead of minting new ones.
func (e *Engine) stepSplit(ctx context.Context, src *models.Source, userID string, ext *extractPayload) ([]core.ChunkRecord, error) {
	var p splitPayload
	if ok, err := e.recorded(ctx, src.ID, StepSplit, &p); err != nil {
		return nil, err
	} else if ok {
		return p.Chunks, nil
	}

	var chunks []core.ChunkRecord
	for docIdx, doc := range ext.Docs {
		for _, piece := range e.split.Split(doc.Text) {
			md := make(map[string]string, len(doc.Metadata)+3)
			for k, v := range doc.Metadata {
				md[k] = v
			}
			if doc.Title != "" {
				md["title"] = doc.Title
			}
			if len(ext.Docs) > 1 {
				md["docIndex"] = strconv.Itoa(docIdx)
			}
			md["chunkIndex"] = strconv.Itoa(piece.Index)
			chunks = append(chunks, core.ChunkRecord{
				ID:         uuid.NewString(),
				SourceID:   src.ID,
				NotebookID: src.NotebookID,
				UserID:     userID,
				Text:       piece.Text,
				Metadata:   md,
			})
		}
	}

	if err := e.record(ctx, src.ID, StepSplit, &splitPayload{Chunks: chunks}); err != nil {
		return nil, err
	}
	return chunks, nil
}

// stepEmbed writes the chunks to the vector index. Old records for the source
// are deleted first so re-ingestion never leaves stale chunks behind.
func (e *Engine) stepEmbed(ctx context.Context, src *models.Source, userID string, chunks []core.ChunkRecord) error {
	if ok, err := e.recorded(ctx, src.ID, StepEmbed, nil); err != nil || ok {
		return err
	}

	f := core.Filter{NotebookID: src.NotebookID, UserID: userID, SourceIDs: []string{src.ID}}
	if err := e.withRetry(ctx, "delete stale vectors", func() error {
		return e.store.Delete(ctx, f)
	}); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		if err := e.withRetry(ctx, "upsert vectors", func() error {
			return e.store.Upsert(ctx, batch)
		}); err != nil {
			return err
		}
	}

	return e.record(ctx, src.ID, StepEmbed, &embedPayload{Count: len(chunks)})
}

// finalize applies the discovered title and the COMPLETED status in one
// update. Pasted text gets an LLM-generated title; a generation failure falls
// back to a truncated prefix rather than failing the source.
func (e *Engine) finalize(ctx context.Context, src *models.Source, ext *extractPayload) error {
	title := ext.Title
	if src.Type == models.SourceTypeText && len(ext.Docs) > 0 {
		generated, err := e.generateTitle(ctx, ext.Docs[0].Text)
		if err != nil {
			e.log.Warn("title generation failed, using text prefix",
				zap.String("source_id", src.ID), zap.Error(err))
			title = extract.TruncateTitle(ext.Docs[0].Text)
		} else {
			title = generated
		}
	}
	if title == "" {
		title = src.Title
	}
	if err := ValidateTransition(models.SourceStatusProcessing, models.SourceStatusCompleted); err != nil {
		return err
	}
	return e.db.FinalizeSource(ctx, src.ID, title)
}

const titleSystemPrompt = "You create short descriptive titles. Given a piece of text, respond with a title of at most eight words. Respond with the title only, no quotes, no punctuation at the end."

func (e *Engine) generateTitle(ctx context.Context, text string) (string, error) {
	sample := text
	if runes := []rune(sample); len(runes) > 2000 {
		sample = string(runes[:2000])
	}
	var out string
	err := e.withRetry(ctx, "generate title", func() error {
		var gerr error
		out, gerr = e.llm.Generate(ctx, titleSystemPrompt, sample)
		return gerr
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = strings.TrimSpace(out[:i])
	}
	out = strings.Trim(out, `"'`)
	if out == "" {
		return "", fmt.Errorf("empty title from model")
	}
	return out, nil
}

// objectKeyFromURL recovers the storage key from the public object URL
// written at upload time (virtual-hosted style, key is the URL path).
func objectKeyFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimPrefix(raw, "/")
	}
	return strings.TrimPrefix(u.Path, "/")
}

var extContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
}

func contentTypeForKey(key string) string {
	return extContentTypes[strings.ToLower(path.Ext(key))]
}
