package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/models"
)

// synthesisConcurrency bounds parallel TTS calls per overview job.
const synthesisConcurrency = 4

// PodcastScript is the model's output contract for the audio overview: a
// title plus alternating two-voice segments.
type PodcastScript struct {
	Title    string           `json:"title"`
	Segments []PodcastSegment `json:"segments"`
}

type PodcastSegment struct {
	Content string `json:"content"`
	Voice   string `json:"voice"`
}

// ParsePodcastScript decodes the model output after stripping markdown code
// fences. Anything that does not decode into a titled script with at least
// one segment is a hard failure; there is no salvage path for a malformed
// script.
func ParsePodcastScript(raw string) (*PodcastScript, error) {
	clean := strings.ReplaceAll(raw, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var script PodcastScript
	if err := json.Unmarshal([]byte(clean), &script); err != nil {
		return nil, fmt.Errorf("parse podcast script: %w", err)
	}
	if script.Title == "" {
		return nil, fmt.Errorf("podcast script has no title")
	}
	if len(script.Segments) == 0 {
		return nil, fmt.Errorf("podcast script has no segments")
	}
	for i := range script.Segments {
		if strings.TrimSpace(script.Segments[i].Content) == "" {
			return nil, fmt.Errorf("podcast segment %d is empty", i)
		}
		if script.Segments[i].Voice == "" {
			script.Segments[i].Voice = PodcastVoiceFirst
		}
	}
	return &script, nil
}

type podcastStore interface {
	UpdateNotebookAudioOverview(ctx context.Context, id, status, audioURL, audioTitle string) error
}

// PodcastGenerator turns a notebook's selected sources into a two-voice
// audio overview: bulk context, one scripting call, per-segment synthesis,
// and a merged MP3 in object storage.
type PodcastGenerator struct {
	db      podcastStore
	builder ContextBuilder
	llm     core.LLMProvider
	tts     core.SpeechSynthesizer
	objects core.ObjectClient
	bucket  string
	log     *zap.Logger
}

func NewPodcastGenerator(db podcastStore, builder ContextBuilder, llm core.LLMProvider, tts core.SpeechSynthesizer, objects core.ObjectClient, bucket string, log *zap.Logger) *PodcastGenerator {
	return &PodcastGenerator{db: db, builder: builder, llm: llm, tts: tts, objects: objects, bucket: bucket, log: log}
}

// Generate runs the full overview job for a notebook. The notebook's audio
// status is PROCESSING while the job runs and always ends terminal.
func (g *PodcastGenerator) Generate(ctx context.Context, nb *models.Notebook, sourceIDs []string) error {
	if err := g.db.UpdateNotebookAudioOverview(ctx, nb.ID, models.NoteStatusProcessing, "", ""); err != nil {
		return fmt.Errorf("mark audio overview processing: %w", err)
	}

	if err := g.generate(ctx, nb, sourceIDs); err != nil {
		g.log.Error("audio overview failed", zap.String("notebook_id", nb.ID), zap.Error(err))
		if ferr := g.db.UpdateNotebookAudioOverview(ctx, nb.ID, models.NoteStatusFailed, "", ""); ferr != nil {
			g.log.Error("marking audio overview failed", zap.String("notebook_id", nb.ID), zap.Error(ferr))
		}
		return err
	}
	return nil
}

func (g *PodcastGenerator) generate(ctx context.Context, nb *models.Notebook, sourceIDs []string) error {
	material, err := g.builder.BuildBulkContext(ctx, nb, sourceIDs, "comprehensive overview of "+nb.Title)
	if err != nil {
		return err
	}

	raw, err := g.llm.Generate(ctx, podcastSystemPrompt, material)
	if err != nil {
		return fmt.Errorf("generate script: %w", err)
	}
	script, err := ParsePodcastScript(raw)
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("podcasts/%s/%s-%s", nb.ID, slugify(script.Title), time.Now().UTC().Format("2006-01-02T15-04-05"))

	// Segments synthesize concurrently; the merge below still needs them in
	// script order, so each goroutine writes its own slot.
	audio := make([][]byte, len(script.Segments))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(synthesisConcurrency)
	for i, seg := range script.Segments {
		grp.Go(func() error {
			b, err := g.tts.Synthesize(grpCtx, seg.Content, seg.Voice)
			if err != nil {
				return fmt.Errorf("synthesize segment %d: %w", i, err)
			}
			audio[i] = b
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	var merged bytes.Buffer
	for i, b := range audio {
		key := fmt.Sprintf("%s-segment-%d.mp3", prefix, i)
		if _, err := g.objects.UploadFile(ctx, g.bucket, key, bytes.NewReader(b), "audio/mpeg"); err != nil {
			return fmt.Errorf("upload segment %d: %w", i, err)
		}
		merged.Write(b)
	}

	// MP3 frames are self-delimiting, so concatenated segments play back to
	// back without re-encoding.
	mergedKey := prefix + ".mp3"
	url, err := g.objects.UploadFile(ctx, g.bucket, mergedKey, bytes.NewReader(merged.Bytes()), "audio/mpeg")
	if err != nil {
		return fmt.Errorf("upload merged audio: %w", err)
	}

	if err := g.db.UpdateNotebookAudioOverview(ctx, nb.ID, models.NoteStatusCompleted, url, script.Title); err != nil {
		return fmt.Errorf("finalize audio overview: %w", err)
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
