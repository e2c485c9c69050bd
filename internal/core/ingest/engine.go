// Package ingest runs the asynchronous source ingestion workflow: extract,
// split, embed, finalize. Each completed step is recorded durably so a job
// interrupted by a crash resumes from the last recorded step instead of
// starting over.
package ingest

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/chunker"
	"github.com/inferahq/infera/internal/core/extract"
	"github.com/inferahq/infera/internal/models"
)

const (
	jobBuffer      = 64
	embedBatchSize = 16

	jobIngest = "ingest"
	jobPurge  = "purge"
)

type job struct {
	kind     string
	sourceID string
	filter   core.Filter
}

// Engine owns the ingestion worker pool. Enqueue is non-blocking up to the
// channel buffer; callers never wait for processing.
type Engine struct {
	db      core.DbClient
	store   core.VectorStore
	objects core.ObjectClient
	extract *extract.Registry
	split   *chunker.Splitter
	llm     core.LLMProvider
	bucket  string
	log     *zap.Logger

	maxAttempts int
	backoff     time.Duration

	jobs chan job
	wg   sync.WaitGroup
}

func NewEngine(db core.DbClient, store core.VectorStore, objects core.ObjectClient, reg *extract.Registry, llm core.LLMProvider, bucket string, log *zap.Logger) *Engine {
	return &Engine{
		db:          db,
		store:       store,
		objects:     objects,
		extract:     reg,
		split:       chunker.NewSplitter(),
		llm:         llm,
		bucket:      bucket,
		log:         log,
		maxAttempts: 3,
		backoff:     time.Second,
		jobs:        make(chan job, jobBuffer),
	}
}

// Start launches the worker pool and re-enqueues every source left
// non-terminal by a previous run: PROCESSING jobs interrupted mid-flight and
// UPLOADING jobs whose enqueue was lost. Workers drain until ctx is
// cancelled.
func (e *Engine) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx, i)
	}

	for _, status := range []string{models.SourceStatusProcessing, models.SourceStatusUploading} {
		stuck, err := e.db.ListSourcesByStatus(ctx, status)
		if err != nil {
			e.log.Error("listing in-flight sources on startup",
				zap.String("status", status), zap.Error(err))
			return
		}
		for _, src := range stuck {
			e.log.Info("resuming interrupted ingestion",
				zap.String("source_id", src.ID), zap.String("status", status))
			e.Enqueue(src.ID)
		}
	}
}

// Wait blocks until every worker has drained. Call after cancelling the
// Start context.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Enqueue schedules a source for ingestion. Drops the job with a log line if
// the buffer is full; the source stays in its current status and is picked up
// by startup recovery.
func (e *Engine) Enqueue(sourceID string) {
	select {
	case e.jobs <- job{kind: jobIngest, sourceID: sourceID}:
	default:
		e.log.Warn("ingest queue full, dropping job", zap.String("source_id", sourceID))
	}
}

// EnqueuePurge schedules asynchronous deletion of all vector records matching
// the filter. Used after a source row is deleted.
func (e *Engine) EnqueuePurge(f core.Filter) {
	select {
	case e.jobs <- job{kind: jobPurge, filter: f}:
	default:
		e.log.Warn("ingest queue full, dropping purge job")
	}
}

func (e *Engine) worker(ctx context.Context, id int) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-e.jobs:
			var err error
			switch j.kind {
			case jobIngest:
				err = e.ProcessOne(ctx, j.sourceID)
			case jobPurge:
				err = e.purge(ctx, j.filter)
			}
			if err != nil {
				e.log.Error("job failed",
					zap.Int("worker", id),
					zap.String("kind", j.kind),
					zap.String("source_id", j.sourceID),
					zap.Error(err))
			}
		}
	}
}

// ProcessOne runs the full workflow for a single source, resuming from the
// step ledger where possible. Exported so tests can drive jobs synchronously.
func (e *Engine) ProcessOne(ctx context.Context, sourceID string) error {
	src, err := e.db.GetSourceByID(ctx, sourceID)
	if err != nil {
		return err
	}
	if src == nil {
		// Deleted before the job ran. Drop any ledger leftovers.
		return e.db.DeleteIngestSteps(ctx, sourceID)
	}
	if IsTerminal(src.Status) {
		return nil
	}
	if src.Status == models.SourceStatusUploading {
		if err := ValidateTransition(src.Status, models.SourceStatusProcessing); err != nil {
			return err
		}
		if err := e.db.UpdateSourceStatus(ctx, sourceID, models.SourceStatusProcessing); err != nil {
			return err
		}
	}

	nb, err := e.db.GetNotebookByID(ctx, src.NotebookID)
	if err != nil {
		return err
	}
	if nb == nil {
		return e.db.DeleteIngestSteps(ctx, sourceID)
	}

	ext, err := e.stepExtract(ctx, src)
	if err != nil {
		return e.failSource(ctx, src, "extract", err)
	}
	chunks, err := e.stepSplit(ctx, src, nb.UserID, ext)
	if err != nil {
		return e.failSource(ctx, src, "split", err)
	}
	if err := e.stepEmbed(ctx, src, nb.UserID, chunks); err != nil {
		return e.failSource(ctx, src, "embed", err)
	}
	if err := e.finalize(ctx, src, ext); err != nil {
		return e.failSource(ctx, src, "finalize", err)
	}
	return e.db.DeleteIngestSteps(ctx, sourceID)
}

func (e *Engine) failSource(ctx context.Context, src *models.Source, step string, cause error) error {
	e.log.Error("ingestion failed",
		zap.String("source_id", src.ID),
		zap.String("step", step),
		zap.Error(cause))
	if err := e.db.UpdateSourceStatus(ctx, src.ID, models.SourceStatusFailed); err != nil {
		return err
	}
	if err := e.db.DeleteIngestSteps(ctx, src.ID); err != nil {
		return err
	}
	return cause
}

func (e *Engine) purge(ctx context.Context, f core.Filter) error {
	return e.withRetry(ctx, "purge vectors", func() error {
		return e.store.Delete(ctx, f)
	})
}

// withRetry runs fn, retrying transient failures with exponential backoff.
// Terminal errors are returned on the first attempt.
func (e *Engine) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		if attempt == e.maxAttempts {
			break
		}
		delay := e.backoff << (attempt - 1)
		e.log.Warn("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, core.ErrUnsupportedContentType) || errors.Is(err, core.ErrTranscriptUnavailable) {
		return false
	}
	var xe *core.ExtractionError
	if errors.As(err, &xe) {
		return false
	}
	if errors.Is(err, core.ErrVectorIndexUnavailable) || errors.Is(err, core.ErrObjectStoreUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
