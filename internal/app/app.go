package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/config"
	"github.com/inferahq/infera/internal/core"
	db "github.com/inferahq/infera/internal/core/database"
	"github.com/inferahq/infera/internal/core/discover"
	"github.com/inferahq/infera/internal/core/extract"
	"github.com/inferahq/infera/internal/core/generate"
	"github.com/inferahq/infera/internal/core/ingest"
	"github.com/inferahq/infera/internal/core/llm"
	objectclient "github.com/inferahq/infera/internal/core/object-client"
	"github.com/inferahq/infera/internal/core/retrieval"
	"github.com/inferahq/infera/internal/core/tts"
	"github.com/inferahq/infera/internal/core/vectorstore"
)

// App owns every long-lived dependency and the HTTP server.
type App struct {
	DBClient core.DbClient
	Engine   *ingest.Engine
	Server   *Server

	engineCancel context.CancelFunc
	log          *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database initialized")

	objClient, err := objectclient.NewS3Client(initCtx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("object storage initialized")

	embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}
	llmProvider, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("initialize llm: %w", err)
	}

	store := vectorstore.NewPgStore(dbClient.(*db.DatabaseClient).DB(), embedder)

	engine := ingest.NewEngine(dbClient, store, objClient, extract.NewRegistry(), llmProvider, cfg.BucketName, log)
	engineCtx, engineCancel := context.WithCancel(ctx)
	engine.Start(engineCtx, cfg.NumWorkers)
	log.Info("ingest engine started", zap.Int("workers", cfg.NumWorkers))

	builder := retrieval.NewBuilder(store, dbClient)
	responder := generate.NewChatResponder(dbClient, builder, llmProvider)
	noteGen := generate.NewNoteGenerator(dbClient, llmProvider, log)
	podcastGen := generate.NewPodcastGenerator(dbClient, builder, llmProvider,
		tts.NewGoogleTTS(cfg.TTSAPIKey), objClient, cfg.BucketName, log)
	searcher := discover.NewBraveClient(cfg.BraveAPIKey)

	server := NewServer(cfg, &Deps{
		DB:         dbClient,
		Objects:    objClient,
		Engine:     engine,
		Responder:  responder,
		Notes:      noteGen,
		Podcasts:   podcastGen,
		Search:     searcher,
		Log:        log,
	})

	return &App{
		DBClient:     dbClient,
		Engine:       engine,
		Server:       server,
		engineCancel: engineCancel,
		log:          log,
	}, nil
}

func (a *App) Close() {
	a.engineCancel()
	a.Engine.Wait()
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
	a.log.Info("shutdown complete")
}
