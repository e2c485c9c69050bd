package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/api/handlers"
	appMiddleware "github.com/inferahq/infera/internal/api/middlewares"
	"github.com/inferahq/infera/internal/config"
	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/generate"
	"github.com/inferahq/infera/internal/core/ingest"
	"github.com/inferahq/infera/internal/services"
)

// Deps is everything the route tree needs.
type Deps struct {
	DB        core.DbClient
	Objects   core.ObjectClient
	Engine    *ingest.Engine
	Responder *generate.ChatResponder
	Notes     *generate.NoteGenerator
	Podcasts  *generate.PodcastGenerator
	Search    core.SearchProvider
	Log       *zap.Logger
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, d *Deps) *Server {
	notebookSvc := services.NewNotebookService(d.DB, d.Engine)
	sourceSvc := services.NewSourceService(d.DB, d.Objects, d.Engine, cfg.BucketName)
	noteSvc := services.NewNoteService(d.DB, d.Notes, d.Log)

	authHandler := handlers.NewAuthHandler(d.DB, cfg.JWTSecret, d.Log)
	notebookHandler := handlers.NewNotebookHandler(notebookSvc, d.Log)
	sourceHandler := handlers.NewSourceHandler(notebookHandler, sourceSvc, d.Log)
	chatHandler := handlers.NewChatHandler(notebookHandler, d.DB, d.Responder, d.Log)
	noteHandler := handlers.NewNoteHandler(notebookHandler, noteSvc, d.Log)
	audioHandler := handlers.NewAudioHandler(notebookHandler, d.Podcasts, d.Log)
	discoverHandler := handlers.NewDiscoverHandler(notebookHandler, d.Search, d.Log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWT(cfg.JWTSecret))

			protected.Post("/notebooks", notebookHandler.Create)
			protected.Get("/notebooks", notebookHandler.List)
			protected.Get("/notebooks/{id}", notebookHandler.Get)
			protected.Delete("/notebooks/{id}", notebookHandler.Delete)

			protected.Post("/notebooks/{id}/sources", sourceHandler.Create)
			protected.Get("/notebooks/{id}/sources", sourceHandler.List)
			protected.Put("/notebooks/{id}/sources/{sourceId}", sourceHandler.Rename)
			protected.Delete("/notebooks/{id}/sources/{sourceId}", sourceHandler.Delete)

			protected.Post("/notebooks/{id}/chat", chatHandler.Ask)
			protected.Get("/notebooks/{id}/chat", chatHandler.History)

			protected.Post("/notebooks/{id}/notes", noteHandler.Create)
			protected.Get("/notebooks/{id}/notes", noteHandler.List)
			protected.Delete("/notebooks/{id}/notes", noteHandler.Delete)

			protected.Post("/notebooks/{id}/audio-overview", audioHandler.Create)
			protected.Post("/notebooks/{id}/discover", discoverHandler.Discover)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: d.Log}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
