package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/markdave123-py/docvault/internal/api/handlers"
	"github.com/markdave123-py/docvault/internal/config"
	"github.com/markdave123-py/docvault/internal/core"
	"github.com/markdave123-py/docvault/internal/core/ingestion_engine"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes. obj and chunks may be nil.
func NewServer(cfg *config.Config, pipeline handlers.DocumentPipeline, ing ingestion_engine.Ingestor, obj core.ObjectClient, chunks core.ChunkRepository) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, pipeline, ing, obj, chunks),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// NewRouter returns the chi router serving the ingestion API.
func NewRouter(cfg *config.Config, pipeline handlers.DocumentPipeline, ing ingestion_engine.Ingestor, obj core.ObjectClient, chunks core.ChunkRepository) http.Handler {
	docHandler := handlers.NewDocumentHandler(pipeline, ing, obj, chunks, cfg.BucketName)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/documents", func(api chi.Router) {
		// OCR-heavy documents can take minutes end to end.
		api.With(middleware.Timeout(handlers.SyncIngestTimeout)).Post("/ingest", docHandler.IngestDocument)
		api.With(middleware.Timeout(60*time.Second)).Post("/ingest-object", docHandler.IngestObject)
		api.Get("/{documentID}/status", docHandler.DocumentStatus)
	})

	return r
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
