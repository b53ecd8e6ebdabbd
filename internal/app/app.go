// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/markdave123-py/docvault/internal/config"
	"github.com/markdave123-py/docvault/internal/core"
	db "github.com/markdave123-py/docvault/internal/core/database"
	"github.com/markdave123-py/docvault/internal/core/ingestion_engine"
	"github.com/markdave123-py/docvault/internal/core/llm"
	objectclient "github.com/markdave123-py/docvault/internal/core/object-client"
	"github.com/markdave123-py/docvault/internal/core/ocr"
	"github.com/markdave123-py/docvault/internal/core/pdfdoc"
	"github.com/markdave123-py/docvault/internal/core/resilience"
	"github.com/markdave123-py/docvault/internal/core/tokenizer"
	"github.com/markdave123-py/docvault/internal/core/vectorindex"
)

type App struct {
	Config       *config.Config
	Mirror       *db.ChunkMirror
	ObjectClient *objectclient.S3Client
	Pipeline     *ingestion_engine.Pipeline
	DocProcessor *ingestion_engine.DocumentIngestor
	Server       *Server

	closers []func() error
}

// NewApp connects the optional collaborators (pgvector mirror, S3) and wires
// the ingestion pipeline, the worker queue and the HTTP server.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Config: cfg}

	var mirror core.ChunkRepository
	if cfg.DatabaseURL != "" {
		m, err := db.NewChunkMirror(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		a.Mirror, mirror = m, m
		a.closers = append(a.closers, m.Close)
		log.Println("Chunk mirror initialized and ready.")
	}

	var objects core.ObjectClient
	if cfg.S3Enabled() {
		s3c, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.ObjectClient, objects = s3c, s3c
		log.Println("Object client initialized and ready.")
	}

	pipeline, closeEmbedder, err := BuildPipeline(appCtx, cfg, mirror)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeEmbedder)
	a.Pipeline = pipeline

	a.DocProcessor = ingestion_engine.NewDocumentIngestor(pipeline, objects, IngestConfig(cfg))
	a.Server = NewServer(cfg, pipeline, a.DocProcessor, objects, mirror)
	return a, nil
}

// IngestConfig maps the environment onto the pipeline settings.
func IngestConfig(cfg *config.Config) *ingestion_engine.IngestConfig {
	return &ingestion_engine.IngestConfig{
		ChunkSize:          cfg.ChunkSize,
		ChunkOverlap:       cfg.ChunkOverlap,
		MaxChunkTokens:     cfg.MaxChunkTokens,
		IndexBatchSize:     cfg.IndexBatchSize,
		IndexDir:           cfg.IndexDir,
		VectorDataDir:      cfg.VectorDataDir,
		SidecarPerDocument: cfg.SidecarPerDocument,
		OCRLanguages:       cfg.OCRLanguages,
		OCRScale:           cfg.OCRScale,
		OCRTimeout:         cfg.OCRTimeout,
		EmbedTimeout:       cfg.EmbedTimeout,
		EmbedDim:           cfg.EmbedDim,
		PageWorkers:        cfg.PageWorkers,
		QueueSize:          cfg.IngestQueue,
	}
}

// RetryConfig is the bounded backoff used around embedding and index saves.
func RetryConfig(cfg *config.Config) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	rc.MaxAttempts = cfg.RetryMaxAttempts
	return rc
}

// BuildPipeline wires extraction, chunking, embedding and indexing. mirror may
// be nil. The returned func releases the embedding client.
func BuildPipeline(ctx context.Context, cfg *config.Config, mirror core.ChunkRepository) (*ingestion_engine.Pipeline, func() error, error) {
	ingCfg := IngestConfig(cfg)

	provider, closeProvider, err := NewEmbeddingProvider(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}

	counter, err := tokenizer.New(cfg.TokenizerModel)
	if err != nil {
		log.Printf("WARN: %v; using approximate token counts", err)
	}

	pipeline := ingestion_engine.NewPipeline(
		pdfdoc.Opener{},
		ingestion_engine.NewPageExtractor(ocr.TesseractEngine{}, ingCfg.OCRLanguages, ingCfg.OCRScale, ingCfg.OCRTimeout),
		ingestion_engine.NewChunker(counter, ingestion_engine.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap), cfg.MaxChunkTokens),
		ingestion_engine.NewEmbedder(resilience.NewRetryingEmbedder(provider, RetryConfig(cfg)), ingCfg.EmbedTimeout, ingCfg.EmbedDim),
		ingestion_engine.NewIndexWriter(vectorindex.Factory{}, ingCfg, RetryConfig(cfg)),
		mirror,
		ingCfg,
	)
	return pipeline, closeProvider, nil
}

// NewEmbeddingProvider returns the configured provider and its close func.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, func() error, error) {
	switch cfg.EmbedProvider {
	case "gemini", "":
		g, err := llm.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	case "openai":
		o, err := llm.NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbedModel, cfg.EmbedDim)
		if err != nil {
			return nil, nil, err
		}
		return o, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown EMBED_PROVIDER %q", cfg.EmbedProvider)
	}
}

// Run starts the ingestion workers and the HTTP server, and shuts both down
// when ctx ends.
func (a *App) Run(ctx context.Context) error {
	a.DocProcessor.Start(ctx, a.Config.IngestWorkers)

	errCh := make(chan error, 1)
	go func() { errCh <- a.Server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.Server.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("WARN: close: %v", err)
		}
	}
}
