// -----------------------------------------------------------------------
// Application - Component wiring and lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/services/chunker"
	"github.com/corvus-labs/gnosis/internal/services/crawler"
	"github.com/corvus-labs/gnosis/internal/services/embeddings"
	"github.com/corvus-labs/gnosis/internal/services/extractors"
	"github.com/corvus-labs/gnosis/internal/services/ingest"
	"github.com/corvus-labs/gnosis/internal/services/llm"
	"github.com/corvus-labs/gnosis/internal/services/query"
	"github.com/corvus-labs/gnosis/internal/services/workers"
	"github.com/corvus-labs/gnosis/internal/storage/badger"
	"github.com/corvus-labs/gnosis/internal/vectorstore/qdrant"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB              *badger.BadgerDB
	DocumentStorage interfaces.DocumentStorage
	VectorStore     interfaces.VectorStore

	// External AI services
	EmbeddingService  interfaces.EmbeddingService
	GenerationService interfaces.GenerationService

	// Ingestion pipeline
	CrawlerService interfaces.CrawlerService
	WorkerPool     *workers.Pool
	IngestService  interfaces.IngestService
	Sweeper        *ingest.Sweeper

	// Query pipeline
	QueryService interfaces.QueryService
}

// New initializes the application with all dependencies in order: storage,
// vector index, AI services, ingestion pipeline, query pipeline.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.WorkerPool.Start()

	if err := app.Sweeper.Start(cfg.Processing.SweepSchedule); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to start stale sweeper: %w", err)
	}

	logger.Info().
		Str("llm_provider", cfg.LLM.DefaultProvider).
		Int("workers", cfg.Processing.Concurrency).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes BadgerDB and the Qdrant similarity index.
func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.DocumentStorage = badger.NewDocumentStorage(db, a.Logger)
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	vectors := qdrant.NewClient(a.Config.Vector, a.Logger)
	if err := vectors.EnsureCollection(context.Background()); err != nil {
		return fmt.Errorf("failed to ensure vector collection: %w", err)
	}
	a.VectorStore = vectors
	a.Logger.Debug().
		Str("collection", a.Config.Vector.Collection).
		Int("dimension", a.Config.Vector.Dimension).
		Msg("Vector store initialized")

	return nil
}

// initServices initializes business services in dependency order.
func (a *App) initServices() error {
	var err error

	// Embeddings are always Gemini regardless of the generation provider.
	a.EmbeddingService, err = embeddings.NewService(&a.Config.Gemini, a.Config.Vector.Dimension, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding service: %w", err)
	}
	a.Logger.Debug().
		Str("model", a.Config.Gemini.EmbedModel).
		Msg("Embedding service initialized")

	a.GenerationService, err = llm.NewGenerationService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize generation service: %w", err)
	}
	if err := a.GenerationService.HealthCheck(context.Background()); err != nil {
		a.Logger.Warn().Err(err).Msg("Generation service health check failed - queries may error until the provider recovers")
	} else {
		a.Logger.Debug().Str("provider", a.Config.LLM.DefaultProvider).Msg("Generation service health check passed")
	}

	a.CrawlerService = crawler.NewService(a.Config.Crawler, a.Logger)
	a.Logger.Debug().
		Int("max_depth", a.Config.Crawler.MaxDepth).
		Int("max_links_per_page", a.Config.Crawler.MaxLinksPerPage).
		Msg("Crawler service initialized")

	splitter, err := chunker.New(a.Config.Processing.ChunkSize, a.Config.Processing.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("failed to initialize chunker: %w", err)
	}

	a.WorkerPool = workers.NewPool(a.Config.Processing.Concurrency, a.Logger)

	a.IngestService = ingest.NewService(
		a.DocumentStorage,
		extractors.NewService(a.CrawlerService, a.Logger),
		splitter,
		a.EmbeddingService,
		a.VectorStore,
		a.WorkerPool,
		a.Config.Crawler,
		a.Logger,
	)
	a.Logger.Debug().Msg("Ingest service initialized")

	a.Sweeper, err = ingest.NewSweeper(a.DocumentStorage, a.Config.Processing, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize stale sweeper: %w", err)
	}

	a.QueryService = query.NewService(
		a.EmbeddingService,
		a.VectorStore,
		a.GenerationService,
		a.Config.Retrieval,
		a.Logger,
	)
	a.Logger.Debug().Msg("Query service initialized")

	return nil
}

// Close shuts components down in reverse dependency order. The worker pool
// drains before storage closes so in-flight documents reach a terminal
// status instead of being orphaned.
func (a *App) Close() error {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
		a.Logger.Info().Msg("Stale sweeper stopped")
	}

	if a.WorkerPool != nil {
		a.WorkerPool.Shutdown()
		a.Logger.Info().Msg("Worker pool drained")
	}

	if a.GenerationService != nil {
		if err := a.GenerationService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generation service")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
