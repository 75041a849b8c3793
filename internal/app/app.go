// Package app builds the service graph shared by the API server and jokectl.
package app

import (
	"context"
	"fmt"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/repository"
	"github.com/Khushalgogia/joke-manager-v12/internal/service"
	"github.com/Khushalgogia/joke-manager-v12/internal/storage"
	"gorm.io/gorm"
)

// App holds the wired services. Close releases the database and index connections.
type App struct {
	Config *config.Config

	DB     *gorm.DB
	Store  *repository.BridgeStore
	Qdrant *repository.QdrantJokeIndex // nil unless vector.backend is qdrant

	Embedder  *service.EmbeddingClient
	Chat      *service.ChatClient
	Themes    *service.ThemeExpander
	Bridges   *service.BridgeSynthesizer
	Enricher  *service.Enricher
	Ingest    *service.IngestService
	Jokes     *service.JokeService
	Search    *service.SearchService
	Extractor *service.SegmentExtractor
	Campaigns *service.CampaignGenerator
	Archive   *service.CampaignArchiver // nil when storage is disabled
}

// NewLogger builds the process logger from the logging section and installs it as default.
func NewLogger(cfg *config.LoggingConfig) *logger.Logger {
	log := logger.New(logger.Options{
		Level:       cfg.Level,
		Format:      cfg.Format,
		ServiceName: cfg.ServiceName,
		File:        cfg.File,
		FileOnly:    cfg.FileOnly,
		MaxSizeMB:   cfg.MaxSizeMB,
		MaxBackups:  cfg.MaxBackups,
		MaxAgeDays:  cfg.MaxAgeDays,
		Compress:    cfg.Compress,
	})
	logger.SetDefaultLogger(log)
	return log
}

// New opens the database, picks the vector index and wires every service.
// Missing model API keys do not fail construction; the affected calls report
// configuration errors instead.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	index, err := a.vectorIndex(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = repository.NewBridgeStore(repository.NewJokeRepository(db), index, cfg.Campaign.FallbackThreshold)

	a.Embedder = service.NewEmbeddingClient(ctx, &cfg.Embedding)
	a.Chat = service.NewChatClient(&cfg.LLM)
	a.Themes = service.NewThemeExpander(a.Chat, &cfg.LLM)
	a.Bridges = service.NewBridgeSynthesizer(a.Chat, &cfg.LLM)
	a.Enricher = service.NewEnricher(a.Bridges, a.Embedder)

	a.Ingest = service.NewIngestService(a.Store, a.Embedder, a.Enricher, &service.IngestConfig{
		Workers:   cfg.Enrichment.Workers,
		BatchSize: cfg.Enrichment.BatchSize,
	})
	a.Jokes = service.NewJokeService(a.Store, a.Embedder, a.Bridges, a.Enricher, a.Ingest,
		service.BackfillConfigFromConfig(&cfg.Enrichment))
	a.Search = service.NewSearchService(a.Themes, a.Embedder, a.Store, a.Store, &service.SearchConfig{
		Count:          cfg.Campaign.SearchCount,
		ScoreThreshold: cfg.Campaign.SearchThreshold,
	})
	a.Extractor = service.NewSegmentExtractor(a.Chat, &cfg.Extraction)

	generator, err := service.NewGeminiGenerator(ctx, &cfg.Generator)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Generator.APIKey == "" {
		logger.Warn("No generator API key (%s); campaigns will fail until it is set", cfg.Generator.APIKeyEnv)
	}

	var archiver *service.CampaignArchiver
	if cfg.Storage.Enabled {
		objects, err := storage.NewStorage(ctx, &cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
		archiver = service.NewCampaignArchiver(objects, cfg.Storage.Prefix)
		a.Archive = archiver
	}

	opts := service.CampaignOptionsFromConfig(&cfg.Campaign)
	if archiver != nil && cfg.Campaign.Archive {
		a.Campaigns = service.NewCampaignGenerator(a.Themes, a.Embedder, a.Store,
			service.NewTransplantEngine(generator, generator.Model()), archiver, opts)
	} else {
		a.Campaigns = service.NewCampaignGenerator(a.Themes, a.Embedder, a.Store,
			service.NewTransplantEngine(generator, generator.Model()), nil, opts)
	}

	return a, nil
}

func (a *App) vectorIndex(ctx context.Context) (repository.VectorIndex, error) {
	cfg := a.Config
	switch cfg.Vector.Backend {
	case "qdrant":
		q, err := repository.NewQdrantJokeIndex(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant index: %w", err)
		}
		if err := q.EnsureCollection(ctx); err != nil {
			_ = q.Close()
			return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}
		a.Qdrant = q
		logger.Info("Vector backend: qdrant collection %q at %s:%d", cfg.Qdrant.Collection, cfg.Qdrant.Host, cfg.Qdrant.Port)
		return q, nil
	default:
		logger.Info("Vector backend: postgres similarity functions")
		return repository.NewPGVectorIndex(a.DB), nil
	}
}

// Ping checks the database connection.
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases connections. It is safe on a partially built App.
func (a *App) Close() {
	if a.Qdrant != nil {
		if err := a.Qdrant.Close(); err != nil {
			logger.Warn("Failed to close qdrant connection: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
