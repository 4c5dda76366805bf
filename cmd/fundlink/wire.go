package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/fundlink/internal/adapters/driven/config/file"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/embedding"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/s3"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/web"
	"github.com/custodia-labs/fundlink/internal/adapters/driving/cli"
	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/core/services"
	"github.com/custodia-labs/fundlink/internal/logger"
	"github.com/custodia-labs/fundlink/internal/postprocessors"
)

// Environment variables that override stored secrets.
const (
	envOpenAIKey = "OPENAI_API_KEY"
	envGeminiKey = "GEMINI_API_KEY"
	envPgDSN     = "FUNDLINK_PG_DSN"
	envAWSRegion = "AWS_REGION"
)

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// wire builds the services for one CLI invocation.
//
//nolint:gocyclo,funlen // Composition root with one branch per backend
func wire(ctx context.Context, opts cli.Options) (_ *cli.Services, err error) {
	var (
		configStore driven.ConfigStore
		baseDir     string
	)
	if opts.Ephemeral {
		configStore = memory.NewConfigStore()
	} else {
		store, err := file.NewConfigStore(opts.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		configStore = store
		baseDir = store.Dir()
	}
	settingsService := services.NewSettingsService(configStore)
	if opts.SettingsOnly {
		return &cli.Services{Settings: settingsService}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	applyEnv(settings)
	resolvePaths(settings, baseDir)
	logger.Debug("config: %s", configStore.Path())

	var cleanup closers
	defer func() {
		if err != nil {
			_ = cleanup.close()
		}
	}()

	// 1. Link catalog and resolver.
	catalog, err := file.CatalogFromSettings(settings.Platform)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	resolver := services.NewLinkResolver(catalog)

	// 2. Embeddings.
	embedder, err := embedding.New(ctx, settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	cleanup.add(embedder.Close)
	logger.Debug("embedding model: %s (%d dims)", embedder.ModelName(), embedder.Dimensions())

	// 3. Shared SQLite database, opened on first use.
	var db *sqlite.Store
	openDB := func() (*sqlite.Store, error) {
		if db != nil {
			return db, nil
		}
		dir := settings.Vector.Path
		if dir == "" {
			dir = settings.Pipeline.OutputDir
		}
		store, err := sqlite.NewStore(dir)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		cleanup.add(store.Close)
		db = store
		return db, nil
	}

	// 4. Vector engine. Ephemeral runs keep every store in memory.
	var engine driven.VectorEngine
	switch {
	case opts.Ephemeral || settings.Vector.Engine == domain.VectorEngineMemory:
		engine = memory.NewVectorEngine(settings.Vector.Collection, 0)
	case settings.Vector.Engine == domain.VectorEnginePgvector:
		pg, err := pgvector.Open(ctx, settings.Vector.DSN, settings.Vector.Collection, embedder.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("opening pgvector: %w", err)
		}
		engine = pg
	default:
		store, err := openDB()
		if err != nil {
			return nil, err
		}
		engine = store.VectorEngine(settings.Vector.Collection)
	}
	cleanup.add(engine.Close)
	index := services.NewVectorIndex(engine, embedder)

	// 5. Source ledger.
	var sourceStore driven.SourceStore
	switch {
	case opts.Ephemeral:
		sourceStore = memory.NewSourceStore()
	case settings.Sources.Store == domain.StoreSQLite:
		store, err := openDB()
		if err != nil {
			return nil, err
		}
		sourceStore = store.SourceStore()
	default:
		path := settings.Sources.Path
		if path == "" {
			path = filepath.Join(settings.Pipeline.OutputDir, jsonfile.SourceFileName)
		}
		sourceStore = jsonfile.NewSourceStore(path)
	}

	prober := web.NewProber(settings.Network.Timeout, web.WithProbeRate(settings.Network.ValidationRatePerSecond))
	tracker := services.NewSourceTracker(sourceStore,
		services.WithProber(prober),
		services.WithClassifier(catalog.ClassifyURL),
	)
	if err := tracker.Load(ctx); err != nil {
		logger.Warn("loading sources from %s: %v", sourceStore.Location(), err)
	}

	// 6. Stage artifacts.
	var artifacts driven.ArtifactStore
	switch {
	case opts.Ephemeral:
		artifacts = memory.NewArtifactStore()
	case settings.Artifacts.Store == domain.StoreS3:
		store, err := s3.New(ctx, settings.Artifacts.Bucket, settings.Artifacts.Prefix, settings.Artifacts.Region)
		if err != nil {
			return nil, fmt.Errorf("opening artifact bucket: %w", err)
		}
		artifacts = store
	default:
		artifacts = jsonfile.NewArtifactStore(settings.Pipeline.OutputDir)
	}

	// 7. Ingestion collaborators.
	chunker, err := postprocessors.BuildChunker(postprocessors.DefaultRegistry(), map[string]any{
		postprocessors.KeyStrategy:     settings.Chunker.Strategy,
		postprocessors.KeyChunkSize:    settings.Chunker.ChunkSize,
		postprocessors.KeyChunkOverlap: settings.Chunker.ChunkOverlap,
		postprocessors.KeyMinChunkSize: settings.Chunker.MinChunkSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	scraper := web.NewFileScraper(settings.Pipeline.SourceURLs, settings.Network.Timeout,
		web.WithScrapeRate(settings.Network.ScraperRatePerSecond))

	pipeline := services.NewPipeline(services.PipelineDeps{
		Scraper:   scraper,
		Cleaner:   web.NewCleaner(),
		Chunker:   chunker,
		Embedder:  embedder,
		Resolver:  resolver,
		Index:     index,
		Tracker:   tracker,
		Artifacts: artifacts,
		Validator: services.NewDataValidator(catalog.Platform.Domain),
	},
		services.WithEmbedBatchSize(settings.Pipeline.EmbedBatchSize),
		services.WithEmbedConcurrency(settings.Pipeline.EmbedConcurrency),
	)

	return &cli.Services{
		Index:          index,
		Pipeline:       pipeline,
		Resolver:       resolver,
		Sources:        tracker,
		Settings:       settingsService,
		SourceListPath: settings.Pipeline.SourceURLs,
		Close:          cleanup.close,
	}, nil
}

// applyEnv fills secrets that are not stored in the config file.
func applyEnv(s *domain.Settings) {
	if s.Embedding.APIKey == "" {
		switch s.Embedding.Provider {
		case domain.EmbeddingProviderOpenAI:
			s.Embedding.APIKey = os.Getenv(envOpenAIKey)
		case domain.EmbeddingProviderGemini:
			s.Embedding.APIKey = os.Getenv(envGeminiKey)
		}
	}
	if s.Vector.DSN == "" {
		s.Vector.DSN = os.Getenv(envPgDSN)
	}
	if s.Artifacts.Region == "" {
		s.Artifacts.Region = os.Getenv(envAWSRegion)
	}
}

// resolvePaths anchors relative data paths at dir. An empty dir leaves them
// relative to the working directory.
func resolvePaths(s *domain.Settings, dir string) {
	if dir == "" {
		return
	}
	for _, p := range []*string{
		&s.Pipeline.OutputDir,
		&s.Pipeline.SourceURLs,
		&s.Vector.Path,
		&s.Sources.Path,
		&s.Platform.Catalog,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
