package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/ai"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/config"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/cli"
	"github.com/custodia-labs/docsearch/internal/connectors/filesystem"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/services"
	"github.com/custodia-labs/docsearch/internal/logger"
	"github.com/custodia-labs/docsearch/internal/normalisers"
	"github.com/custodia-labs/docsearch/internal/postprocessors"
)

// openConfig layers DOCSEARCH_SECTION_KEY environment variables over
// dataDir/config.toml.
func openConfig(dataDir string) (*config.Layered, error) {
	fileStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	env := memory.NewConfigStoreFrom(config.FromEnv(config.EnvPrefix, os.Environ()))
	layered := config.NewLayered(env, fileStore)
	if keys := layered.Overridden(); len(keys) > 0 {
		logger.Debug("Environment overrides: %s", strings.Join(keys, ", "))
	}
	return layered, nil
}

// build assembles every adapter and service from the settings in opts.DataDir.
// A missing embedding provider leaves the system without a vector store;
// a missing language model is reported by each answer.
func build(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := openConfig(opts.DataDir)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	if opts.SettingsOnly {
		return &cli.Services{Settings: settingsService}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Section("Startup")
	providers := ai.Initialise(*settings)
	for _, w := range providers.Warnings {
		logger.Warn("%s", w)
	}
	closers := []func(){providers.Close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var index driven.VectorIndex
	switch {
	case providers.EmbeddingService == nil:
		logger.Warn("No embedding provider: running without a vector store")
	case opts.InMemory:
		index = memory.NewVectorIndex()
		logger.Debug("Using in-memory vector index")
	default:
		store, err := sqlite.NewStore(filepath.Join(opts.DataDir, "data"))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("opening index: %w", err)
		}
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Closing index: %v", err)
			}
		})
		if err := store.BindEmbeddingModel(ctx, providers.EmbeddingService.ModelName()); err != nil {
			closeAll()
			return nil, err
		}
		index = store.VectorIndex()
		logger.Debug("Using index %s", store.Path())
	}

	prompts, err := file.NewPromptStore(filepath.Join(opts.DataDir, "prompts"))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}
	if err := prompts.Watch(ctx); err != nil {
		logger.Warn("Prompt edits need a restart: %v", err)
	}

	resolver := services.NewIntentResolver(settings.Intents.Patterns)
	if settings.Intents.RulesFile != "" {
		if err := resolver.WatchRules(ctx, settings.Intents.RulesFile); err != nil {
			closeAll()
			return nil, fmt.Errorf("loading intent rules: %w", err)
		}
	}

	pipeline, err := postprocessors.NewDefaultPipeline(domain.PipelineConfigFor(settings.RAG))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("building chunk pipeline: %w", err)
	}
	logger.Debug("Chunk pipeline: %s", strings.Join(pipeline.Stages(), " -> "))

	sessions := services.NewSessionRegistry()
	indexService := services.NewIndexService(index, providers.EmbeddingService)
	ingest := services.NewIngestService(
		settings.Ingest,
		normalisers.NewDefaultRegistry(settings.Ingest.OCRLanguages),
		pipeline,
		indexService,
		sessions,
	)

	watcher := filesystem.New()
	closers = append(closers, func() { _ = watcher.Close() })

	return &cli.Services{
		Answer: services.NewAnswerService(
			sessions, resolver, indexService, providers.LLMService, prompts, services.AnswerConfigFrom(*settings),
		),
		Documents: services.NewDocumentService(indexService, sessions, providers.LLMService, settings.RAG),
		Ingest:    ingest,
		Sessions:  services.NewSessionService(sessions, indexService),
		Settings:  settingsService,
		Watch:     services.NewWatchService(watcher, ingest),
		Close:     closeAll,
	}, nil
}
