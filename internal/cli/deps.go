package cli

import (
	"fmt"
	"time"

	"docchat/config"
	"docchat/internal/adapter/embedding"
	"docchat/internal/adapter/llm"
	"docchat/internal/adapter/loader"
	"docchat/internal/adapter/store"
	"docchat/internal/usecase"
)

// newRegistry assembles the retrieval stack from configuration.
func newRegistry(cfg *config.Config) (*usecase.Registry, error) {
	embedder, err := embedding.NewOpenAIEmbedder(
		cfg.Embedding.APIKeyEnv,
		cfg.Embedding.Model,
		cfg.Embedding.BaseURL,
		cfg.Embedding.Dimension,
		cfg.Embedding.BatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	generator, err := llm.NewOpenAIGenerator(
		cfg.Embedding.APIKeyEnv,
		cfg.Answer.Model,
		cfg.Answer.Temperature,
		cfg.Answer.MaxTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	index, err := store.NewFileIndexStore(cfg.Storage.EmbeddingsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	return usecase.NewRegistry(usecase.RegistryOptions{
		Deps: usecase.EngineDeps{
			Loader:    loader.NewPDFLoader(),
			Embedder:  embedder,
			Generator: generator,
			Index:     index,

			QueryCacheSize: cfg.Cache.QueryResults,
			QueryCacheTTL:  time.Duration(cfg.Cache.QueryTTLSecs) * time.Second,
		},
		MaxEngines: cfg.Cache.MaxEngines,
		ChunkSize:  cfg.Chunking.Size,
		Overlap:    cfg.Chunking.Overlap,
	})
}
