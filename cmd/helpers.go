package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/veltaworks/docintel/internal/analytics"
	"github.com/veltaworks/docintel/internal/attribution"
	"github.com/veltaworks/docintel/internal/config"
	"github.com/veltaworks/docintel/internal/db"
	"github.com/veltaworks/docintel/internal/dedup"
	"github.com/veltaworks/docintel/internal/docstore"
	"github.com/veltaworks/docintel/internal/embeddings"
	"github.com/veltaworks/docintel/internal/ingest"
	"github.com/veltaworks/docintel/internal/registry"
	"github.com/veltaworks/docintel/internal/search"
)

// engine bundles every service a command might need, opened from config.
type engine struct {
	cfg       *config.Config
	db        *db.DB
	store     docstore.Store
	registry  *registry.Store
	embedder  embeddings.Embedder
	dedup     *dedup.Engine
	pipeline  *ingest.Pipeline
	search    *search.Service
	analytics *analytics.Aggregator
}

func openEngine() (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", cfg.DataDir, err)
	}
	database, err := db.Open(filepath.Join(cfg.DataDir, "docintel.db"))
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		database.Close()
		return nil, err
	}

	store, err := docstore.NewLocalStore(database, embedder)
	if err != nil {
		database.Close()
		return nil, err
	}
	reg := registry.NewStore(database)

	resolver, err := attribution.New(reg, store, cfg)
	if err != nil {
		database.Close()
		return nil, err
	}
	dedupEngine := dedup.NewEngine(store, cfg.NearDupThreshold)

	return &engine{
		cfg:       cfg,
		db:        database,
		store:     store,
		registry:  reg,
		embedder:  embedder,
		dedup:     dedupEngine,
		pipeline:  ingest.NewPipeline(embedder, store, resolver, dedupEngine, cfg),
		search:    search.NewService(embedder, store),
		analytics: analytics.NewAggregator(store, cfg.TrendMargin),
	}, nil
}

func (e *engine) close() {
	e.db.Close()
}

// newEmbedder creates an embeddings.Embedder from the configured provider.
func newEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, cfg.EmbeddingModel, cfg.EmbeddingDims), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDims, cfg.OllamaBaseURL), nil
	default:
		return nil, &config.ConfigurationError{
			Field:  "embedding_provider",
			Reason: fmt.Sprintf("unknown provider %q", cfg.EmbeddingProvider),
		}
	}
}

// loadConfig loads and validates the config, providing a friendly hint when
// the file is missing.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run 'docintel init' to create a valid config)", err)
	}
	return cfg, nil
}
