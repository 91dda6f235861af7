package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/repoflow-ai/repoflow/internal/chunker"
	"github.com/repoflow-ai/repoflow/internal/config"
	"github.com/repoflow-ai/repoflow/internal/embeddings"
	"github.com/repoflow-ai/repoflow/internal/indexer"
	"github.com/repoflow-ai/repoflow/internal/llm"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `repoflow init` to create a config file", err)
	}
	return cfg, nil
}

// createProviderFromConfig creates the completion provider, rate-limited
// according to config.
func createProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)
	}
	return provider, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}

	switch provider {
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(cfg.EmbeddingModel)), nil
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, ""), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}

// createOrchestratorFromConfig wires the oracle and fallback chunkers into
// an orchestrator.
func createOrchestratorFromConfig(cfg *config.Config, provider llm.Provider) *indexer.Orchestrator {
	oracle := chunker.NewOracleChunker(provider, cfg.Model, cfg.MaxRetries,
		time.Duration(cfg.RetryDelaySeconds)*time.Second)
	fallback := chunker.NewFallbackChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	return indexer.NewOrchestrator(oracle, fallback)
}

// indexDir is where the serving index artifacts live.
func indexDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "index")
}
