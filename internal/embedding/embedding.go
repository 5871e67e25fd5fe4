package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"ragbot/internal/config"
)

const defaultBatchSize = 32

// NewEmbedder builds the embedder selected by cfg.Provider. The same embedder
// must be used for ingestion and for queries.
func NewEmbedder(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]any{
		"provider":  cfg.Provider,
		"base_url":  cfg.BaseURL,
		"model":     cfg.Model,
		"dimension": cfg.Dimension,
	}).Msg("Loaded embedder config")

	var (
		embedder embeddings.Embedder
		err      error
	)
	switch cfg.Provider {
	case config.ProviderOllama:
		embedder, err = NewOllamaEmbedder(cfg)
	case config.ProviderOpenAI:
		embedder, err = NewOpenAIEmbedder(cfg)
	case config.ProviderHash:
		return NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Dimension > 0 {
		embedder = &dimensionChecked{Embedder: embedder, dimension: cfg.Dimension}
	}
	return embedder, nil
}

// NewOllamaEmbedder creates an embedder backed by an ollama server
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(defaultBatchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// NewOpenAIEmbedder creates an embedder for any OpenAI compatible endpoint
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(defaultBatchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// dimensionChecked rejects vectors whose length differs from the configured
// dimension, which would otherwise corrupt the index
type dimensionChecked struct {
	embeddings.Embedder
	dimension int
}

func (d *dimensionChecked) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := d.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	for _, vec := range vectors {
		if err := d.check(vec); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func (d *dimensionChecked) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := d.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := d.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (d *dimensionChecked) check(vec []float32) error {
	if len(vec) != d.dimension {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", d.dimension, len(vec))
	}
	return nil
}
