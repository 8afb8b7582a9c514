package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"curabot/internal/config"
	"curabot/internal/models"
)

// Embedder is satisfied by langchaingo embedders and the local hash embedder
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Fixed wraps an Embedder and pins its output dimension. The dimension is
// either configured up front or locked by the first vector it sees.
type Fixed struct {
	name  string
	inner Embedder

	mu  sync.Mutex
	dim int
}

func NewFixed(name string, inner Embedder, dim int) *Fixed {
	return &Fixed{name: name, inner: inner, dim: dim}
}

// New builds the embedder selected by cfg.Backend
func New(cfg *config.EmbeddingConfig) (*Fixed, error) {
	log.Debug().Interface("config", map[string]any{
		"backend":    cfg.Backend,
		"base_url":   cfg.BaseURL,
		"model":      cfg.Model,
		"dimensions": cfg.Dimensions,
	}).Msg("Loaded embedding config")

	switch cfg.Backend {
	case "", "hash":
		dim := cfg.Dimensions
		if dim <= 0 {
			dim = DefaultHashDimension
		}
		return NewFixed("hash", NewHashEmbedder(dim), dim), nil
	case "ollama":
		e, err := NewOllamaEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return NewFixed("ollama", e, cfg.Dimensions), nil
	case "openai":
		e, err := NewOpenAIEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return NewFixed("openai", e, cfg.Dimensions), nil
	default:
		return nil, &config.ConfigurationError{Reason: "unknown embedding backend " + cfg.Backend}
	}
}

// new ollama embedder
func NewOllamaEmbedder(cfg *config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	return embedder, nil
}

// NewOpenAIEmbedder creates an embedder for any OpenAI-compatible endpoint
func NewOpenAIEmbedder(cfg *config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.APIKey(), "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}
	return embedder, nil
}

func (f *Fixed) Name() string { return f.name }

// Dimension is 0 until configured or locked by the first embedding
func (f *Fixed) Dimension() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dim
}

// Embed returns the vector for text, failing with *models.EmbeddingError
func (f *Fixed) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := f.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, &models.EmbeddingError{Reason: f.name + " backend unavailable", Err: err}
	}
	if len(vec) == 0 {
		return nil, &models.EmbeddingError{Reason: f.name + " backend returned an empty vector"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dim == 0 {
		f.dim = len(vec)
		log.Info().Str("backend", f.name).Int("dimension", f.dim).Msg("Locked embedding dimension")
	}
	if len(vec) != f.dim {
		return nil, &models.EmbeddingError{Reason: fmt.Sprintf("dimension mismatch: expected %d, got %d", f.dim, len(vec))}
	}
	return vec, nil
}

// GenerateEmbedding embeds every chunk in order
func (f *Fixed) GenerateEmbedding(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	vectors := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := f.Embed(ctx, chunk.Content)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
