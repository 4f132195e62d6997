package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

type embeddingService struct {
	client     *openai.Client
	limiter    *rate.Limiter
	model      string
	dimensions int
}

// NewEmbeddingService creates a new EmbeddingService over any
// OpenAI-compatible provider (openai, siliconflow, ollama, etc).
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &embeddingService{
		client:     client,
		limiter:    limiter,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit wait: %w", err)
	}

	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

type disabledEmbeddingService struct {
	dimensions int
}

// NewDisabledEmbeddingService returns a service whose calls always fail.
// Used when no provider is configured, so background matching passes fail
// (and are logged) instead of the server refusing to start.
func NewDisabledEmbeddingService(dimensions int) EmbeddingService {
	return &disabledEmbeddingService{dimensions: dimensions}
}

func (s *disabledEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (s *disabledEmbeddingService) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (s *disabledEmbeddingService) Dimensions() int {
	return s.dimensions
}
