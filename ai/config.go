package ai

import (
	"github.com/pkg/errors"

	"github.com/campusfind/campusfind/internal/profile"
)

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	// RateLimit caps provider calls per second, 0 disables limiting.
	RateLimit float64
}

// NewEmbeddingConfigFromProfile creates embedding config from profile.
func NewEmbeddingConfigFromProfile(p *profile.Profile) *EmbeddingConfig {
	return &EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Dimensions: p.EmbeddingDimensions,
		RateLimit:  p.EmbeddingRateLimit,
	}
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	if c.APIKey == "" && c.Provider != "ollama" {
		return errors.Errorf("embedding provider %q requires an API key", c.Provider)
	}
	return nil
}
