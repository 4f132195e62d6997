package ai

import (
	"testing"

	"github.com/campusfind/campusfind/internal/profile"
)

func TestNewEmbeddingConfigFromProfile(t *testing.T) {
	prof := &profile.Profile{
		EmbeddingProvider:   "siliconflow",
		EmbeddingModel:      "BAAI/bge-m3",
		EmbeddingAPIKey:     "test-key",
		EmbeddingBaseURL:    "https://api.siliconflow.cn/v1",
		EmbeddingDimensions: 1024,
		EmbeddingRateLimit:  5,
	}

	cfg := NewEmbeddingConfigFromProfile(prof)

	if cfg.Provider != "siliconflow" {
		t.Errorf("Expected Provider=siliconflow, got %s", cfg.Provider)
	}
	if cfg.Model != "BAAI/bge-m3" {
		t.Errorf("Expected Model=BAAI/bge-m3, got %s", cfg.Model)
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("Expected APIKey=test-key, got %s", cfg.APIKey)
	}
	if cfg.BaseURL != "https://api.siliconflow.cn/v1" {
		t.Errorf("Expected BaseURL=https://api.siliconflow.cn/v1, got %s", cfg.BaseURL)
	}
	if cfg.Dimensions != 1024 {
		t.Errorf("Expected Dimensions=1024, got %d", cfg.Dimensions)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("Expected RateLimit=5, got %f", cfg.RateLimit)
	}
}

func TestEmbeddingConfigValidate(t *testing.T) {
	cfg := &EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", APIKey: "key", Dimensions: 1536}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	missingModel := &EmbeddingConfig{Provider: "openai", APIKey: "key", Dimensions: 1536}
	if err := missingModel.Validate(); err == nil {
		t.Error("Expected error for missing model")
	}

	missingKey := &EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 1536}
	if err := missingKey.Validate(); err == nil {
		t.Error("Expected error for missing API key")
	}

	// Ollama runs locally and needs no key.
	ollama := &EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text", Dimensions: 768}
	if err := ollama.Validate(); err != nil {
		t.Errorf("Expected ollama config without key to be valid, got %v", err)
	}

	badDimensions := &EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", APIKey: "key"}
	if err := badDimensions.Validate(); err == nil {
		t.Error("Expected error for non-positive dimensions")
	}
}
