package ai

import (
	"errors"

	"github.com/usedigest/digest/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	LLM       LLMConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek
	Model       string // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0 (deterministic digests)
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Embedding: EmbeddingConfig{
			Model:      p.AIEmbeddingModel,
			Dimensions: p.AIEmbeddingDims,
			// Embeddings always go through the OpenAI-compatible endpoint;
			// DeepSeek does not serve an embedding model.
			APIKey:  p.AIOpenAIAPIKey,
			BaseURL: p.AIOpenAIBaseURL,
		},
		LLM: LLMConfig{
			Provider:  p.AILLMProvider,
			Model:     p.AILLMModel,
			MaxTokens: 2048,
		},
	}

	switch p.AILLMProvider {
	case "deepseek":
		cfg.LLM.APIKey = p.AIDeepSeekAPIKey
		cfg.LLM.BaseURL = p.AIDeepSeekBaseURL
	case "openai":
		cfg.LLM.APIKey = p.AIOpenAIAPIKey
		cfg.LLM.BaseURL = p.AIOpenAIBaseURL
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	return nil
}
