package ai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usedigest/digest/internal/profile"
)

func TestNewConfigFromProfileOpenAI(t *testing.T) {
	p := &profile.Profile{
		AILLMProvider:    "openai",
		AILLMModel:       "gpt-4o-mini",
		AIEmbeddingModel: "text-embedding-3-small",
		AIEmbeddingDims:  1536,
		AIOpenAIAPIKey:   "sk-test",
		AIOpenAIBaseURL:  "https://api.openai.com/v1",
	}

	cfg := NewConfigFromProfile(p)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "sk-test", cfg.LLM.APIKey)
	require.Equal(t, "sk-test", cfg.Embedding.APIKey)
	require.Equal(t, 2048, cfg.LLM.MaxTokens)
}

func TestNewConfigFromProfileDeepSeek(t *testing.T) {
	p := &profile.Profile{
		AILLMProvider:     "deepseek",
		AILLMModel:        "deepseek-chat",
		AIEmbeddingModel:  "text-embedding-3-small",
		AIEmbeddingDims:   1536,
		AIOpenAIAPIKey:    "sk-openai",
		AIOpenAIBaseURL:   "https://api.openai.com/v1",
		AIDeepSeekAPIKey:  "sk-deepseek",
		AIDeepSeekBaseURL: "https://api.deepseek.com",
	}

	cfg := NewConfigFromProfile(p)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "sk-deepseek", cfg.LLM.APIKey)
	require.Equal(t, "https://api.deepseek.com", cfg.LLM.BaseURL)

	// Embeddings stay on the OpenAI endpoint regardless of LLM provider.
	require.Equal(t, "sk-openai", cfg.Embedding.APIKey)
	require.Equal(t, "https://api.openai.com/v1", cfg.Embedding.BaseURL)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{
		Embedding: EmbeddingConfig{APIKey: "k", Dimensions: 8},
		LLM:       LLMConfig{Provider: "openai", APIKey: "k"},
	}
	require.NoError(t, cfg.Validate())

	missingKey := *cfg
	missingKey.Embedding.APIKey = ""
	require.Error(t, missingKey.Validate())

	badDims := *cfg
	badDims.Embedding.Dimensions = 0
	require.Error(t, badDims.Validate())

	noProvider := *cfg
	noProvider.LLM.Provider = ""
	require.Error(t, noProvider.Validate())
}

func TestNewLLMServiceRejectsUnknownProvider(t *testing.T) {
	_, err := NewLLMService(&LLMConfig{Provider: "palantir", APIKey: "k"})
	require.Error(t, err)
}
