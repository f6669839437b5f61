package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the digest server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory (sqlite database, archived articles)
	Data string
	// DSN points to where digest stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// FrontendOrigin is the origin allowed by CORS
	FrontendOrigin string

	// AI configuration
	AILLMProvider     string // DIGEST_AI_LLM_PROVIDER (default: openai)
	AILLMModel        string // DIGEST_AI_LLM_MODEL (default: gpt-4o-mini)
	AIEmbeddingModel  string // DIGEST_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDims   int    // DIGEST_AI_EMBEDDING_DIMENSIONS (default: 1536)
	AIOpenAIAPIKey    string // DIGEST_AI_OPENAI_API_KEY
	AIOpenAIBaseURL   string // DIGEST_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIDeepSeekAPIKey  string // DIGEST_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL string // DIGEST_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if at least one LLM provider is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIOpenAIAPIKey != "" || p.AIDeepSeekAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads AI configuration from DIGEST_* environment variables.
func (p *Profile) FromEnv() {
	p.AILLMProvider = getEnvOrDefault("DIGEST_AI_LLM_PROVIDER", "openai")
	p.AILLMModel = getEnvOrDefault("DIGEST_AI_LLM_MODEL", "gpt-4o-mini")
	p.AIEmbeddingModel = getEnvOrDefault("DIGEST_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIOpenAIAPIKey = os.Getenv("DIGEST_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("DIGEST_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIDeepSeekAPIKey = os.Getenv("DIGEST_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekBaseURL = getEnvOrDefault("DIGEST_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	if p.AIEmbeddingDims == 0 {
		p.AIEmbeddingDims = 1536
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("digest_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
