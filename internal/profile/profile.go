package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Embedding provider configuration (OpenAI-compatible protocol).
	// Any provider speaking the /v1/embeddings API works: openai, siliconflow, ollama, etc.
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int
	// EmbeddingTimeout is the per-call timeout in seconds.
	EmbeddingTimeout int
	// EmbeddingRateLimit caps provider calls per second, 0 disables limiting.
	EmbeddingRateLimit float64

	// Matching configuration.
	MatchLimit             int
	MatchDistanceThreshold float64
	// MatchFanOutConcurrency bounds concurrent matching passes during the
	// found-item fan-out.
	MatchFanOutConcurrency int
	// MatchPassTimeout is the per-pass timeout in seconds.
	MatchPassTimeout int

	Mode        string
	Addr        string
	Port        int
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
}

// Embedding provider default base URLs, used when the base URL is not set.
var embeddingProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "text-embedding-3-small",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "BAAI/bge-m3",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "nomic-embed-text",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled returns true if an embedding provider is configured.
// Without one the matching engine cannot run and triggers become no-ops.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingAPIKey != "" || p.EmbeddingProvider == "ollama"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.EmbeddingProvider = getEnvOrDefault("CAMPUSFIND_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("CAMPUSFIND_EMBEDDING_MODEL", "")
	p.EmbeddingAPIKey = getEnvOrDefault("CAMPUSFIND_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("CAMPUSFIND_EMBEDDING_BASE_URL", "")
	p.EmbeddingDimensions = getEnvOrDefaultInt("CAMPUSFIND_EMBEDDING_DIMENSIONS", 1536)
	p.EmbeddingTimeout = getEnvOrDefaultInt("CAMPUSFIND_EMBEDDING_TIMEOUT_SECONDS", 30)
	p.EmbeddingRateLimit = getEnvOrDefaultFloat("CAMPUSFIND_EMBEDDING_RATE_LIMIT", 10)

	if _, ok := embeddingProviderDefaults[p.EmbeddingProvider]; !ok {
		slog.Warn("unknown embedding provider, using default: openai", "provider", p.EmbeddingProvider)
		p.EmbeddingProvider = "openai"
	}
	if defaults, ok := embeddingProviderDefaults[p.EmbeddingProvider]; ok {
		if p.EmbeddingBaseURL == "" {
			p.EmbeddingBaseURL = defaults.BaseURL
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = defaults.Model
		}
	}

	p.MatchLimit = getEnvOrDefaultInt("CAMPUSFIND_MATCH_LIMIT", 10)
	p.MatchDistanceThreshold = getEnvOrDefaultFloat("CAMPUSFIND_MATCH_DISTANCE_THRESHOLD", 0.6)
	p.MatchFanOutConcurrency = getEnvOrDefaultInt("CAMPUSFIND_MATCH_FANOUT_CONCURRENCY", 8)
	p.MatchPassTimeout = getEnvOrDefaultInt("CAMPUSFIND_MATCH_PASS_TIMEOUT_SECONDS", 120)
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

	// Trim trailing \ or / in case user supplies.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("campusfind_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	}

	if p.MatchLimit <= 0 {
		p.MatchLimit = 10
	}
	if p.MatchDistanceThreshold <= 0 {
		p.MatchDistanceThreshold = 0.6
	}
	if p.MatchFanOutConcurrency <= 0 {
		p.MatchFanOutConcurrency = 8
	}
	if p.MatchPassTimeout <= 0 {
		p.MatchPassTimeout = 120
	}

	return nil
}
