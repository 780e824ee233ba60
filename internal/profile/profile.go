package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where secretary stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	AI      AIConfig
	Runtime RuntimeConfig
}

// AIConfig holds the reasoning model and embedding settings.
type AIConfig struct {
	LLMProvider string  `env:"SECRETARY_LLM_PROVIDER" envDefault:"openai"`
	LLMAPIKey   string  `env:"SECRETARY_LLM_API_KEY"`
	LLMBaseURL  string  `env:"SECRETARY_LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel    string  `env:"SECRETARY_LLM_MODEL" envDefault:"gpt-4o-mini"`
	MaxTokens   int     `env:"SECRETARY_LLM_MAX_TOKENS" envDefault:"2048"`
	Temperature float32 `env:"SECRETARY_LLM_TEMPERATURE" envDefault:"0.7"`

	EmbeddingProvider   string `env:"SECRETARY_EMBEDDING_PROVIDER" envDefault:"openai"`
	EmbeddingAPIKey     string `env:"SECRETARY_EMBEDDING_API_KEY"`
	EmbeddingBaseURL    string `env:"SECRETARY_EMBEDDING_BASE_URL"`
	EmbeddingModel      string `env:"SECRETARY_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int    `env:"SECRETARY_EMBEDDING_DIMENSIONS" envDefault:"1536"`
}

// RuntimeConfig holds orchestration knobs.
type RuntimeConfig struct {
	ConfidenceThreshold float64       `env:"SECRETARY_CONFIDENCE_THRESHOLD" envDefault:"0.3"`
	MaxHops             int           `env:"SECRETARY_MAX_HOPS" envDefault:"10"`
	LLMTimeout          time.Duration `env:"SECRETARY_LLM_TIMEOUT" envDefault:"30s"`
	Timezone            string        `env:"SECRETARY_TIMEZONE" envDefault:"Asia/Almaty"`
	DefaultLocale       string        `env:"SECRETARY_DEFAULT_LOCALE" envDefault:"ru"`
	JWTSecret           string        `env:"SECRETARY_JWT_SECRET"`
	RateLimit           float64       `env:"SECRETARY_RATE_LIMIT" envDefault:"5"`
	RateBurst           int           `env:"SECRETARY_RATE_BURST" envDefault:"10"`
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if a reasoning model endpoint is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AI.LLMAPIKey != "" || strings.Contains(p.AI.LLMBaseURL, "localhost")
}

// IsEmbeddingEnabled returns true if semantic memory can embed text.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.AI.EmbeddingAPIKey != "" || p.AI.LLMAPIKey != ""
}

// FromEnv loads AI and runtime configuration from SECRETARY_* environment variables.
func (p *Profile) FromEnv() error {
	if err := env.Parse(&p.AI); err != nil {
		return errors.Wrap(err, "failed to parse AI config")
	}
	if err := env.Parse(&p.Runtime); err != nil {
		return errors.Wrap(err, "failed to parse runtime config")
	}
	if p.AI.EmbeddingAPIKey == "" {
		p.AI.EmbeddingAPIKey = p.AI.LLMAPIKey
	}
	if p.AI.EmbeddingBaseURL == "" {
		p.AI.EmbeddingBaseURL = p.AI.LLMBaseURL
	}
	return nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
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
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "secretary")
		} else {
			p.Data = "/var/opt/secretary"
		}
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("secretary_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.Runtime.ConfidenceThreshold < 0 || p.Runtime.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence threshold must be within [0,1], got %v", p.Runtime.ConfidenceThreshold)
	}
	if p.Runtime.MaxHops <= 0 {
		p.Runtime.MaxHops = 10
	}
	if p.Runtime.DefaultLocale == "" {
		p.Runtime.DefaultLocale = "ru"
	}

	return nil
}
