package ai

import (
	"errors"

	"github.com/hrygo/secretary/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	Embedding EmbeddingConfig
	LLM       LLMConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // openai, siliconflow, ollama
	Model      string // text-embedding-3-small
	Dimensions int
	APIKey     string
	BaseURL    string
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, siliconflow, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
		LLM: LLMConfig{
			Provider:    p.AI.LLMProvider,
			Model:       p.AI.LLMModel,
			APIKey:      p.AI.LLMAPIKey,
			BaseURL:     p.AI.LLMBaseURL,
			MaxTokens:   p.AI.MaxTokens,
			Temperature: p.AI.Temperature,
		},
	}

	if p.IsEmbeddingEnabled() {
		cfg.Embedding = EmbeddingConfig{
			Provider:   p.AI.EmbeddingProvider,
			Model:      p.AI.EmbeddingModel,
			Dimensions: p.AI.EmbeddingDimensions,
			APIKey:     p.AI.EmbeddingAPIKey,
			BaseURL:    p.AI.EmbeddingBaseURL,
		}
	}

	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = 2048
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.Embedding.Provider != "" && c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}

	return nil
}
