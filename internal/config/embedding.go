package config

import (
	"fmt"
	"os"
	"time"
)

// EmbeddingConfig describes the embedding model shared by content and bridge vectors.
// Changing Model invalidates every stored vector.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`     // "openai", "gemini", "jina" or "openai-compatible"
	Model      string        `mapstructure:"model"`        // Model name/ID
	APIKey     string        `mapstructure:"api_key"`      // API key (can be set directly or via env var)
	APIKeyEnv  string        `mapstructure:"api_key_env"`  // Environment variable name for API key
	BaseURL    string        `mapstructure:"base_url"`     // Base URL for HTTP providers
	BaseURLEnv string        `mapstructure:"base_url_env"` // Environment variable name for base URL
	Dimensions int           `mapstructure:"dimensions"`   // Embedding vector dimensions
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ResolveEnvVars resolves environment variable references in the configuration.
// Direct values (APIKey, BaseURL) take precedence if already set.
func (c *EmbeddingConfig) ResolveEnvVars() {
	c.APIKey = resolveEnv(c.APIKey, c.APIKeyEnv)
	c.BaseURL = resolveEnv(c.BaseURL, c.BaseURLEnv)
}

// Validate checks that the embedding configuration has all required fields.
func (c *EmbeddingConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("embedding: model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding %q: dimensions must be positive", c.Model)
	}

	switch c.Provider {
	case "openai", "gemini", "jina", "openai-compatible":
	default:
		return fmt.Errorf("embedding %q: unknown provider %q", c.Model, c.Provider)
	}

	if c.Provider == "openai-compatible" && c.BaseURL == "" {
		return fmt.Errorf("embedding %q: base_url is required for openai-compatible provider", c.Model)
	}

	return nil
}

// LLMConfig configures the chat-completion backend used for theme expansion,
// bridge synthesis and transcript segment extraction.
type LLMConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	APIKeyEnv       string        `mapstructure:"api_key_env"`
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	ThemeMaxTokens  int           `mapstructure:"theme_max_tokens"`
	BridgeMaxTokens int           `mapstructure:"bridge_max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

func (c *LLMConfig) ResolveEnvVars() {
	c.APIKey = resolveEnv(c.APIKey, c.APIKeyEnv)
}

// GeneratorConfig configures the structured generation backend for joke transplants.
type GeneratorConfig struct {
	Model           string  `mapstructure:"model"`
	APIKey          string  `mapstructure:"api_key"`
	APIKeyEnv       string  `mapstructure:"api_key_env"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
	BaseURL         string  `mapstructure:"base_url"` // optional proxy in front of the Gemini API
}

func (c *GeneratorConfig) ResolveEnvVars() {
	c.APIKey = resolveEnv(c.APIKey, c.APIKeyEnv)
}

func (c *GeneratorConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("generator: model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("generator: temperature %.2f out of range [0, 2]", c.Temperature)
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("generator: max_output_tokens must be positive")
	}
	return nil
}

func resolveEnv(current, envName string) string {
	if current != "" || envName == "" {
		return current
	}
	return os.Getenv(envName)
}
