package llm

import (
	"os"
	"strconv"
	"strings"
)

// Provider names a hosted text-generation backend.
type Provider string

const (
	ProviderCohere Provider = "cohere"
	ProviderOllama Provider = "ollama"
	ProviderGemini Provider = "gemini"
)

// Config holds all configuration for the poem generator client.
type Config struct {
	Provider    Provider `yaml:"provider"`
	Endpoint    string   `yaml:"endpoint"`
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	TimeoutMs   int      `yaml:"timeout_ms"`
	MaxRetries  int      `yaml:"max_retries"`
	LogCalls    bool     `yaml:"log_calls"`
}

// DefaultConfig returns a Config for Cohere's hosted chat model, matching the
// sampling settings the poems were tuned with.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderCohere,
		Endpoint:    "https://api.cohere.com",
		Model:       "command-r-plus-08-2024",
		Temperature: 0.8,
		MaxTokens:   300,
		TimeoutMs:   60000,
		MaxRetries:  1,
		LogCalls:    true,
	}
}

// providerDefaults fills Endpoint and Model when switching provider without
// naming them.
var providerDefaults = map[Provider]struct{ endpoint, model string }{
	ProviderCohere: {"https://api.cohere.com", "command-r-plus-08-2024"},
	ProviderOllama: {"http://localhost:11434", "llama3.2"},
	ProviderGemini: {"", "gemini-2.0-flash"},
}

// WithProviderDefaults returns c with Endpoint and Model filled from the
// provider's defaults where they are empty.
func (c Config) WithProviderDefaults() Config {
	d, ok := providerDefaults[c.Provider]
	if !ok {
		return c
	}
	if c.Endpoint == "" {
		c.Endpoint = d.endpoint
	}
	if c.Model == "" {
		c.Model = d.model
	}
	return c
}

// ApplyEnv overlays VERSEGRID_LLM_* environment variables onto c. Unparseable
// values are ignored. COHERE_API_KEY and GEMINI_API_KEY are honoured when no
// explicit key is configured for that provider.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("VERSEGRID_LLM_PROVIDER"); v != "" {
		p := Provider(strings.ToLower(v))
		if p != c.Provider {
			c.Provider = p
			c.Endpoint, c.Model = "", ""
		}
	}
	if v := os.Getenv("VERSEGRID_LLM_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("VERSEGRID_LLM_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("VERSEGRID_LLM_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("VERSEGRID_LLM_LOG_CALLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LogCalls = b
		}
	}
	if v := os.Getenv("VERSEGRID_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutMs = n
		}
	}
	if v := os.Getenv("VERSEGRID_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("VERSEGRID_LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 2 {
			c.Temperature = f
		}
	}
	if c.APIKey == "" {
		switch c.Provider {
		case ProviderCohere:
			c.APIKey = os.Getenv("COHERE_API_KEY")
		case ProviderGemini:
			c.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	return c.WithProviderDefaults()
}
