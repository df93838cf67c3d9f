package llm

import (
	"fmt"
	"os"
	"time"
)

// ProviderNone disables generative recommendations entirely.
const ProviderNone = "none"

// Config selects and configures the provider used for recommendations.
// Provider is one of "gemini", "anthropic", "openai", "openrouter", "mock"
// or "none".
type Config struct {
	Provider   string           `toml:"provider"`
	Anthropic  AnthropicConfig  `toml:"anthropic"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	Gemini     GeminiConfig     `toml:"gemini"`
	OpenRouter OpenRouterConfig `toml:"openrouter"`
	Retry      RetryConfig      `toml:"retry"`

	// Timeout bounds one Generate call, retries included.
	Timeout time.Duration `toml:"timeout"`
}

type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// OpenAIConfig also serves OpenAI-compatible endpoints through BaseURL.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

type OpenRouterConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// RetryConfig shapes the exponential backoff of RetryProvider.
type RetryConfig struct {
	MaxAttempts int           `toml:"max_attempts"`
	InitialWait time.Duration `toml:"initial_wait"`
	MaxWait     time.Duration `toml:"max_wait"`
	Multiplier  float64       `toml:"multiplier"`
}

func DefaultConfig() Config {
	return Config{
		Provider:   "gemini",
		Anthropic:  AnthropicConfig{Model: "claude-sonnet"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-2.5-pro"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-pro"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: time.Minute,
	}
}

// ConfigFromEnv is ApplyEnv over DefaultConfig.
func ConfigFromEnv() Config {
	return ApplyEnv(DefaultConfig())
}

// envBindings lists the SLD_* variables ApplyEnv reads, with the field
// each one sets.
var envBindings = []struct {
	name  string
	field func(*Config) *string
}{
	{"SLD_LLM_PROVIDER", func(c *Config) *string { return &c.Provider }},
	{"SLD_ANTHROPIC_API_KEY", func(c *Config) *string { return &c.Anthropic.APIKey }},
	{"SLD_ANTHROPIC_MODEL", func(c *Config) *string { return &c.Anthropic.Model }},
	{"SLD_OPENAI_API_KEY", func(c *Config) *string { return &c.OpenAI.APIKey }},
	{"SLD_OPENAI_MODEL", func(c *Config) *string { return &c.OpenAI.Model }},
	{"SLD_OPENAI_BASE_URL", func(c *Config) *string { return &c.OpenAI.BaseURL }},
	{"SLD_GEMINI_API_KEY", func(c *Config) *string { return &c.Gemini.APIKey }},
	{"SLD_GEMINI_MODEL", func(c *Config) *string { return &c.Gemini.Model }},
	{"SLD_OPENROUTER_API_KEY", func(c *Config) *string { return &c.OpenRouter.APIKey }},
	{"SLD_OPENROUTER_MODEL", func(c *Config) *string { return &c.OpenRouter.Model }},
}

// vendorKeys are the vendors' own key variables, used when the matching
// SLD_* key is unset. The order is the discovery priority.
var vendorKeys = []struct {
	provider, name string
	field          func(*Config) *string
}{
	{"gemini", "GEMINI_API_KEY", func(c *Config) *string { return &c.Gemini.APIKey }},
	{"openai", "OPENAI_API_KEY", func(c *Config) *string { return &c.OpenAI.APIKey }},
	{"anthropic", "ANTHROPIC_API_KEY", func(c *Config) *string { return &c.Anthropic.APIKey }},
	{"openrouter", "OPENROUTER_API_KEY", func(c *Config) *string { return &c.OpenRouter.APIKey }},
}

// ApplyEnv overlays the environment on cfg. Unless SLD_LLM_PROVIDER is set,
// a selected provider without a key is replaced by the first provider
// DiscoverConfig finds.
func ApplyEnv(cfg Config) Config {
	for _, b := range envBindings {
		if v := os.Getenv(b.name); v != "" {
			*b.field(&cfg) = v
		}
	}
	if d, err := time.ParseDuration(os.Getenv("SLD_LLM_TIMEOUT")); err == nil {
		cfg.Timeout = d
	}
	for _, k := range vendorKeys {
		if f := k.field(&cfg); *f == "" {
			*f = os.Getenv(k.name)
		}
	}

	if os.Getenv("SLD_LLM_PROVIDER") == "" && cfg.Validate() != nil {
		if found, ok := DiscoverConfig(); ok {
			cfg.Provider = found.Provider
		}
	}
	return cfg
}

// DiscoverConfig returns the default Config for the first provider whose
// vendor key variable is set, in the order Gemini, OpenAI, Anthropic,
// OpenRouter.
func DiscoverConfig() (Config, bool) {
	for _, k := range vendorKeys {
		if v := os.Getenv(k.name); v != "" {
			cfg := DefaultConfig()
			cfg.Provider = k.provider
			*k.field(&cfg) = v
			return cfg, true
		}
	}
	return Config{}, false
}

// Enabled reports whether a provider other than "none" is selected.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

// Validate checks that the selected provider is known and has a key.
func (c Config) Validate() error {
	switch c.Provider {
	case "mock", ProviderNone:
		return nil
	}
	for _, k := range vendorKeys {
		if k.provider != c.Provider {
			continue
		}
		if *k.field(&c) == "" {
			return fmt.Errorf("%s provider needs an API key: set SLD_%s or %s", c.Provider, k.name, k.name)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider: %q", c.Provider)
}
