package recommend

import "time"

// Config holds recommendation generation settings.
type Config struct {
	MaxTokens   int           `toml:"max_tokens"`
	Temperature float64       `toml:"temperature"`
	Timeout     time.Duration `toml:"timeout"`
}

// DefaultConfig returns sensible defaults for recommendation generation.
// MaxTokens includes the thinking budget of reasoning models.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   2048,
		Temperature: 0.4,
		Timeout:     60 * time.Second,
	}
}
