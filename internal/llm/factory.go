package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/sldscreen/internal/store"
)

// NewProvider builds the configured provider. Vendor providers are wrapped
// so that each attempt is logged and recorded in events, failed attempts
// are retried per cfg.Retry, and the whole call is bounded by cfg.Timeout. The offline "mock" provider is
// returned unwrapped. Callers check cfg.Enabled first.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, logger *zap.Logger) (Provider, error) {
	var (
		vendor Provider
		err    error
	)
	switch cfg.Provider {
	case "gemini":
		vendor, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openai":
		vendor, err = NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		vendor, err = NewAnthropicProvider(cfg.Anthropic)
	case "openrouter":
		vendor, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return newOfflineMock(), nil
	case ProviderNone, "":
		return nil, fmt.Errorf("LLM provider is disabled")
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	p := WithRetry(WithLogging(vendor, cfg.Provider, events, logger), cfg.Retry, logger)
	return WithTimeout(p, cfg.Timeout), nil
}

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout bounds every Generate call on p by d. A non-positive d
// returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeoutProvider) ModelID() string { return t.inner.ModelID() }
