package llm

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/sldscreen/internal/store"
)

// LoggingProvider records each call it forwards as an llm_request_events
// row and as one structured log line.
type LoggingProvider struct {
	inner  Provider
	name   string
	events store.EventRepo
	logger *zap.Logger
}

// WithLogging wraps p. A nil repo skips persistence and a nil logger
// discards log output.
func WithLogging(p Provider, name string, repo store.EventRepo, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, name: name, events: repo, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEventData{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: requestBody(req),
	}
	if resp != nil {
		ev.InputTokens, ev.OutputTokens = resp.Usage.InputTokens, resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}

	log := l.logger.With(
		zap.String("provider", ev.Provider),
		zap.String("model", ev.Model),
		zap.String("purpose", ev.Purpose),
		zap.Int64("latency_ms", ev.LatencyMs),
	)
	if err != nil {
		ev.ErrorMessage = err.Error()
		log.Warn("llm request failed", zap.Error(err))
	} else {
		log.Info("llm request", zap.Int("input_tokens", ev.InputTokens), zap.Int("output_tokens", ev.OutputTokens))
	}

	if l.events != nil {
		if rerr := l.events.AppendLLMRequest(ctx, ev); rerr != nil {
			log.Warn("failed to record llm request event", zap.Error(rerr))
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

type loggedMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type loggedRequest struct {
	System      string          `json:"system,omitempty"`
	Messages    []loggedMessage `json:"messages"`
	Schema      string          `json:"schema,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

// requestBody renders req as the JSON document stored with the event.
// The schema is stored by name only.
func requestBody(req Request) string {
	lr := loggedRequest{
		System:      req.System,
		Messages:    make([]loggedMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for i, m := range req.Messages {
		lr.Messages[i] = loggedMessage(m)
	}
	if req.Schema != nil {
		lr.Schema = req.Schema.Name
	}
	b, err := json.Marshal(lr)
	if err != nil {
		return ""
	}
	return string(b)
}
