package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return newOpenAICompatible("openai", OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL + "/v1",
	})
}

// openaiChoice replies with a single chat completion choice.
func openaiChoice(message map[string]any, finish string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		message["role"] = "assistant"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-screen",
			"object":  "chat.completion",
			"created": 1760000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       message,
				"finish_reason": finish,
			}},
			"usage": map[string]any{
				"prompt_tokens":     90,
				"completion_tokens": 30,
				"total_tokens":      120,
			},
		})
	}
}

func openaiStatus(status int, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": kind, "message": kind},
		})
	}
}

func TestOpenAIProvider_Structured(t *testing.T) {
	var sent openai.ChatCompletionRequest
	handler := func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&sent)
		openaiChoice(map[string]any{
			"content": `{"recommendations":["Break maths homework into short sessions."]}`,
		}, "stop")(w, r)
	}
	p := newTestOpenAIProvider(t, handler)

	resp, err := p.Generate(context.Background(), Request{
		System:    "You are an educational psychologist assistant.",
		Messages:  []Message{{Role: RoleUser, Content: "Dyscalculia risk is medium."}},
		Schema:    recommendationSchema(),
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.InputTokens != 90 || resp.Usage.OutputTokens != 30 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.StopReason != "end" {
		t.Errorf("stop reason = %q, want end", resp.StopReason)
	}
	if len(sent.Messages) != 2 || sent.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("expected system then user message, got %+v", sent.Messages)
	}
	if sent.ResponseFormat == nil || sent.ResponseFormat.JSONSchema == nil {
		t.Fatal("schema was not sent as response format")
	}
	if sent.ResponseFormat.JSONSchema.Name != "test-recommendations" {
		t.Errorf("schema name = %q", sent.ResponseFormat.JSONSchema.Name)
	}
}

func TestOpenAIProvider_PlainText(t *testing.T) {
	p := newTestOpenAIProvider(t, openaiChoice(map[string]any{"content": "Use graph paper."}, "stop"))

	resp, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "One tip please."}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var s string
	if err := json.Unmarshal(resp.Content, &s); err != nil {
		t.Fatalf("plain text should be a JSON string: %v", err)
	}
	if s != "Use graph paper." {
		t.Errorf("content = %q", s)
	}
}

func TestOpenAIProvider_Refusal(t *testing.T) {
	p := newTestOpenAIProvider(t, openaiChoice(map[string]any{"refusal": "I can't help with that."}, "stop"))

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "x"}},
		Schema:   recommendationSchema(),
	})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestOpenAIProvider_Truncated(t *testing.T) {
	p := newTestOpenAIProvider(t, openaiChoice(map[string]any{"content": `{"recommendations":[`}, "length"))

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "x"}},
		Schema:   recommendationSchema(),
	})
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T (%v)", err, err)
	}
}

func TestOpenAIProvider_ErrorStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusTooManyRequests, "rate_limit"},
		{http.StatusBadGateway, "unavailable"},
		{http.StatusUnauthorized, "rejected"},
		{http.StatusNotFound, "rejected"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestOpenAIProvider(t, openaiStatus(tt.status, "error"))
			_, err := p.Generate(context.Background(), Request{
				Messages: []Message{{Role: RoleUser, Content: "x"}},
			})
			if got := errorKind(err); got != tt.want {
				t.Fatalf("status %d: got %s (%v), want %s", tt.status, got, err, tt.want)
			}
		})
	}
}

func TestOpenAIProvider_RetryAfter(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		openaiStatus(http.StatusTooManyRequests, "rate_limit_exceeded")(w, r)
	}
	p := newTestOpenAIProvider(t, handler)
	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "x"}},
	})

	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
	if rl.RetryAfter != 12*time.Second {
		t.Errorf("RetryAfter = %s, want 12s", rl.RetryAfter)
	}
}

func TestOpenAIStop(t *testing.T) {
	tests := map[openai.FinishReason]string{
		openai.FinishReasonStop:          "end",
		openai.FinishReasonLength:        "max_tokens",
		openai.FinishReasonContentFilter: "error",
		openai.FinishReasonToolCalls:     "end",
	}
	for in, want := range tests {
		if got := openaiStop(in); got != want {
			t.Errorf("openaiStop(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected error for empty API key")
	}
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "gpt-4.1" {
		t.Errorf("model = %q", p.ModelID())
	}
}
