package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGeminiProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-pro",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func geminiReply(text, finish string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": finish,
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     80,
				"candidatesTokenCount": 20,
				"totalTokenCount":      100,
			},
			"modelVersion": "gemini-2.5-pro",
		})
	}
}

func recommendationSchema() *Schema {
	return &Schema{
		Name: "test-recommendations",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recommendations": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []any{"recommendations"},
		},
	}
}

func TestGeminiProvider_HappyPath(t *testing.T) {
	var path string
	handler := func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		geminiReply(`{"recommendations":["Use multisensory phonics games at home."]}`, "STOP")(w, r)
	}
	p := newTestGeminiProvider(t, handler)

	resp, err := p.Generate(context.Background(), Request{
		System:    "You are an educational psychologist assistant.",
		Messages:  []Message{{Role: RoleUser, Content: "Suggest interventions."}},
		Schema:    recommendationSchema(),
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(path, "gemini-2.5-pro:generateContent") {
		t.Fatalf("unexpected request path %q", path)
	}
	if resp.Usage.InputTokens != 80 || resp.Usage.OutputTokens != 20 || resp.Usage.TotalTokens != 100 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if resp.Model != "gemini-2.5-pro" {
		t.Fatalf("model = %q, want gemini-2.5-pro", resp.Model)
	}
	if resp.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp.StopReason)
	}
}

func TestGeminiProvider_PlainText(t *testing.T) {
	p := newTestGeminiProvider(t, geminiReply("line one\nline two", "STOP"))

	resp, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var text string
	if err := json.Unmarshal(resp.Content, &text); err != nil {
		t.Fatalf("content is not a JSON string: %v", err)
	}
	if text != "line one\nline two" {
		t.Fatalf("text = %q", text)
	}
}

func TestGeminiProvider_Truncated(t *testing.T) {
	p := newTestGeminiProvider(t, geminiReply(`{"recommendations":["Use multi`, "MAX_TOKENS"))

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Schema:   recommendationSchema(),
	})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got: %T (%v)", err, err)
	}
}

func TestGeminiProvider_SchemaMismatch(t *testing.T) {
	p := newTestGeminiProvider(t, geminiReply(`{"advice":"none"}`, "STOP"))

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Schema:   recommendationSchema(),
	})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
	}
}

func TestGeminiProvider_RateLimit(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    429,
				"message": "Resource has been exhausted",
				"status":  "RESOURCE_EXHAUSTED",
			},
		})
	}
	p := newTestGeminiProvider(t, handler)

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T (%v)", err, err)
	}
}

func TestGeminiProvider_ServerError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 503, "message": "overloaded", "status": "UNAVAILABLE"},
		})
	}
	p := newTestGeminiProvider(t, handler)

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T (%v)", err, err)
	}
}

func TestGeminiProvider_BadRequest(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"},
		})
	}
	p := newTestGeminiProvider(t, handler)

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	var rejected *ErrRequestRejected
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ErrRequestRejected, got: %T (%v)", err, err)
	}
	if rejected.Provider != "gemini" || rejected.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected rejection: %+v", rejected)
	}
}
