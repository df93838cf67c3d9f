package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMockProvider_Script(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"recommendations":["a"]}`), Usage: Usage{InputTokens: 7}},
		MockResponse{Err: &ErrRateLimit{}},
	)

	resp, err := mock.Generate(context.Background(), Request{System: "first"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"recommendations":["a"]}` || resp.Usage.InputTokens != 7 {
		t.Fatalf("unexpected first reply: %s %+v", resp.Content, resp.Usage)
	}
	if resp.Model != mock.ModelID() {
		t.Errorf("model = %q, want %q", resp.Model, mock.ModelID())
	}

	_, err = mock.Generate(context.Background(), Request{System: "second"})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected scripted ErrRateLimit, got %T", err)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable once the script is exhausted, got %T", err)
	}

	if mock.CallCount() != 3 || mock.Calls[1].System != "second" {
		t.Fatalf("calls not recorded: %+v", mock.Calls)
	}
}

func TestMockProvider_AddResponse(t *testing.T) {
	mock := NewMockProvider()
	mock.AddResponse(MockResponse{Content: json.RawMessage(`"late"`)})

	resp, err := mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `"late"` {
		t.Fatalf("content = %s", resp.Content)
	}
}

func TestMockProvider_Fallback(t *testing.T) {
	mock := newOfflineMock()
	for range 3 {
		resp, err := mock.Generate(context.Background(), Request{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var out struct {
			Recommendations []string `json:"recommendations"`
		}
		if err := json.Unmarshal(resp.Content, &out); err != nil {
			t.Fatalf("fallback is not JSON: %v", err)
		}
		if len(out.Recommendations) != 3 {
			t.Fatalf("expected 3 fallback recommendations, got %d", len(out.Recommendations))
		}
	}
}

func TestNewProvider_Mock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "mock"
	p, err := NewProvider(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(context.Background(), Request{Schema: recommendationSchema()}); err != nil {
		t.Fatalf("offline mock should answer: %v", err)
	}

	cfg.Provider = ProviderNone
	if _, err := NewProvider(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected error for disabled provider")
	}
}

type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) ModelID() string { return "blocking" }

func TestWithTimeout(t *testing.T) {
	p := WithTimeout(blockingProvider{}, 20*time.Millisecond)
	if p.ModelID() != "blocking" {
		t.Fatalf("model = %q, want blocking", p.ModelID())
	}

	start := time.Now()
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not applied, took %s", elapsed)
	}

	mock := NewMockProvider()
	if WithTimeout(mock, 0) != Provider(mock) {
		t.Fatal("zero timeout should return the provider unchanged")
	}
}
