// Package recommend turns screening scores into free-text guidance for
// parents and teachers using a generative language model.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/sldscreen/internal/llm"
	"github.com/abhisek/sldscreen/internal/screening"
)

// Purpose labels recommendation calls in the LLM event log.
const Purpose = "recommendations"

// minLength is the length a recommendation must exceed to be kept.
const minLength = 10

// Input is the screening summary sent to the model.
type Input struct {
	Probabilities screening.Probabilities
	Risk          screening.RiskTier
	Flagged       []screening.Category
}

// InputFromResult builds an Input from a scoring result.
func InputFromResult(r screening.Result) Input {
	return Input{
		Probabilities: r.Probabilities,
		Risk:          r.Risk,
		Flagged:       r.Flagged,
	}
}

// Service generates recommendations. A nil provider yields no
// recommendations rather than an error.
type Service struct {
	provider llm.Provider
	rubric   *screening.Rubric
	cfg      Config
}

// NewService creates a recommendation service. A nil rubric selects the
// embedded default.
func NewService(provider llm.Provider, rubric *screening.Rubric, cfg Config) *Service {
	if rubric == nil {
		rubric = screening.DefaultRubric()
	}
	return &Service{provider: provider, rubric: rubric, cfg: cfg}
}

// Enabled reports whether a model is configured.
func (s *Service) Enabled() bool {
	return s.provider != nil
}

type recommendationsOutput struct {
	Recommendations []string `json:"recommendations"`
}

// Generate asks the model for recommendations. Items are trimmed and those
// of minLength characters or fewer are dropped.
func (s *Service) Generate(ctx context.Context, in Input) ([]string, error) {
	if s.provider == nil {
		return []string{}, nil
	}

	ctx = llm.WithPurpose(ctx, Purpose)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(in, s.rubric)},
		},
		Schema:      RecommendationsSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("recommendation generation: %w", err)
	}

	return parseContent(resp.Content)
}

// parseContent accepts either the structured object or a plain JSON string,
// which is what providers return when they answer in free text.
func parseContent(content json.RawMessage) ([]string, error) {
	var out recommendationsOutput
	if err := json.Unmarshal(content, &out); err == nil && out.Recommendations != nil {
		return Filter(out.Recommendations), nil
	}

	var text string
	if err := json.Unmarshal(content, &text); err != nil {
		return nil, fmt.Errorf("parse recommendations response: %w", err)
	}
	return SplitLines(text), nil
}

// Filter trims each item and keeps those longer than minLength characters.
func Filter(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if len([]rune(it)) > minLength {
			out = append(out, it)
		}
	}
	return out
}

// SplitLines splits free text into recommendations, one per line.
func SplitLines(text string) []string {
	return Filter(strings.Split(text, "\n"))
}
