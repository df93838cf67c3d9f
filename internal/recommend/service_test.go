package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/sldscreen/internal/llm"
	"github.com/abhisek/sldscreen/internal/screening"
)

func mediumInput() Input {
	return Input{
		Probabilities: screening.Probabilities{
			screening.Dyslexia:    0.65,
			screening.Dyscalculia: 0.125,
			screening.Dysgraphia:  0.3,
			screening.Dyspraxia:   0,
		},
		Risk:    screening.RiskMedium,
		Flagged: []screening.Category{screening.Dyslexia},
	}
}

func TestGenerate_Structured(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"recommendations":[
			"  Read aloud together for ten minutes every evening.  ",
			"Short.",
			"",
			"Ask the class teacher for extra time on written tasks."
		]}`),
	})
	svc := NewService(mock, nil, DefaultConfig())

	got, err := svc.Generate(context.Background(), mediumInput())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Read aloud together for ten minutes every evening.",
		"Ask the class teacher for extra time on written tasks.",
	}, got)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, RecommendationsSchema, req.Schema)
	assert.Equal(t, systemPrompt, req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
}

func TestGenerate_PlainTextFallback(t *testing.T) {
	text, _ := json.Marshal("1. Practise phonics with games.\nok\n\n2. Use graph paper for sums.")
	mock := llm.NewMockProvider(llm.MockResponse{Content: text})
	svc := NewService(mock, nil, DefaultConfig())

	got, err := svc.Generate(context.Background(), mediumInput())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1. Practise phonics with games.",
		"2. Use graph paper for sums.",
	}, got)
}

func TestGenerate_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})
	svc := NewService(mock, nil, DefaultConfig())

	_, err := svc.Generate(context.Background(), mediumInput())
	var unavail *llm.ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestGenerate_UnparseableContent(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`[1,2]`)})
	svc := NewService(mock, nil, DefaultConfig())

	_, err := svc.Generate(context.Background(), mediumInput())
	assert.Error(t, err)
}

func TestGenerate_NoProvider(t *testing.T) {
	svc := NewService(nil, nil, DefaultConfig())
	assert.False(t, svc.Enabled())

	got, err := svc.Generate(context.Background(), mediumInput())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGenerate_SetsPurpose(t *testing.T) {
	var purpose string
	p := providerFunc(func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		purpose = llm.PurposeFrom(ctx)
		return &llm.Response{Content: json.RawMessage(`{"recommendations":[]}`)}, nil
	})
	svc := NewService(p, nil, DefaultConfig())

	got, err := svc.Generate(context.Background(), mediumInput())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, Purpose, purpose)
}

func TestBuildUserMessage(t *testing.T) {
	msg := buildUserMessage(mediumInput(), screening.DefaultRubric())

	for _, want := range []string{
		"- Dyslexia (Reading): 65.00%",
		"- Dyscalculia (Math): 12.50%",
		"- Dysgraphia (Writing): 30.00%",
		"- Dyspraxia (Motor): 0.00%",
		"Overall Risk Level: MEDIUM",
		"At or above referral threshold: Dyslexia (Reading)",
		"Provide 3-5 specific, practical recommendations",
		"1-2 sentences",
	} {
		assert.Contains(t, msg, want)
	}

	// Categories appear in reporting order.
	assert.Less(t, strings.Index(msg, "Dyslexia"), strings.Index(msg, "Dyscalculia"))
	assert.Less(t, strings.Index(msg, "Dysgraphia"), strings.Index(msg, "Dyspraxia"))
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"short lines dropped", "tiny\n0123456789\n01234567890", []string{"01234567890"}},
		{"trimmed", "\t  Encourage daily journaling.  \r", []string{"Encourage daily journaling."}},
		{"unicode counted by rune", "ééééééééééé", []string{"ééééééééééé"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLines(tt.in))
		})
	}
}

type providerFunc func(context.Context, llm.Request) (*llm.Response, error)

func (f providerFunc) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f(ctx, req)
}

func (f providerFunc) ModelID() string { return "func" }
