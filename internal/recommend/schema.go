package recommend

import "github.com/abhisek/sldscreen/internal/llm"

// RecommendationsSchema defines the JSON schema for screening recommendations.
var RecommendationsSchema = &llm.Schema{
	Name:        "sld-recommendations",
	Description: "Practical recommendations for parents and teachers after an SLD screening",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recommendations": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3-5 specific, practical recommendations of 1-2 sentences each",
			},
		},
		"required":             []any{"recommendations"},
		"additionalProperties": false,
	},
}
