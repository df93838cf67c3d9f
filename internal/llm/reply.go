package llm

import "encoding/json"

// modelAliases maps short model names to vendor model IDs, per provider.
// Names missing from the table are sent unchanged.
var modelAliases = map[string]map[string]string{
	"anthropic": {
		"claude-sonnet": "claude-sonnet-4-20250514",
		"claude-haiku":  "claude-haiku-4-5-20251001",
	},
	"openai": {
		"gpt-4o":      "gpt-4o",
		"gpt-4o-mini": "gpt-4o-mini",
		"gpt-4.1":     "gpt-4.1",
	},
	"gemini": {
		"gemini-flash": "gemini-2.5-flash",
		"gemini-pro":   "gemini-2.5-pro",
	},
}

func resolveModel(provider, name string) string {
	if id, ok := modelAliases[provider][name]; ok {
		return id
	}
	return name
}

// Normalized stop reasons.
const (
	stopEnd       = "end"
	stopMaxTokens = "max_tokens"
	stopError     = "error"
)

// reply is a completed generation in vendor-neutral form.
type reply struct {
	text  string
	stop  string
	usage Usage
	model string
}

// finish builds the Response for r. With a schema the text must be complete
// JSON that validates; without one it is wrapped as a JSON string.
func (r reply) finish(schema *Schema) (*Response, error) {
	resp := &Response{Usage: r.usage, Model: r.model, StopReason: r.stop}
	if schema == nil {
		resp.Content = textContent(r.text)
		return resp, nil
	}

	resp.Content = json.RawMessage(r.text)
	if r.stop == stopMaxTokens {
		return nil, &ErrMaxTokensExceeded{Content: resp.Content}
	}
	if err := validateResponse(schema, resp.Content); err != nil {
		return nil, err
	}
	return resp, nil
}
