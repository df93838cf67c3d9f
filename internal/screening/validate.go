package screening

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidResponses is wrapped by every response validation failure.
var ErrInvalidResponses = errors.New("invalid responses")

// ParseResponses decodes a JSON object of answers for the given respondent
// and validates it against the rubric: keys must be q1..qN for the
// questionnaire length, values must be numbers in [0, MaxAnswer], and at
// least one answer must be present.
func (r *Rubric) ParseResponses(resp Respondent, raw []byte) (Responses, error) {
	q, ok := r.Questionnaires[resp]
	if !ok {
		return nil, fmt.Errorf("%w: unknown respondent %q", ErrInvalidResponses, resp)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: responses are required", ErrInvalidResponses)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponses, err)
	}

	sch, err := r.responseSchema(resp)
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponses, err)
	}

	obj := doc.(map[string]any)
	out := make(Responses, len(obj))
	for key, v := range obj {
		n, _ := strconv.Atoi(strings.TrimPrefix(key, "q"))
		if n > q.Length {
			return nil, fmt.Errorf("%w: %s questionnaire has %d questions, got %q",
				ErrInvalidResponses, resp, q.Length, key)
		}
		out[key] = v.(float64)
	}
	return out, nil
}

// ValidateResponses checks an already decoded response set.
func (r *Rubric) ValidateResponses(resp Respondent, answers Responses) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponses, err)
	}
	_, err = r.ParseResponses(resp, raw)
	return err
}

func (r *Rubric) responseSchema(resp Respondent) (*jsonschema.Schema, error) {
	r.schemaOnce.Do(func() {
		r.schemas = make(map[Respondent]*jsonschema.Schema, 2)
		for _, who := range []Respondent{Parent, Teacher} {
			sch, err := compileResponseSchema(who, r.MaxAnswer)
			if err != nil {
				r.schemaErr = err
				return
			}
			r.schemas[who] = sch
		}
	})
	if r.schemaErr != nil {
		return nil, r.schemaErr
	}
	return r.schemas[resp], nil
}

func compileResponseSchema(resp Respondent, maxAnswer float64) (*jsonschema.Schema, error) {
	def := map[string]any{
		"type":          "object",
		"minProperties": 1,
		"propertyNames": map[string]any{
			"pattern": `^q[1-9][0-9]*$`,
		},
		"additionalProperties": map[string]any{
			"type":    "number",
			"minimum": 0,
			"maximum": maxAnswer,
		},
	}

	// The compiler wants plain decoded JSON values, not Go ints.
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}
	var parsed any
	if err := json.Unmarshal(defBytes, &parsed); err != nil {
		return nil, fmt.Errorf("parse response schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s-responses.json", resp)
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add response schema: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return sch, nil
}
