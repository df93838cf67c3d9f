package screening

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed rubric.yaml
var defaultRubricYAML []byte

// Range is a 1-based, inclusive span of question numbers.
type Range struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Len returns the number of questions in the range.
func (r Range) Len() int {
	return r.To - r.From + 1
}

// Sum adds the answers for every question in the range. Missing answers
// count as zero.
func (r Range) Sum(resp Responses) float64 {
	var total float64
	for i := r.From; i <= r.To; i++ {
		total += resp[QuestionKey(i)]
	}
	return total
}

// Questionnaire describes one respondent's question set.
type Questionnaire struct {
	Length  int              `yaml:"length"`
	Domains map[string]Range `yaml:"domains"`
}

// DomainNames returns the domain names sorted by their first question.
func (q Questionnaire) DomainNames() []string {
	names := make([]string, 0, len(q.Domains))
	for name := range q.Domains {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return q.Domains[names[i]].From < q.Domains[names[j]].From
	})
	return names
}

// CategorySpec defines how a category probability is derived.
type CategorySpec struct {
	Description string  `yaml:"description"`
	Label       string  `yaml:"label"`
	Threshold   float64 `yaml:"threshold"`
	Divisor     float64 `yaml:"divisor"`
	Parent      string  `yaml:"parent"`
	Teacher     string  `yaml:"teacher"`
}

// Tiers holds the lower bounds of the medium and high risk tiers.
type Tiers struct {
	Medium float64 `yaml:"medium"`
	High   float64 `yaml:"high"`
}

// Tier maps a maximum category probability to a risk tier.
func (t Tiers) Tier(max float64) RiskTier {
	switch {
	case max >= t.High:
		return RiskHigh
	case max >= t.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Rubric is the full scoring configuration.
type Rubric struct {
	MaxAnswer      float64                     `yaml:"max_answer"`
	Questionnaires map[Respondent]Questionnaire `yaml:"questionnaires"`
	Categories     map[Category]CategorySpec   `yaml:"categories"`
	Tiers          Tiers                       `yaml:"tiers"`

	schemaOnce sync.Once
	schemas    map[Respondent]*jsonschema.Schema
	schemaErr  error
}

var (
	defaultOnce   sync.Once
	defaultRubric *Rubric
)

// DefaultRubric returns the embedded rubric. It panics if the embedded
// file is invalid, which is a build defect.
func DefaultRubric() *Rubric {
	defaultOnce.Do(func() {
		r, err := LoadRubric(defaultRubricYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded rubric: %v", err))
		}
		defaultRubric = r
	})
	return defaultRubric
}

// LoadRubric parses and validates a YAML rubric.
func LoadRubric(data []byte) (*Rubric, error) {
	var r Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	if r.MaxAnswer == 0 {
		r.MaxAnswer = 1
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadRubricFile reads a rubric from disk. An empty path yields the
// embedded default.
func LoadRubricFile(path string) (*Rubric, error) {
	if path == "" {
		return DefaultRubric(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric %s: %w", path, err)
	}
	return LoadRubric(data)
}

// Validate checks structural consistency of the rubric.
func (r *Rubric) Validate() error {
	var errs []error

	if r.MaxAnswer < 0 {
		errs = append(errs, fmt.Errorf("max_answer must be positive, got %v", r.MaxAnswer))
	}

	for _, resp := range []Respondent{Parent, Teacher} {
		q, ok := r.Questionnaires[resp]
		if !ok {
			errs = append(errs, fmt.Errorf("missing %s questionnaire", resp))
			continue
		}
		if q.Length <= 0 {
			errs = append(errs, fmt.Errorf("%s questionnaire: length must be positive", resp))
		}
		for name, rg := range q.Domains {
			if rg.From < 1 || rg.To < rg.From || rg.To > q.Length {
				errs = append(errs, fmt.Errorf("%s domain %q: invalid range %d-%d (length %d)",
					resp, name, rg.From, rg.To, q.Length))
			}
		}
	}

	for _, c := range Categories {
		spec, ok := r.Categories[c]
		if !ok {
			errs = append(errs, fmt.Errorf("missing category %q", c))
			continue
		}
		if spec.Divisor <= 0 {
			errs = append(errs, fmt.Errorf("category %q: divisor must be positive", c))
		}
		if spec.Threshold <= 0 || spec.Threshold > 1 {
			errs = append(errs, fmt.Errorf("category %q: threshold must be in (0, 1]", c))
		}
		if spec.Parent == "" && spec.Teacher == "" {
			errs = append(errs, fmt.Errorf("category %q: no contributing domain", c))
		}
		if spec.Parent != "" {
			if _, ok := r.Questionnaires[Parent].Domains[spec.Parent]; !ok {
				errs = append(errs, fmt.Errorf("category %q: unknown parent domain %q", c, spec.Parent))
			}
		}
		if spec.Teacher != "" {
			if _, ok := r.Questionnaires[Teacher].Domains[spec.Teacher]; !ok {
				errs = append(errs, fmt.Errorf("category %q: unknown teacher domain %q", c, spec.Teacher))
			}
		}
	}
	for c := range r.Categories {
		if !isKnownCategory(c) {
			errs = append(errs, fmt.Errorf("unknown category %q", c))
		}
	}

	if !(r.Tiers.Medium > 0 && r.Tiers.Medium < r.Tiers.High && r.Tiers.High <= 1) {
		errs = append(errs, fmt.Errorf("tiers must satisfy 0 < medium < high <= 1, got medium=%v high=%v",
			r.Tiers.Medium, r.Tiers.High))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid rubric: %w", errors.Join(errs...))
	}
	return nil
}

func isKnownCategory(c Category) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// QuestionKey returns the response key for question n.
func QuestionKey(n int) string {
	return fmt.Sprintf("q%d", n)
}
