package screening

import "math"

// Scorer turns questionnaire answers into category probabilities.
type Scorer struct {
	rubric *Rubric
}

// NewScorer creates a Scorer for the given rubric. A nil rubric selects
// the embedded default.
func NewScorer(r *Rubric) *Scorer {
	if r == nil {
		r = DefaultRubric()
	}
	return &Scorer{rubric: r}
}

// Rubric returns the rubric the scorer was built with.
func (s *Scorer) Rubric() *Rubric {
	return s.rubric
}

// Score computes category probabilities, the risk tier, and the referral
// flag for one parent and one teacher response set.
func (s *Scorer) Score(parent, teacher Responses) Result {
	parentQ := s.rubric.Questionnaires[Parent]
	teacherQ := s.rubric.Questionnaires[Teacher]

	res := Result{
		Probabilities: make(Probabilities, len(Categories)),
		Breakdown: map[Respondent]map[string]float64{
			Parent:  domainSums(parentQ, parent),
			Teacher: domainSums(teacherQ, teacher),
		},
	}

	for _, c := range Categories {
		spec := s.rubric.Categories[c]

		var sum float64
		if spec.Parent != "" {
			sum += res.Breakdown[Parent][spec.Parent]
		}
		if spec.Teacher != "" {
			sum += res.Breakdown[Teacher][spec.Teacher]
		}

		p := math.Min(sum/spec.Divisor, 1.0)
		res.Probabilities[c] = p
		if p >= spec.Threshold {
			res.Flagged = append(res.Flagged, c)
		}
	}

	res.MaxProbability = res.Probabilities.Max()
	res.Risk = s.rubric.Tiers.Tier(res.MaxProbability)
	res.RequiresProfessionalAssessment = res.MaxProbability >= s.rubric.minThreshold()

	return res
}

// minThreshold is the lowest referral threshold across categories.
func (r *Rubric) minThreshold() float64 {
	lowest := math.Inf(1)
	for _, c := range Categories {
		if spec, ok := r.Categories[c]; ok && spec.Threshold < lowest {
			lowest = spec.Threshold
		}
	}
	return lowest
}

func domainSums(q Questionnaire, resp Responses) map[string]float64 {
	out := make(map[string]float64, len(q.Domains))
	for name, rg := range q.Domains {
		out[name] = rg.Sum(resp)
	}
	return out
}
