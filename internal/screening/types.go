package screening

// Category is one of the four screened specific learning difficulties.
type Category string

const (
	Dyslexia    Category = "dyslexia"
	Dyscalculia Category = "dyscalculia"
	Dysgraphia  Category = "dysgraphia"
	Dyspraxia   Category = "dyspraxia"
)

// Categories lists every category in reporting order.
var Categories = []Category{Dyslexia, Dyscalculia, Dysgraphia, Dyspraxia}

// Respondent identifies who filled in a questionnaire.
type Respondent string

const (
	Parent  Respondent = "parent"
	Teacher Respondent = "teacher"
)

// RiskTier is the overall screening outcome.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Responses maps question keys ("q1", "q2", ...) to answer values.
type Responses map[string]float64

// Probabilities maps each category to a score in [0, 1].
type Probabilities map[Category]float64

// Max returns the highest category probability, or 0 if empty.
func (p Probabilities) Max() float64 {
	var m float64
	for _, v := range p {
		if v > m {
			m = v
		}
	}
	return m
}

// Result is the outcome of scoring one parent and one teacher response set.
type Result struct {
	Probabilities  Probabilities
	MaxProbability float64
	Risk           RiskTier

	// RequiresProfessionalAssessment is set when MaxProbability reaches the
	// lowest referral threshold of any category.
	RequiresProfessionalAssessment bool

	// Flagged lists the categories at or above their referral threshold,
	// in reporting order.
	Flagged []Category

	// Breakdown holds raw answer sums per questionnaire domain.
	Breakdown map[Respondent]map[string]float64
}
