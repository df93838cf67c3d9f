// Package assessment runs the screening lifecycle: creating an assessment
// for a child, collecting parent and teacher responses, and analysing them.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/sldscreen/internal/recommend"
	"github.com/abhisek/sldscreen/internal/screening"
	"github.com/abhisek/sldscreen/internal/store"
)

var (
	// ErrResponsesIncomplete is returned when analysing an assessment that
	// lacks a parent or teacher response set.
	ErrResponsesIncomplete = errors.New("both parent and teacher responses required")

	// ErrRoleNotAllowed is returned when the caller is neither a parent
	// nor a teacher.
	ErrRoleNotAllowed = errors.New("only parents and teachers can submit responses")

	// ErrRecommendations marks a failure of the recommendation model.
	ErrRecommendations = errors.New("recommendation generation failed")
)

// Service implements the assessment operations.
type Service struct {
	users       store.UserRepo
	children    store.ChildRepo
	assessments store.AssessmentRepo
	scorer      *screening.Scorer
	recommender *recommend.Service
	logger      *zap.Logger
	now         func() time.Time

	analyzer *Analyzer
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Users       store.UserRepo
	Children    store.ChildRepo
	Assessments store.AssessmentRepo
	Scorer      *screening.Scorer
	Recommender *recommend.Service
	Logger      *zap.Logger
}

// NewService creates an assessment service. A nil Scorer uses the default
// rubric, a nil Recommender produces no recommendations and a nil Logger
// discards output.
func NewService(d Deps) *Service {
	if d.Scorer == nil {
		d.Scorer = screening.NewScorer(nil)
	}
	if d.Recommender == nil {
		d.Recommender = recommend.NewService(nil, d.Scorer.Rubric(), recommend.DefaultConfig())
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		users:       d.Users,
		children:    d.Children,
		assessments: d.Assessments,
		scorer:      d.Scorer,
		recommender: d.Recommender,
		logger:      d.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create starts a pending assessment for an existing child.
func (s *Service) Create(ctx context.Context, creatorUID, childID string) (*store.Assessment, error) {
	if childID == "" {
		return nil, fmt.Errorf("child %q: %w", childID, store.ErrNotFound)
	}
	if _, err := s.children.Get(ctx, childID); err != nil {
		return nil, err
	}

	a := &store.Assessment{ChildID: childID, CreatedBy: creatorUID}
	if err := s.assessments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("assessment created",
		zap.String("assessment_id", a.ID),
		zap.String("child_id", childID),
		zap.String("created_by", creatorUID))
	return a, nil
}

// Submit stores the caller's responses in the slot matching their role and
// returns the respondent and updated assessment. When the assessment
// becomes ready and auto-analysis is running, it is queued for analysis.
func (s *Service) Submit(ctx context.Context, uid, assessmentID string, raw json.RawMessage) (screening.Respondent, *store.Assessment, error) {
	who, err := s.respondent(ctx, uid)
	if err != nil {
		return "", nil, err
	}

	resp, err := s.scorer.Rubric().ParseResponses(who, raw)
	if err != nil {
		return "", nil, err
	}

	a, err := s.assessments.SubmitResponses(ctx, assessmentID, who, resp)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("responses submitted",
		zap.String("assessment_id", assessmentID),
		zap.String("respondent", string(who)),
		zap.Int("answers", len(resp)),
		zap.String("status", string(a.Status)))

	if a.Status == store.StatusReadyForAnalysis && s.analyzer != nil {
		s.analyzer.Enqueue(assessmentID)
	}
	return who, a, nil
}

// respondent maps the caller's stored role to a questionnaire.
func (s *Service) respondent(ctx context.Context, uid string) (screening.Respondent, error) {
	u, err := s.users.Get(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: no profile for user %s", ErrRoleNotAllowed, uid)
	}
	if err != nil {
		return "", err
	}
	switch screening.Respondent(u.Role) {
	case screening.Parent:
		return screening.Parent, nil
	case screening.Teacher:
		return screening.Teacher, nil
	default:
		return "", fmt.Errorf("%w: role %q", ErrRoleNotAllowed, u.Role)
	}
}

// Analyze scores a complete assessment, asks for recommendations and
// stores the results.
func (s *Service) Analyze(ctx context.Context, assessmentID string) (*store.Results, error) {
	a, err := s.assessments.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if !a.Complete() {
		return nil, ErrResponsesIncomplete
	}

	scored := s.scorer.Score(a.ParentResponses, a.TeacherResponses)

	recs, err := s.recommender.Generate(ctx, recommend.InputFromResult(scored))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecommendations, err)
	}

	res := &store.Results{
		OverallRisk:                    scored.Risk,
		Probabilities:                  scored.Probabilities,
		Recommendations:                recs,
		GeneratedAt:                    s.now(),
		RequiresProfessionalAssessment: scored.RequiresProfessionalAssessment,
		Flagged:                        scored.Flagged,
		Breakdown:                      scored.Breakdown,
	}
	if _, err := s.assessments.SaveResults(ctx, assessmentID, a.UpdatedAt, res); err != nil {
		return nil, err
	}

	s.logger.Info("assessment analyzed",
		zap.String("assessment_id", assessmentID),
		zap.String("risk", string(scored.Risk)),
		zap.Float64("max_probability", scored.MaxProbability),
		zap.Bool("referral", scored.RequiresProfessionalAssessment),
		zap.Int("recommendations", len(recs)))
	return res, nil
}

// Get returns one assessment.
func (s *Service) Get(ctx context.Context, id string) (*store.Assessment, error) {
	return s.assessments.Get(ctx, id)
}

// ListForChild returns a child's assessments, newest first.
func (s *Service) ListForChild(ctx context.Context, childID string) ([]*store.Assessment, error) {
	out, err := s.assessments.ListByChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*store.Assessment{}
	}
	return out, nil
}
