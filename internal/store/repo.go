package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/sldscreen/internal/screening"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("already exists")

// ErrStale is returned when a record changed after it was read.
var ErrStale = errors.New("modified since it was read")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact purpose match ("" = any)
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
}

// User is a registered parent or teacher.
type User struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// Child is a screened child profile owned by a parent.
type Child struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parentId"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	Grade       string    `json:"grade"`
	DateOfBirth string    `json:"dateOfBirth"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Status is the lifecycle state of an assessment.
type Status string

const (
	StatusPending          Status = "pending"
	StatusParentCompleted  Status = "parent_completed"
	StatusTeacherCompleted Status = "teacher_completed"
	StatusReadyForAnalysis Status = "ready_for_analysis"
	StatusAnalyzed         Status = "analyzed"
)

// Results is the stored outcome of analysing an assessment.
type Results struct {
	OverallRisk                    screening.RiskTier                          `json:"overallRisk"`
	Probabilities                  screening.Probabilities                     `json:"probabilities"`
	Recommendations                []string                                    `json:"recommendations"`
	GeneratedAt                    time.Time                                   `json:"generatedAt"`
	RequiresProfessionalAssessment bool                                        `json:"requiresProfessionalAssessment"`
	Flagged                        []screening.Category                        `json:"flagged,omitempty"`
	Breakdown                      map[screening.Respondent]map[string]float64 `json:"breakdown,omitempty"`
}

// Assessment pairs one parent and one teacher response set for a child.
type Assessment struct {
	ID               string              `json:"id"`
	ChildID          string              `json:"childId"`
	CreatedBy        string              `json:"createdBy"`
	Status           Status              `json:"status"`
	ParentResponses  screening.Responses `json:"parentResponses"`
	TeacherResponses screening.Responses `json:"teacherResponses"`
	Results          *Results            `json:"results,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	AnalyzedAt       *time.Time          `json:"analyzedAt,omitempty"`
}

// Complete reports whether both response sets are present.
func (a *Assessment) Complete() bool {
	return len(a.ParentResponses) > 0 && len(a.TeacherResponses) > 0
}

// submissionStatus derives the status after a respondent has submitted.
func (a *Assessment) submissionStatus(last screening.Respondent) Status {
	if a.Complete() {
		return StatusReadyForAnalysis
	}
	if last == screening.Teacher {
		return StatusTeacherCompleted
	}
	return StatusParentCompleted
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// UsageStat aggregates LLM usage for one purpose or model.
type UsageStat struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// UserRepo stores registered users.
type UserRepo interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, uid string) (*User, error)
}

// ChildRepo stores child profiles.
type ChildRepo interface {
	Create(ctx context.Context, c *Child) error
	Get(ctx context.Context, id string) (*Child, error)
	ListByParent(ctx context.Context, parentID string) ([]*Child, error)
}

// AssessmentRepo stores assessments and their results.
type AssessmentRepo interface {
	// Create inserts a new pending assessment with empty response sets.
	Create(ctx context.Context, a *Assessment) error

	Get(ctx context.Context, id string) (*Assessment, error)

	// ListByChild returns a child's assessments, newest first.
	ListByChild(ctx context.Context, childID string) ([]*Assessment, error)

	// SubmitResponses stores one respondent's answers and recomputes the
	// status in a single transaction. It returns the updated assessment.
	SubmitResponses(ctx context.Context, id string, who screening.Respondent, resp screening.Responses) (*Assessment, error)

	// SaveResults stores analysis results and marks the assessment analyzed.
	// It fails with ErrStale when the assessment's updated_at no longer
	// equals readAt.
	SaveResults(ctx context.Context, id string, readAt time.Time, res *Results) (*Assessment, error)
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]UsageStat, error)
	LLMUsageByModel(ctx context.Context) ([]UsageStat, error)
}
