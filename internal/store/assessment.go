package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/sldscreen/internal/screening"
)

var assessmentColumns = []string{
	"id", "child_id", "created_by", "status",
	"parent_responses", "teacher_responses", "results",
	"created_at", "updated_at", "analyzed_at",
}

type assessmentRepo struct {
	s *Store
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *assessmentRepo) Create(ctx context.Context, a *Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := r.s.now()
	a.Status = StatusPending
	a.ParentResponses = screening.Responses{}
	a.TeacherResponses = screening.Responses{}
	a.Results = nil
	a.AnalyzedAt = nil
	a.CreatedAt = now
	a.UpdatedAt = now

	query, args := builder().Insert(tableAssessments).
		Columns("id", "child_id", "created_by", "status", "parent_responses", "teacher_responses", "created_at", "updated_at").
		Values(a.ID, a.ChildID, a.CreatedBy, string(a.Status), "{}", "{}", now, now).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("child %s: %w", a.ChildID, ErrNotFound)
		}
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (r *assessmentRepo) Get(ctx context.Context, id string) (*Assessment, error) {
	return getAssessment(ctx, r.s.db, id)
}

func (r *assessmentRepo) ListByChild(ctx context.Context, childID string) ([]*Assessment, error) {
	query, args := builder().
		Select(assessmentColumns...).
		From(entsql.Table(tableAssessments)).
		Where(entsql.EQ("child_id", childID)).
		OrderBy(entsql.Desc("created_at")).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *assessmentRepo) SubmitResponses(ctx context.Context, id string, who screening.Respondent, resp screening.Responses) (*Assessment, error) {
	col, err := responsesColumn(who)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal responses: %w", err)
	}

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := r.s.now()
	query, args := builder().Update(tableAssessments).
		Set(col, string(payload)).
		Set("updated_at", now).
		Where(entsql.EQ("id", id)).
		Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update responses: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update responses: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}

	a, err := getAssessment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	a.Status = a.submissionStatus(who)
	query, args = builder().Update(tableAssessments).
		Set("status", string(a.Status)).
		Where(entsql.EQ("id", id)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (r *assessmentRepo) SaveResults(ctx context.Context, id string, readAt time.Time, res *Results) (*Assessment, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Lock the row before the staleness check.
	query, args := builder().Update(tableAssessments).
		Set("status", entsql.Expr("status")).
		Where(entsql.EQ("id", id)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("lock assessment: %w", err)
	}

	a, err := getAssessment(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !a.UpdatedAt.Equal(readAt) {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrStale)
	}

	now := r.s.now()
	query, args = builder().Update(tableAssessments).
		Set("results", string(payload)).
		Set("status", string(StatusAnalyzed)).
		Set("analyzed_at", now).
		Set("updated_at", now).
		Where(entsql.EQ("id", id)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}

	a.Results = res
	a.Status = StatusAnalyzed
	a.AnalyzedAt = &now
	a.UpdatedAt = now
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func getAssessment(ctx context.Context, q querier, id string) (*Assessment, error) {
	query, args := builder().
		Select(assessmentColumns...).
		From(entsql.Table(tableAssessments)).
		Where(entsql.EQ("id", id)).
		Query()

	a, err := scanAssessment(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}
	return a, nil
}

func scanAssessment(row rowScanner) (*Assessment, error) {
	var (
		a                       Assessment
		status                  string
		parentJSON, teacherJSON string
		resultsJSON             sql.NullString
		analyzedAt              sql.NullTime
	)
	err := row.Scan(&a.ID, &a.ChildID, &a.CreatedBy, &status,
		&parentJSON, &teacherJSON, &resultsJSON,
		&a.CreatedAt, &a.UpdatedAt, &analyzedAt)
	if err != nil {
		return nil, err
	}

	a.Status = Status(status)
	if err := json.Unmarshal([]byte(parentJSON), &a.ParentResponses); err != nil {
		return nil, fmt.Errorf("decode parent responses: %w", err)
	}
	if err := json.Unmarshal([]byte(teacherJSON), &a.TeacherResponses); err != nil {
		return nil, fmt.Errorf("decode teacher responses: %w", err)
	}
	if resultsJSON.Valid && resultsJSON.String != "" {
		a.Results = &Results{}
		if err := json.Unmarshal([]byte(resultsJSON.String), a.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		a.AnalyzedAt = &t
	}
	return &a, nil
}

func responsesColumn(who screening.Respondent) (string, error) {
	switch who {
	case screening.Parent:
		return "parent_responses", nil
	case screening.Teacher:
		return "teacher_responses", nil
	default:
		return "", fmt.Errorf("unknown respondent %q", who)
	}
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
