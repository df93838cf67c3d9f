package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var childColumns = []string{"id", "parent_id", "name", "age", "grade", "date_of_birth", "created_at"}

type childRepo struct {
	s *Store
}

func (r *childRepo) Create(ctx context.Context, c *Child) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.s.now()

	query, args := builder().Insert(tableChildren).
		Columns(childColumns...).
		Values(c.ID, c.ParentID, c.Name, c.Age, c.Grade, c.DateOfBirth, c.CreatedAt).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	return nil
}

func (r *childRepo) Get(ctx context.Context, id string) (*Child, error) {
	query, args := builder().
		Select(childColumns...).
		From(entsql.Table(tableChildren)).
		Where(entsql.EQ("id", id)).
		Query()

	c, err := scanChild(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("child %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query child: %w", err)
	}
	return c, nil
}

func (r *childRepo) ListByParent(ctx context.Context, parentID string) ([]*Child, error) {
	query, args := builder().
		Select(childColumns...).
		From(entsql.Table(tableChildren)).
		Where(entsql.EQ("parent_id", parentID)).
		OrderBy("created_at").
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	var out []*Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChild(row rowScanner) (*Child, error) {
	var c Child
	if err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.Age, &c.Grade, &c.DateOfBirth, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
