package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.s.now()
	}
	query, args := builder().Insert(tableUsers).
		Columns("uid", "email", "role", "name", "phone", "created_at").
		Values(u.UID, u.Email, u.Role, u.Name, u.Phone, u.CreatedAt).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, uid string) (*User, error) {
	query, args := builder().
		Select("uid", "email", "role", "name", "phone", "created_at").
		From(entsql.Table(tableUsers)).
		Where(entsql.EQ("uid", uid)).
		Query()

	var u User
	err := r.s.db.QueryRowContext(ctx, query, args...).
		Scan(&u.UID, &u.Email, &u.Role, &u.Name, &u.Phone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", uid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
