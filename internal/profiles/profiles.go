// Package profiles manages registered parents and teachers and the child
// profiles they screen.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/sldscreen/internal/identity"
	"github.com/abhisek/sldscreen/internal/store"
)

// Roles a registered user may hold.
const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
)

// Screening is validated for children in this age range (inclusive).
const (
	MinChildAge = 8
	MaxChildAge = 12
)

var (
	// ErrInvalidInput is returned when a required field is missing or a
	// value is not allowed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAge is returned when a child is outside the screened age range.
	ErrInvalidAge = fmt.Errorf("child age must be between %d and %d years", MinChildAge, MaxChildAge)
)

// RegisterInput holds the details of a new parent or teacher account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string // defaults to "parent"
}

// ChildInput holds the details of a new child profile.
type ChildInput struct {
	Name        string
	Age         int
	Grade       string
	DateOfBirth string
}

// Service creates accounts and child profiles.
type Service struct {
	ids      identity.Service
	users    store.UserRepo
	children store.ChildRepo
}

// NewService creates a profile service.
func NewService(ids identity.Service, users store.UserRepo, children store.ChildRepo) *Service {
	return &Service{ids: ids, users: users, children: children}
}

// Register creates the identity account and then the stored profile. It
// returns the new user's uid.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Email = strings.TrimSpace(in.Email)
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = RoleParent
	}
	if role != RoleParent && role != RoleTeacher {
		return "", fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, RoleParent, RoleTeacher)
	}
	if in.Email == "" || in.Password == "" {
		return "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	uid, err := s.ids.CreateUser(ctx, identity.NewUser{
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: in.Name,
	})
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}

	u := &store.User{
		UID:   uid,
		Email: in.Email,
		Role:  role,
		Name:  in.Name,
		Phone: in.Phone,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", fmt.Errorf("store profile for %s: %w", uid, err)
	}
	return uid, nil
}

// User returns a registered user's profile.
func (s *Service) User(ctx context.Context, uid string) (*store.User, error) {
	return s.users.Get(ctx, uid)
}

// AddChild creates a child profile owned by parentUID.
func (s *Service) AddChild(ctx context.Context, parentUID string, in ChildInput) (*store.Child, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: child name is required", ErrInvalidInput)
	}
	if in.Age < MinChildAge || in.Age > MaxChildAge {
		return nil, ErrInvalidAge
	}

	c := &store.Child{
		ParentID:    parentUID,
		Name:        in.Name,
		Age:         in.Age,
		Grade:       in.Grade,
		DateOfBirth: in.DateOfBirth,
	}
	if err := s.children.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Children lists the children owned by parentUID, oldest profile first.
func (s *Service) Children(ctx context.Context, parentUID string) ([]*store.Child, error) {
	kids, err := s.children.ListByParent(ctx, parentUID)
	if err != nil {
		return nil, err
	}
	if kids == nil {
		kids = []*store.Child{}
	}
	return kids, nil
}
