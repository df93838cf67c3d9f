package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Service. Tokens are opaque strings handed out
// by IssueToken or on account creation.
type Memory struct {
	mu      sync.Mutex
	byEmail map[string]string // lower-cased email -> uid
	emails  map[string]string // uid -> email
	tokens  map[string]string // token -> uid

	// OnCreate, when set, receives each new account and its first token.
	OnCreate func(uid, email, token string)
}

// NewMemory returns an empty in-memory identity provider.
func NewMemory() *Memory {
	return &Memory{
		byEmail: make(map[string]string),
		emails:  make(map[string]string),
		tokens:  make(map[string]string),
	}
}

func (m *Memory) VerifyIDToken(_ context.Context, idToken string) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uid, ok := m.tokens[idToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &Token{UID: uid, Email: m.emails[uid]}, nil
}

func (m *Memory) CreateUser(_ context.Context, u NewUser) (string, error) {
	if err := validateNewUser(u); err != nil {
		return "", err
	}

	m.mu.Lock()
	key := strings.ToLower(u.Email)
	if _, exists := m.byEmail[key]; exists {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrEmailExists, u.Email)
	}
	uid := uuid.NewString()
	m.byEmail[key] = uid
	m.emails[uid] = u.Email
	token := m.issueLocked(uid)
	hook := m.OnCreate
	m.mu.Unlock()

	if hook != nil {
		hook(uid, u.Email, token)
	}
	return uid, nil
}

// IssueToken returns a new token for uid. The uid need not have been
// created through CreateUser.
func (m *Memory) IssueToken(uid string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issueLocked(uid)
}

// Revoke invalidates a token.
func (m *Memory) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}

func (m *Memory) issueLocked(uid string) string {
	token := "mem-" + uuid.NewString()
	m.tokens[token] = uid
	return token
}
