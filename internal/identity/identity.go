// Package identity verifies bearer tokens and creates accounts with an
// external identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	// ErrInvalidToken is returned when a token is missing, malformed,
	// expired or unknown to the provider.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrEmailExists is returned when registering an email that already
	// has an account.
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidUser is returned when account details are rejected.
	ErrInvalidUser = errors.New("invalid user details")
)

// MinPasswordLength matches the identity provider's password policy.
const MinPasswordLength = 6

// Token is a verified identity.
type Token struct {
	UID   string
	Email string
}

// NewUser holds the details for account creation.
type NewUser struct {
	Email       string
	Password    string
	DisplayName string
}

// Service delegates identity operations to a provider.
type Service interface {
	// VerifyIDToken checks an ID token and returns the identity it carries.
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)

	// CreateUser registers an account and returns its uid.
	CreateUser(ctx context.Context, u NewUser) (string, error)
}

// Config selects and configures the identity provider.
type Config struct {
	// Provider is "firebase" or "mock".
	Provider string `toml:"provider"`

	// CredentialsFile is the service-account JSON for the firebase provider.
	CredentialsFile string `toml:"credentials_file"`

	// ProjectID overrides the project from the credentials.
	ProjectID string `toml:"project_id"`
}

// DefaultConfig returns the firebase provider with the conventional
// service-account file name.
func DefaultConfig() Config {
	return Config{
		Provider:        "firebase",
		CredentialsFile: "firebase-service-account.json",
	}
}

// New builds the Service named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Service, error) {
	switch cfg.Provider {
	case "firebase":
		return NewFirebase(ctx, cfg)
	case "mock":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown identity provider: %q", cfg.Provider)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}

func validateNewUser(u NewUser) error {
	if u.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: malformed email %q", ErrInvalidUser, u.Email)
	}
	if len(u.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, MinPasswordLength)
	}
	return nil
}
