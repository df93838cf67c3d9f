package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"google.golang.org/api/option"
)

// Firebase implements Service with the Firebase Admin SDK.
type Firebase struct {
	client *auth.Client
}

// NewFirebase initializes a Firebase app from a service-account file. An
// empty CredentialsFile falls back to Application Default Credentials.
func NewFirebase(ctx context.Context, cfg Config) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var conf *firebase.Config
	if cfg.ProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}
	tok, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := tok.Claims["email"].(string)
	return &Token{UID: tok.UID, Email: email}, nil
}

func (f *Firebase) CreateUser(ctx context.Context, u NewUser) (string, error) {
	if err := validateNewUser(u); err != nil {
		return "", err
	}

	params := (&auth.UserToCreate{}).
		Email(u.Email).
		Password(u.Password)
	if u.DisplayName != "" {
		params = params.DisplayName(u.DisplayName)
	}

	rec, err := f.client.CreateUser(ctx, params)
	switch {
	case err == nil:
		return rec.UID, nil
	case auth.IsEmailAlreadyExists(err):
		return "", fmt.Errorf("%w: %s", ErrEmailExists, u.Email)
	case errorutils.IsInvalidArgument(err):
		return "", fmt.Errorf("%w: %v", ErrInvalidUser, err)
	default:
		return "", fmt.Errorf("create firebase user: %w", err)
	}
}
