package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Bearer   padded  ", "padded", true},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwdw==", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, "header %q", tt.header)
		assert.Equal(t, tt.want, got, "header %q", tt.header)
	}
}

func TestMemory_CreateAndVerify(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var (
		hookUID, hookToken string
	)
	m.OnCreate = func(uid, email, token string) {
		hookUID, hookToken = uid, token
		assert.Equal(t, "parent@example.com", email)
	}

	uid, err := m.CreateUser(ctx, NewUser{Email: "parent@example.com", Password: "secret1", DisplayName: "Pat"})
	require.NoError(t, err)
	require.NotEmpty(t, uid)
	assert.Equal(t, uid, hookUID)

	tok, err := m.VerifyIDToken(ctx, hookToken)
	require.NoError(t, err)
	assert.Equal(t, uid, tok.UID)
	assert.Equal(t, "parent@example.com", tok.Email)

	second := m.IssueToken(uid)
	assert.NotEqual(t, hookToken, second)
	m.Revoke(hookToken)
	_, err = m.VerifyIDToken(ctx, hookToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.VerifyIDToken(ctx, second)
	assert.NoError(t, err)
}

func TestMemory_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateUser(ctx, NewUser{Email: "T@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = m.CreateUser(ctx, NewUser{Email: "t@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestMemory_InvalidUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, u := range []NewUser{
		{Password: "secret1"},
		{Email: "not-an-email", Password: "secret1"},
		{Email: "a@example.com", Password: "123"},
	} {
		_, err := m.CreateUser(ctx, u)
		assert.ErrorIs(t, err, ErrInvalidUser, "user %+v", u)
	}
}

func TestMemory_UnknownToken(t *testing.T) {
	_, err := NewMemory().VerifyIDToken(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemory_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = m.CreateUser(ctx, NewUser{Email: "same@example.com", Password: "secret1"})
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrEmailExists)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestNew(t *testing.T) {
	svc, err := New(context.Background(), Config{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, svc)

	_, err = New(context.Background(), Config{Provider: "ldap"})
	assert.Error(t, err)
}
