package profiles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/sldscreen/internal/identity"
	"github.com/abhisek/sldscreen/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(identity.NewMemory(), st.UserRepo(), st.ChildRepo())
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	uid, err := svc.Register(ctx, RegisterInput{
		Email:    "parent@example.com",
		Password: "secret1",
		Name:     "Pat",
		Phone:    "+15550100",
	})
	require.NoError(t, err)

	u, err := svc.User(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, RoleParent, u.Role)
	assert.Equal(t, "Pat", u.Name)
	assert.Equal(t, "+15550100", u.Phone)
	assert.False(t, u.CreatedAt.IsZero())

	uid, err = svc.Register(ctx, RegisterInput{Email: "teacher@example.com", Password: "secret1", Role: "Teacher"})
	require.NoError(t, err)
	u, err = svc.User(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, u.Role)
}

func TestRegister_Rejects(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Register(ctx, RegisterInput{Email: "x@example.com", Password: "secret1", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterInput{Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterInput{Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterInput{Email: "x@example.com", Password: "123"})
	assert.ErrorIs(t, err, identity.ErrInvalidUser)

	_, err = svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, identity.ErrEmailExists)
}

func TestAddChild_AgeBounds(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	tests := []struct {
		age     int
		wantErr bool
	}{
		{7, true},
		{8, false},
		{10, false},
		{12, false},
		{13, true},
		{0, true},
	}
	for _, tt := range tests {
		c, err := svc.AddChild(ctx, "p1", ChildInput{Name: "Asha", Age: tt.age, Grade: "4"})
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAge, "age %d", tt.age)
			assert.Equal(t, "child age must be between 8 and 12 years", err.Error())
			continue
		}
		require.NoError(t, err, "age %d", tt.age)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "p1", c.ParentID)
	}
}

func TestAddChild_RequiresName(t *testing.T) {
	_, err := newTestService(t).AddChild(context.Background(), "p1", ChildInput{Name: "  ", Age: 9})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChildren(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	kids, err := svc.Children(ctx, "p1")
	require.NoError(t, err)
	assert.NotNil(t, kids)
	assert.Empty(t, kids)

	_, err = svc.AddChild(ctx, "p1", ChildInput{Name: "Asha", Age: 9, DateOfBirth: "2016-04-01"})
	require.NoError(t, err)
	_, err = svc.AddChild(ctx, "p2", ChildInput{Name: "Ravi", Age: 11})
	require.NoError(t, err)

	kids, err = svc.Children(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "Asha", kids[0].Name)
	assert.Equal(t, "2016-04-01", kids[0].DateOfBirth)
}
