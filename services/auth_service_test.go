package services

import (
	"context"
	"strings"
	"testing"

	"lorecrafter/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(testutil.NewStore(t))

	user, err := svc.Register(ctx, &RegisterInput{Username: "alice", Email: " Alice@Example.com ", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "pw", user.PasswordHash)

	_, err = svc.Register(ctx, &RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "other"})
	assert.ErrorIs(t, err, ErrConflict)

	for _, in := range []RegisterInput{
		{Email: "b@example.com", Password: "pw"},
		{Username: "b", Password: "pw"},
		{Username: "b", Email: "b@example.com"},
		{Username: "b", Email: "not-an-email", Password: "pw"},
		{Username: "b", Email: "b@example.com", Password: strings.Repeat("x", 73)},
	} {
		_, err := svc.Register(ctx, &in)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(testutil.NewStore(t))
	registered, err := svc.Register(ctx, &RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	user, err := svc.Login(ctx, &LoginInput{Email: "ALICE@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Login(ctx, &LoginInput{Email: "alice@example.com", Password: "nope"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, &LoginInput{Email: "nobody@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, &LoginInput{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrValidation)
}
