package auth

import (
	"context"
	"testing"
	"time"

	"budget-tracker/internal/apperr"
	"budget-tracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *storage.DB) {
	t.Helper()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { db.Close() })
	return NewService(db, NewTokenIssuer("test-secret", time.Hour)), db
}

func TestSignup(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	token, user, err := svc.Signup(ctx, "a@x.io", "pw1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "a@x.io", user.Email)
	assert.NotEqual(t, "pw1", user.PasswordHash)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)

	count, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSignup_NormalizesEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, user, err := svc.Signup(ctx, "  Alice@Example.COM ", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, _, err = svc.Login(ctx, "ALICE@example.com", "pw1")
	assert.NoError(t, err)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "a@x.io", "pw1")
	require.NoError(t, err)

	token, user, err := svc.Signup(ctx, "a@x.io", "other")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, token)
	assert.Nil(t, user)

	count, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
		wantMsg  string
	}{
		{"missing email", "", "pw1", "email is required"},
		{"malformed email", "not-an-email", "pw1", "email is not a valid address"},
		{"missing password", "a@x.io", "", "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Signup(context.Background(), tt.email, tt.password)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, signedUp, err := svc.Signup(ctx, "a@x.io", "pw1")
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, "a@x.io", "pw1")
	require.NoError(t, err)
	assert.Equal(t, signedUp.ID, user.ID)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, signedUp.ID, id.UserID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "a@x.io", "pw1")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, "a@x.io", "nope")
	_, _, unknownEmail := svc.Login(ctx, "b@x.io", "pw1")
	_, _, empty := svc.Login(ctx, "", "")

	for _, err := range []error{wrongPassword, unknownEmail, empty} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	}
	// An attacker cannot tell which half was wrong.
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestVerify_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Verify("garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
