package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paper-atlas/storage"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	sealer, err := NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return NewAuthService(storage.NewMemoryStore(), sealer, "jwt-secret", time.Hour, zap.NewNop())
}

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer(make([]byte, 32))
	require.NoError(t, err)

	a, err := s.Seal("sk-secret")
	require.NoError(t, err)
	b, err := s.Seal("sk-secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must be random")
	assert.NotContains(t, a, "sk-secret")

	plain, err := s.Open(a)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", plain)

	other, err := NewSealer(append(make([]byte, 31), 1))
	require.NoError(t, err)
	_, err = other.Open(a)
	assert.Error(t, err)

	_, err = NewSealer([]byte("short"))
	assert.Error(t, err)
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	a := newAuthService(t)
	ctx := context.Background()

	user, token, err := a.Register(ctx, "Ada@Example.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	got, err := a.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, _, err = a.Register(ctx, "ada@example.org", "another password")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, _, err = a.Login(ctx, "ada@example.org", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidLogin)

	_, token, err = a.Login(ctx, "ada@example.org", "correct horse")
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, token)
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	a := newAuthService(t)
	var vErr *ValidationError

	_, _, err := a.Register(context.Background(), "not-an-email", "long enough")
	assert.True(t, errors.As(err, &vErr))

	_, _, err = a.Register(context.Background(), "ada@example.org", "short")
	assert.True(t, errors.As(err, &vErr))
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	a := newAuthService(t)
	ctx := context.Background()
	_, token, err := a.Register(ctx, "ada@example.org", "correct horse")
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := newAuthService(t)
	other.Secret = []byte("different")
	_, err = other.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSetAndClearAPIKey(t *testing.T) {
	a := newAuthService(t)
	ctx := context.Background()
	user, _, err := a.Register(ctx, "ada@example.org", "correct horse")
	require.NoError(t, err)

	require.NoError(t, a.SetAPIKey(ctx, user.ID, " sk-user ", "https://proxy.example/v1"))
	stored, err := a.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasAPIKey())
	assert.NotContains(t, stored.EncryptedAPIKey, "sk-user")
	plain, err := a.Sealer.Open(stored.EncryptedAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-user", plain)

	require.NoError(t, a.ClearAPIKey(ctx, user.ID))
	stored, err = a.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasAPIKey())

	var vErr *ValidationError
	assert.True(t, errors.As(a.SetAPIKey(ctx, user.ID, "", ""), &vErr))
}
