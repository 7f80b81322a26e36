package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/testutil"
)

func newUseCase(store *testutil.Store) *UseCase {
	return New(store.Users(), store.Sessions(), Config{
		Secret:     "test-secret",
		Issuer:     "taskhub-test",
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
}

func TestRegister(t *testing.T) {
	store := testutil.NewStore()
	uc := newUseCase(store)
	ctx := context.Background()

	user, err := uc.Register(ctx, "alice", "alice@example.com", "s3cret!")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "s3cret!", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret!")))

	t.Run("duplicates conflict", func(t *testing.T) {
		_, err := uc.Register(ctx, "alice", "other@example.com", "s3cret!")
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)

		_, err = uc.Register(ctx, "alice2", "alice@example.com", "s3cret!")
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := uc.Register(ctx, "al", "al@example.com", "s3cret!")
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		_, err = uc.Register(ctx, "albert", "not-an-email", "s3cret!")
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		_, err = uc.Register(ctx, "albert", "albert@example.com", "123")
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	})
}

func TestLoginAndAuthenticate(t *testing.T) {
	store := testutil.NewStore()
	uc := newUseCase(store)
	ctx := context.Background()

	user, err := uc.Register(ctx, "alice", "alice@example.com", "s3cret!")
	require.NoError(t, err)

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		_, err := uc.Login(ctx, "alice", "nope", "")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		_, err = uc.Login(ctx, "nobody", "s3cret!", "")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	token, err := uc.Login(ctx, "alice", "s3cret!", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, user.ID, token.User.ID)

	session, err := uc.Authenticate(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, "alice", session.Username)

	t.Run("token carries user and session ids", func(t *testing.T) {
		claims := &Claims{}
		_, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, claims)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, session.ID, claims.SessionID)
		assert.Equal(t, "taskhub-test", claims.Issuer)
	})

	t.Run("refresh issues a token for the same session", func(t *testing.T) {
		refreshed, err := uc.Refresh(ctx, session.ID)
		require.NoError(t, err)
		again, err := uc.Authenticate(ctx, refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, session.ID, again.ID)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		require.NoError(t, uc.Logout(ctx, session.ID))
		_, err := uc.Authenticate(ctx, token.AccessToken)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = uc.Refresh(ctx, session.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestAuthenticate_RejectsForeignTokens(t *testing.T) {
	store := testutil.NewStore()
	uc := newUseCase(store)
	ctx := context.Background()

	_, err := uc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    "u",
		SessionID: "s",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskhub-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = uc.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	orphan, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    "u",
		SessionID: "missing",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskhub-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = uc.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
