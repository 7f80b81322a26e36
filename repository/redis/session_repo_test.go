package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
)

func newRepo(t *testing.T) (*miniredis.Miniredis, *sessionRepository) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, NewSessionRepository(client, time.Hour).(*sessionRepository)
}

func TestSessionRoundTrip(t *testing.T) {
	server, repo := newRepo(t)
	ctx := context.Background()

	session := &domain.Session{ID: "s-1", UserID: "u-1", Username: "alice"}
	require.NoError(t, repo.Save(ctx, session))

	got, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, server.TTL(sessionPrefix+"s-1") > 0)

	require.NoError(t, repo.Delete(ctx, "s-1"))
	_, err = repo.Get(ctx, "s-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionExpires(t *testing.T) {
	server, repo := newRepo(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Save(ctx, &domain.Session{ID: "s-1", UserID: "u-1", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	server.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "s-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionExtend(t *testing.T) {
	server, repo := newRepo(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Save(ctx, &domain.Session{ID: "s-1", UserID: "u-1", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	require.NoError(t, repo.Extend(ctx, "s-1", 2*time.Hour))
	assert.True(t, server.TTL(sessionPrefix+"s-1") > time.Hour)

	got, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.After(now.Add(time.Hour)))

	assert.ErrorIs(t, repo.Extend(ctx, "missing", time.Hour), domain.ErrSessionNotFound)
}

func TestSaveRejectsEmptySession(t *testing.T) {
	_, repo := newRepo(t)
	assert.ErrorIs(t, repo.Save(context.Background(), &domain.Session{}), domain.ErrInvalidPayload)
}
