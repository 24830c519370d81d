package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/timebucket/internal/cache/memory"
	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/lock"
	"github.com/prn-tf/timebucket/internal/pkg/crypto"
	"github.com/prn-tf/timebucket/internal/repository"
)

func newSessionService(t *testing.T, f *fixture, cache repository.Cache, cacheTTL time.Duration) *SessionService {
	t.Helper()
	hasher, err := crypto.NewTokenHasher("test-secret")
	require.NoError(t, err)
	repos := f.store.repos()
	return NewSessionService(
		repos.Session,
		repos.User,
		hasher,
		cache,
		SessionConfig{TTL: 24 * time.Hour, CacheTTL: cacheTTL},
		f.clock,
		zerolog.Nop(),
	)
}

func TestSessionService_IssueAndAuthenticate(t *testing.T) {
	f := newFixture()
	svc := newSessionService(t, f, nil, 0)
	ctx := context.Background()
	user := f.user(1990)

	issued, err := svc.Issue(ctx, IssueSessionInput{UserID: user.ID, IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.NotEqual(t, issued.Token, issued.Session.TokenHash)
	assert.Equal(t, testNow.Add(24*time.Hour), issued.Session.ExpiresAt)

	got, err := svc.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got)

	_, err = svc.Issue(ctx, IssueSessionInput{UserID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSessionService_Authenticate_Rejects(t *testing.T) {
	f := newFixture()
	svc := newSessionService(t, f, nil, 0)
	ctx := context.Background()
	user := f.user(1990)

	issued, err := svc.Issue(ctx, IssueSessionInput{UserID: user.ID, TTL: time.Hour})
	require.NoError(t, err)

	other, err := crypto.GenerateSessionToken()
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":     "",
		"malformed": "not a token",
		"unknown":   other,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		_, err := svc.Authenticate(ctx, issued.Token)
		assert.ErrorIs(t, err, ErrInvalidSession)
		assert.Empty(t, f.store.sessions)
	})
}

func TestSessionService_Cache(t *testing.T) {
	f := newFixture()
	cache := memory.NewCache(time.Minute)
	defer cache.Stop()
	svc := newSessionService(t, f, cache, time.Minute)
	ctx := context.Background()
	user := f.user(1990)

	issued, err := svc.Issue(ctx, IssueSessionInput{UserID: user.ID})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	// Served from cache even after the row is gone.
	f.store.sessions = map[uuid.UUID]*domain.Session{}
	got, err := svc.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got)
}

func TestSessionService_Revoke(t *testing.T) {
	f := newFixture()
	cache := memory.NewCache(time.Minute)
	defer cache.Stop()
	svc := newSessionService(t, f, cache, time.Minute)
	ctx := context.Background()
	user := f.user(1990)

	issued, err := svc.Issue(ctx, IssueSessionInput{UserID: user.ID})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, issued.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, issued.Token))
	assert.Zero(t, cache.Len())

	_, err = svc.Authenticate(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	// Idempotent.
	assert.NoError(t, svc.Revoke(ctx, issued.Token))
	assert.NoError(t, svc.Revoke(ctx, "garbage"))
}

func TestSessionService_RevokeAllAndPurge(t *testing.T) {
	f := newFixture()
	svc := newSessionService(t, f, nil, 0)
	ctx := context.Background()
	alice := f.user(1990)
	bob := f.user(1985)

	for i := 0; i < 2; i++ {
		_, err := svc.Issue(ctx, IssueSessionInput{UserID: alice.ID})
		require.NoError(t, err)
	}
	_, err := svc.Issue(ctx, IssueSessionInput{UserID: bob.ID, TTL: time.Minute})
	require.NoError(t, err)
	kept, err := svc.Issue(ctx, IssueSessionInput{UserID: bob.ID})
	require.NoError(t, err)

	n, err := svc.RevokeAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	f.clock.Advance(time.Minute)
	n, err = svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.Authenticate(ctx, kept.Token)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got)
}

func TestSessionSweeper_RunOnce(t *testing.T) {
	f := newFixture()
	svc := newSessionService(t, f, nil, 0)
	ctx := context.Background()
	user := f.user(1990)

	_, err := svc.Issue(ctx, IssueSessionInput{UserID: user.ID, TTL: time.Minute})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)

	locker := lock.NewMemoryLocker()
	defer locker.Close()
	sweeper := NewSessionSweeper(svc, locker, time.Hour, zerolog.Nop())

	t.Run("skips while another instance holds the lock", func(t *testing.T) {
		held, err := locker.Acquire(ctx, lock.Keys.SessionPurge(), "other-instance", time.Minute)
		require.NoError(t, err)
		require.True(t, held)

		result := sweeper.RunOnce(ctx)
		assert.True(t, result.Skipped)
		assert.Len(t, f.store.sessions, 1)

		_, err = locker.Release(ctx, lock.Keys.SessionPurge(), "other-instance")
		require.NoError(t, err)
	})

	t.Run("deletes expired sessions", func(t *testing.T) {
		result := sweeper.RunOnce(ctx)
		assert.False(t, result.Skipped)
		assert.Equal(t, int64(1), result.Deleted)
		assert.Empty(t, f.store.sessions)

		held, err := locker.IsHeld(ctx, lock.Keys.SessionPurge())
		require.NoError(t, err)
		assert.False(t, held)
	})
}

func TestSessionSweeper_StartStop(t *testing.T) {
	f := newFixture()
	svc := newSessionService(t, f, nil, 0)

	disabled := NewSessionSweeper(svc, lock.NewNoOpLocker(), 0, zerolog.Nop())
	disabled.Start()
	disabled.Stop()

	sweeper := NewSessionSweeper(svc, lock.NewNoOpLocker(), time.Hour, zerolog.Nop())
	sweeper.Start()
	sweeper.Start()
	sweeper.Stop()
	sweeper.Stop()
}
