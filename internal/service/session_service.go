package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/pkg/crypto"
	"github.com/prn-tf/timebucket/internal/repository"
)

// SessionService issues and verifies opaque session tokens.
// Only a keyed hash of each token is stored; validated lookups are cached
// for at most CacheTTL.
type SessionService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	hasher      *crypto.TokenHasher
	cache       repository.Cache
	config      SessionConfig
	clock       clock.Clock
	logger      zerolog.Logger
}

// SessionConfig contains session lifetime settings.
type SessionConfig struct {
	// TTL is the lifetime of an issued session.
	TTL time.Duration

	// CacheTTL bounds how long a validated token skips the database.
	// Zero disables caching.
	CacheTTL time.Duration
}

// NewSessionService creates a new SessionService. cache may be nil.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	hasher *crypto.TokenHasher,
	cache repository.Cache,
	config SessionConfig,
	clk clock.Clock,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		hasher:      hasher,
		cache:       cache,
		config:      config,
		clock:       clk,
		logger:      logger.With().Str("service", "session").Logger(),
	}
}

// IssueSessionInput contains the data needed to open a session.
type IssueSessionInput struct {
	UserID    uuid.UUID
	IPAddress string
	UserAgent string

	// TTL overrides the configured lifetime when positive.
	TTL time.Duration
}

// IssuedSession is a freshly opened session. Token is only available here.
type IssuedSession struct {
	Token   string
	Session *domain.Session
}

// Issue opens a session for an existing user.
func (s *SessionService) Issue(ctx context.Context, input IssueSessionInput) (*IssuedSession, error) {
	token, err := crypto.GenerateSessionToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate session token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	ttl := s.config.TTL
	if input.TTL > 0 {
		ttl = input.TTL
	}
	now := s.clock.Now()

	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    input.UserID,
		TokenHash: s.hasher.Hash(token),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", input.UserID.String()).Msg("failed to create session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", input.UserID.String()).
		Str("session_id", session.ID.String()).
		Time("expires_at", session.ExpiresAt).
		Msg("session issued")

	return &IssuedSession{Token: token, Session: session}, nil
}

// Authenticate resolves a presented token to its user.
// Unknown, malformed and expired tokens all yield ErrInvalidSession.
func (s *SessionService) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	token, err := crypto.ParseSessionToken(token)
	if err != nil {
		return uuid.Nil, ErrInvalidSession
	}
	hash := s.hasher.Hash(token)
	key := repository.CacheKeys.SessionToken(hash)

	if userID, ok := s.cached(ctx, key); ok {
		return userID, nil
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return uuid.Nil, ErrInvalidSession
		}
		s.logger.Error().Err(err).Msg("failed to look up session")
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.clock.Now()
	if session.IsExpired(now) {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Warn().Err(err).Str("session_id", session.ID.String()).Msg("failed to delete expired session")
		}
		return uuid.Nil, ErrInvalidSession
	}

	s.remember(ctx, key, session, now)
	return session.UserID, nil
}

// Revoke ends the session behind token. Unknown tokens are ignored.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	token, err := crypto.ParseSessionToken(token)
	if err != nil {
		return nil
	}
	hash := s.hasher.Hash(token)

	session, err := s.sessionRepo.GetByTokenHash(ctx, hash)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return nil
	case err != nil:
		s.logger.Error().Err(err).Msg("failed to look up session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.forget(ctx, repository.CacheKeys.SessionToken(hash))

	s.logger.Info().
		Str("user_id", session.UserID.String()).
		Str("session_id", session.ID.String()).
		Msg("session revoked")
	return nil
}

// RevokeAll ends every session of a user. Cached lookups expire on their own
// within CacheTTL.
func (s *SessionService) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.sessionRepo.DeleteByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to revoke sessions")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.logger.Info().Str("user_id", userID.String()).Int64("count", n).Msg("sessions revoked")
	return n, nil
}

// PurgeExpired deletes every session past its expiry.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to purge expired sessions")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("expired sessions purged")
	}
	return n, nil
}

func (s *SessionService) cached(ctx context.Context, key string) (uuid.UUID, bool) {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return uuid.Nil, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("session cache read failed")
		}
		return uuid.Nil, false
	}

	userID, err := uuid.ParseBytes(raw)
	if err != nil {
		s.forget(ctx, key)
		return uuid.Nil, false
	}
	return userID, true
}

// remember caches the lookup, never past the session's own expiry.
func (s *SessionService) remember(ctx context.Context, key string, session *domain.Session, now time.Time) {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return
	}

	ttl := s.config.CacheTTL
	if left := session.ExpiresAt.Sub(now); left < ttl {
		ttl = left
	}
	if ttl <= 0 {
		return
	}

	if err := s.cache.Set(ctx, key, []byte(session.UserID.String()), ttl); err != nil {
		s.logger.Warn().Err(err).Msg("session cache write failed")
	}
}

func (s *SessionService) forget(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("session cache delete failed")
	}
}
