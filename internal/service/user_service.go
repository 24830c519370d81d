package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/metrics"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/repository"
)

// UserService handles user provisioning and the profile of the signed-in user.
type UserService struct {
	userRepo repository.UserRepository
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	clk clock.Clock,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		clock:    clk,
		metrics:  m,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// Profile is a user together with the values derived from the birthdate.
// BirthYear and CurrentAge are nil while the birthdate is unknown.
type Profile struct {
	User       *domain.User
	BirthYear  *int
	CurrentAge *int
}

// CreateUserInput contains the data needed to provision a user.
type CreateUserInput struct {
	Email     string
	Birthdate *time.Time
	Timezone  string
	Provider  string
	UID       string
}

// UpdateProfileInput carries a partial profile update.
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	UserID uuid.UUID

	Birthdate  Optional[time.Time]
	Timezone   *string
	ValuesTags map[string]any
}

// ProviderIdentity is what an identity provider reports after sign-in.
type ProviderIdentity struct {
	Provider string
	UID      string
	Email    string
}

// =============================================================================
// Service Methods
// =============================================================================

// Create provisions a user and its default notification preference.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	now := s.clock.Now()

	user := domain.NewUser(input.Email, now)
	user.Birthdate = input.Birthdate
	user.Provider = strings.TrimSpace(input.Provider)
	user.UID = strings.TrimSpace(input.UID)
	if tz := strings.TrimSpace(input.Timezone); tz != "" {
		user.Timezone = tz
	}

	if err := s.validate(user, now); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.NewDomainError(domain.ErrUserAlreadyExists, "Email has already been taken", user.Email)
		}
		s.logger.Error().Err(err).Str("email", user.Email).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("provider", user.Provider).
		Msg("user created")

	return user, nil
}

// FindOrCreateByProvider returns the user linked to the external identity,
// creating it on first sign-in. created reports whether a new user was stored.
func (s *UserService) FindOrCreateByProvider(ctx context.Context, id ProviderIdentity) (user *domain.User, created bool, err error) {
	if id.Provider == "" || id.UID == "" || id.Email == "" {
		v := &domain.ValidationError{}
		for _, f := range []struct{ name, value string }{
			{"provider", id.Provider}, {"uid", id.UID}, {"email", id.Email},
		} {
			if strings.TrimSpace(f.value) == "" {
				v.Add(f.name, "can't be blank")
			}
		}
		return nil, false, v
	}

	user, err = s.userRepo.GetByProvider(ctx, id.Provider, id.UID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		s.logger.Error().Err(err).Str("provider", id.Provider).Msg("failed to look up provider identity")
		return nil, false, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user, err = s.Create(ctx, CreateUserInput{Email: id.Email, Provider: id.Provider, UID: id.UID})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// List returns a page of users ordered by creation time.
func (s *UserService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	result, err := s.userRepo.List(ctx, opts.Normalize())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// GetProfile returns the user's profile as of today in the user's timezone.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(user), nil
}

// UpdateProfile applies a partial update to birthdate, timezone and value tags.
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*Profile, error) {
	user, err := s.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	input.Birthdate.Apply(&user.Birthdate)
	if input.Timezone != nil {
		user.Timezone = strings.TrimSpace(*input.Timezone)
	}
	if input.ValuesTags != nil {
		user.ValuesTags = input.ValuesTags
	}

	now := s.clock.Now()
	if err := s.validate(user, now); err != nil {
		return nil, err
	}
	user.UpdatedAt = now

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("profile updated")
	return s.profile(user), nil
}

// Delete removes a user together with the whole plan.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to delete user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.logger.Info().Str("user_id", id.String()).Msg("user deleted")
	return nil
}

// validate checks the user as of the user's own local date.
func (s *UserService) validate(user *domain.User, now time.Time) error {
	v := domain.ValidateUser(user, user.Today(now))
	if v.HasErrors() {
		s.metrics.RecordValidationFailure("user")
		return v
	}
	return nil
}

func (s *UserService) profile(user *domain.User) *Profile {
	p := &Profile{User: user}
	if year, ok := user.BirthYear(); ok {
		p.BirthYear = &year
	}
	if age, ok := user.AgeOn(user.Today(s.clock.Now())); ok {
		p.CurrentAge = &age
	}
	return p
}
