package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/metrics"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/repository"
)

// NotificationService reads and updates a user's notification preference.
type NotificationService struct {
	prefRepo repository.NotificationPreferenceRepository
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	prefRepo repository.NotificationPreferenceRepository,
	clk clock.Clock,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		prefRepo: prefRepo,
		clock:    clk,
		metrics:  m,
		logger:   logger.With().Str("service", "notification").Logger(),
	}
}

// UpdateNotificationInput carries a partial preference update. Nil fields are left unchanged.
type UpdateNotificationInput struct {
	UserID          uuid.UUID
	EmailEnabled    *bool
	SlackWebhookURL *string
	DigestTime      *string
	Events          map[string]bool
}

// Get returns the user's preference.
func (s *NotificationService) Get(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error) {
	pref, err := s.prefRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotificationPreferenceNotFound) {
			return nil, domain.ErrNotificationPreferenceNotFound
		}
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get notification preference")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return pref, nil
}

// Update applies a partial update to the user's preference.
func (s *NotificationService) Update(ctx context.Context, input UpdateNotificationInput) (*domain.NotificationPreference, error) {
	pref, err := s.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.EmailEnabled != nil {
		pref.EmailEnabled = *input.EmailEnabled
	}
	if input.SlackWebhookURL != nil {
		pref.SlackWebhookURL = strings.TrimSpace(*input.SlackWebhookURL)
	}
	if input.DigestTime != nil {
		pref.DigestTime = strings.TrimSpace(*input.DigestTime)
	}
	if input.Events != nil {
		pref.Events = input.Events
	}

	if v := domain.ValidateNotificationPreference(pref); v.HasErrors() {
		s.metrics.RecordValidationFailure("notification_preference")
		return nil, v
	}

	pref.UpdatedAt = s.clock.Now()
	if err := s.prefRepo.Update(ctx, pref); err != nil {
		if errors.Is(err, domain.ErrNotificationPreferenceNotFound) {
			return nil, domain.ErrNotificationPreferenceNotFound
		}
		s.logger.Error().Err(err).Str("user_id", input.UserID.String()).Msg("failed to update notification preference")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", input.UserID.String()).Msg("notification preference updated")
	return pref, nil
}
