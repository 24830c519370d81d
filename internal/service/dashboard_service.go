package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/planner"
	"github.com/prn-tf/timebucket/internal/repository"
)

// DashboardService loads a user's plan and computes the dashboard views.
type DashboardService struct {
	userRepo   repository.UserRepository
	bucketRepo repository.TimeBucketRepository
	itemRepo   repository.BucketItemRepository
	clock      clock.Clock
	logger     zerolog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(
	userRepo repository.UserRepository,
	bucketRepo repository.TimeBucketRepository,
	itemRepo repository.BucketItemRepository,
	clk clock.Clock,
	logger zerolog.Logger,
) *DashboardService {
	return &DashboardService{
		userRepo:   userRepo,
		bucketRepo: bucketRepo,
		itemRepo:   itemRepo,
		clock:      clk,
		logger:     logger.With().Str("service", "dashboard").Logger(),
	}
}

// plan is one user's buckets and items, loaded together.
type plan struct {
	buckets []*domain.TimeBucket
	items   []*domain.BucketItem
}

// Summary returns bucket density, category distribution and completion statistics.
func (s *DashboardService) Summary(ctx context.Context, userID uuid.UUID) (*planner.Summary, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := planner.BuildSummary(p.buckets, p.items)
	return &summary, nil
}

// ReviewCompleted returns achievement rates and the completed items.
func (s *DashboardService) ReviewCompleted(ctx context.Context, userID uuid.UUID) (*planner.Review, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	review := planner.BuildReview(p.buckets, p.items)
	return &review, nil
}

// Report returns both dashboard views.
func (s *DashboardService) Report(ctx context.Context, userID uuid.UUID) (*planner.Report, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return planner.BuildReport(p.buckets, p.items), nil
}

// ActionsNow triages overdue and approaching items as of the user's local date.
// A user without a birthdate gets domain.ErrBirthdateRequired.
func (s *DashboardService) ActionsNow(ctx context.Context, userID uuid.UUID) (*planner.ActionsNow, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !user.HasBirthdate() {
		return planner.BuildActionsNow(user, nil, nil, user.Today(s.clock.Now()))
	}

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return planner.BuildActionsNow(user, p.buckets, p.items, user.Today(s.clock.Now()))
}

func (s *DashboardService) load(ctx context.Context, userID uuid.UUID) (*plan, error) {
	buckets, err := s.bucketRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list time buckets")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	items, err := s.itemRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list bucket items")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &plan{buckets: buckets, items: items}, nil
}
