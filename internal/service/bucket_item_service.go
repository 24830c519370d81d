package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/metrics"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/repository"
)

// BucketItemService handles bucket item operations.
type BucketItemService struct {
	itemRepo   repository.BucketItemRepository
	bucketRepo repository.TimeBucketRepository
	userRepo   repository.UserRepository
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewBucketItemService creates a new BucketItemService.
func NewBucketItemService(
	itemRepo repository.BucketItemRepository,
	bucketRepo repository.TimeBucketRepository,
	userRepo repository.UserRepository,
	clk clock.Clock,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *BucketItemService {
	return &BucketItemService{
		itemRepo:   itemRepo,
		bucketRepo: bucketRepo,
		userRepo:   userRepo,
		clock:      clk,
		metrics:    m,
		logger:     logger.With().Str("service", "bucket_item").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateBucketItemInput contains the data needed to create an item.
// An empty Status means planned and a nil CostEstimate means 0.
type CreateBucketItemInput struct {
	UserID       uuid.UUID
	TimeBucketID uuid.UUID

	Title          string
	Description    string
	Category       domain.Category
	Difficulty     *domain.Level
	RiskLevel      *domain.Level
	Status         domain.ItemStatus
	ValueStatement string
	MotivationNote string
	CostEstimate   *int
	TargetYear     *int
	Tags           []string
	CompletedAt    *time.Time
}

// UpdateBucketItemInput carries a partial item update. Nil pointers and unset
// Optionals are left unchanged.
type UpdateBucketItemInput struct {
	UserID uuid.UUID
	ID     uuid.UUID

	Title          *string
	Description    *string
	Category       *domain.Category
	Difficulty     Optional[domain.Level]
	RiskLevel      Optional[domain.Level]
	Status         *domain.ItemStatus
	ValueStatement *string
	MotivationNote *string
	CostEstimate   Optional[int]
	TargetYear     Optional[int]
	Tags           []string
	CompletedAt    Optional[time.Time]
}

// =============================================================================
// Service Methods
// =============================================================================

// ListByTimeBucket returns the items of one of the user's buckets.
func (s *BucketItemService) ListByTimeBucket(ctx context.Context, userID, bucketID uuid.UUID) ([]*domain.BucketItem, error) {
	if _, err := s.bucket(ctx, userID, bucketID); err != nil {
		return nil, err
	}

	items, err := s.itemRepo.ListByTimeBucket(ctx, userID, bucketID)
	if err != nil {
		s.logger.Error().Err(err).Str("time_bucket_id", bucketID.String()).Msg("failed to list bucket items")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return items, nil
}

// Get returns one of the user's items.
func (s *BucketItemService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.BucketItem, error) {
	item, err := s.itemRepo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrBucketItemNotFound) {
			return nil, domain.ErrBucketItemNotFound
		}
		s.logger.Error().Err(err).Str("bucket_item_id", id.String()).Msg("failed to get bucket item")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return item, nil
}

// Create validates a new item against its bucket and stores it.
func (s *BucketItemService) Create(ctx context.Context, input CreateBucketItemInput) (*domain.BucketItem, error) {
	bucket, err := s.bucket(ctx, input.UserID, input.TimeBucketID)
	if err != nil {
		return nil, err
	}
	owner, err := s.owner(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	item := domain.NewBucketItem(bucket.ID, s.clock.Now())
	item.Title = input.Title
	item.Description = input.Description
	item.Category = input.Category
	item.Difficulty = input.Difficulty
	item.RiskLevel = input.RiskLevel
	if input.Status != "" {
		item.Status = input.Status
	}
	item.ValueStatement = input.ValueStatement
	item.MotivationNote = input.MotivationNote
	if input.CostEstimate != nil {
		item.CostEstimate = input.CostEstimate
	}
	item.TargetYear = input.TargetYear
	if input.Tags != nil {
		item.Tags = input.Tags
	}
	item.CompletedAt = input.CompletedAt

	if err := s.validate(item, bucket, owner); err != nil {
		return nil, err
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, s.writeError(err, item)
	}

	s.logger.Info().
		Str("bucket_item_id", item.ID.String()).
		Str("time_bucket_id", bucket.ID.String()).
		Msg("bucket item created")

	return item, nil
}

// Update applies a partial update and re-validates the item.
func (s *BucketItemService) Update(ctx context.Context, input UpdateBucketItemInput) (*domain.BucketItem, error) {
	item, err := s.Get(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		item.Title = *input.Title
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Category != nil {
		item.Category = *input.Category
	}
	input.Difficulty.Apply(&item.Difficulty)
	input.RiskLevel.Apply(&item.RiskLevel)
	if input.Status != nil {
		item.Status = *input.Status
	}
	if input.ValueStatement != nil {
		item.ValueStatement = *input.ValueStatement
	}
	if input.MotivationNote != nil {
		item.MotivationNote = *input.MotivationNote
	}
	input.CostEstimate.Apply(&item.CostEstimate)
	input.TargetYear.Apply(&item.TargetYear)
	if input.Tags != nil {
		item.Tags = input.Tags
	}
	input.CompletedAt.Apply(&item.CompletedAt)

	if err := s.save(ctx, input.UserID, item); err != nil {
		return nil, err
	}

	s.logger.Info().Str("bucket_item_id", item.ID.String()).Msg("bucket item updated")
	return item, nil
}

// Complete marks the item done now. The item is validated in full afterwards,
// so an otherwise invalid item cannot be completed either.
func (s *BucketItemService) Complete(ctx context.Context, userID, id uuid.UUID) (*domain.BucketItem, error) {
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	item.MarkDone(s.clock.Now())

	if err := s.save(ctx, userID, item); err != nil {
		return nil, err
	}

	s.metrics.RecordItemCompleted()
	s.logger.Info().Str("bucket_item_id", item.ID.String()).Msg("bucket item completed")
	return item, nil
}

// Delete removes one of the user's items.
func (s *BucketItemService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.itemRepo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, domain.ErrBucketItemNotFound) {
			return domain.ErrBucketItemNotFound
		}
		s.logger.Error().Err(err).Str("bucket_item_id", id.String()).Msg("failed to delete bucket item")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("bucket_item_id", id.String()).Msg("bucket item deleted")
	return nil
}

// save validates a modified item against its bucket and owner and stores it.
func (s *BucketItemService) save(ctx context.Context, userID uuid.UUID, item *domain.BucketItem) error {
	bucket, err := s.bucket(ctx, userID, item.TimeBucketID)
	if err != nil {
		return err
	}
	owner, err := s.owner(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.validate(item, bucket, owner); err != nil {
		return err
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return s.writeError(err, item)
	}
	return nil
}

func (s *BucketItemService) validate(item *domain.BucketItem, bucket *domain.TimeBucket, owner *domain.User) error {
	if v := domain.ValidateBucketItem(item, bucket, owner); v.HasErrors() {
		s.metrics.RecordValidationFailure("bucket_item")
		return v
	}
	return nil
}

func (s *BucketItemService) bucket(ctx context.Context, userID, bucketID uuid.UUID) (*domain.TimeBucket, error) {
	bucket, err := s.bucketRepo.GetByID(ctx, userID, bucketID)
	if err != nil {
		if errors.Is(err, domain.ErrTimeBucketNotFound) {
			return nil, domain.ErrTimeBucketNotFound
		}
		s.logger.Error().Err(err).Str("time_bucket_id", bucketID.String()).Msg("failed to get time bucket")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return bucket, nil
}

func (s *BucketItemService) owner(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

func (s *BucketItemService) writeError(err error, item *domain.BucketItem) error {
	if errors.Is(err, domain.ErrBucketItemNotFound) || errors.Is(err, domain.ErrTimeBucketNotFound) {
		return err
	}
	s.logger.Error().Err(err).Str("bucket_item_id", item.ID.String()).Msg("failed to store bucket item")
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}
