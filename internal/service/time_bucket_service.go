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
	"github.com/prn-tf/timebucket/internal/planner"
	"github.com/prn-tf/timebucket/internal/repository"
)

// TimeBucketService handles time bucket operations, including template generation.
type TimeBucketService struct {
	bucketRepo repository.TimeBucketRepository
	userRepo   repository.UserRepository
	planLock   *PlanLocker
	generator  *planner.TemplateGenerator
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewTimeBucketService creates a new TimeBucketService.
func NewTimeBucketService(
	bucketRepo repository.TimeBucketRepository,
	userRepo repository.UserRepository,
	planLock *PlanLocker,
	generator *planner.TemplateGenerator,
	clk clock.Clock,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *TimeBucketService {
	return &TimeBucketService{
		bucketRepo: bucketRepo,
		userRepo:   userRepo,
		planLock:   planLock,
		generator:  generator,
		clock:      clk,
		metrics:    m,
		logger:     logger.With().Str("service", "time_bucket").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateTimeBucketInput contains the data needed to create a bucket.
// Nil numeric fields are reported as blank.
type CreateTimeBucketInput struct {
	UserID      uuid.UUID
	Label       string
	Description string
	StartAge    *int
	EndAge      *int
	Granularity domain.Granularity
	Position    *int
}

// UpdateTimeBucketInput carries a partial bucket update. Nil fields are left unchanged.
type UpdateTimeBucketInput struct {
	UserID      uuid.UUID
	ID          uuid.UUID
	Label       *string
	Description *string
	StartAge    *int
	EndAge      *int
	Granularity *domain.Granularity
	Position    *int
}

// GenerateTemplateOutput contains the result of a template run.
type GenerateTemplateOutput struct {
	// Created is how many buckets the run inserted.
	Created int

	// Buckets is the user's full plan after the run, ordered by position.
	Buckets []*domain.TimeBucket
}

// =============================================================================
// Service Methods
// =============================================================================

// List returns the user's buckets ordered by position.
func (s *TimeBucketService) List(ctx context.Context, userID uuid.UUID) ([]*domain.TimeBucket, error) {
	buckets, err := s.bucketRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list time buckets")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return buckets, nil
}

// Get returns one of the user's buckets.
func (s *TimeBucketService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.TimeBucket, error) {
	bucket, err := s.bucketRepo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrTimeBucketNotFound) {
			return nil, domain.ErrTimeBucketNotFound
		}
		s.logger.Error().Err(err).Str("time_bucket_id", id.String()).Msg("failed to get time bucket")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return bucket, nil
}

// Create validates a new bucket against the user's plan and stores it.
func (s *TimeBucketService) Create(ctx context.Context, input CreateTimeBucketInput) (*domain.TimeBucket, error) {
	bucket := domain.NewTimeBucket(input.UserID, s.clock.Now())
	bucket.Label = input.Label
	bucket.Description = input.Description
	bucket.Granularity = input.Granularity

	var blank []string
	for _, f := range []struct {
		name  string
		value *int
		dst   *int
	}{
		{"start_age", input.StartAge, &bucket.StartAge},
		{"end_age", input.EndAge, &bucket.EndAge},
		{"position", input.Position, &bucket.Position},
	} {
		if f.value == nil {
			blank = append(blank, f.name)
			continue
		}
		*f.dst = *f.value
	}

	err := s.planLock.WithUser(ctx, input.UserID, func(ctx context.Context) error {
		others, err := s.bucketRepo.ListByUser(ctx, input.UserID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", input.UserID.String()).Msg("failed to load plan")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		if v := validateWithBlanks(bucket, others, blank); v.HasErrors() {
			s.metrics.RecordValidationFailure("time_bucket")
			return v
		}

		if err := s.bucketRepo.Create(ctx, bucket); err != nil {
			return s.writeError(ctx, err, input.UserID, bucket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBucketsCreated(metrics.SourceManual, 1)
	s.logger.Info().
		Str("user_id", bucket.UserID.String()).
		Str("time_bucket_id", bucket.ID.String()).
		Str("range", bucket.AgeRange()).
		Msg("time bucket created")

	return bucket, nil
}

// Update applies a partial update and re-validates the bucket against the user's plan.
func (s *TimeBucketService) Update(ctx context.Context, input UpdateTimeBucketInput) (*domain.TimeBucket, error) {
	var bucket *domain.TimeBucket

	err := s.planLock.WithUser(ctx, input.UserID, func(ctx context.Context) error {
		var err error
		bucket, err = s.Get(ctx, input.UserID, input.ID)
		if err != nil {
			return err
		}

		if input.Label != nil {
			bucket.Label = *input.Label
		}
		if input.Description != nil {
			bucket.Description = *input.Description
		}
		if input.StartAge != nil {
			bucket.StartAge = *input.StartAge
		}
		if input.EndAge != nil {
			bucket.EndAge = *input.EndAge
		}
		if input.Granularity != nil {
			bucket.Granularity = *input.Granularity
		}
		if input.Position != nil {
			bucket.Position = *input.Position
		}

		others, err := s.bucketRepo.ListByUser(ctx, input.UserID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", input.UserID.String()).Msg("failed to load plan")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		if v := domain.ValidateTimeBucket(bucket, others); v.HasErrors() {
			s.metrics.RecordValidationFailure("time_bucket")
			return v
		}

		bucket.UpdatedAt = s.clock.Now()
		if err := s.bucketRepo.Update(ctx, bucket); err != nil {
			return s.writeError(ctx, err, input.UserID, bucket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("time_bucket_id", bucket.ID.String()).
		Str("range", bucket.AgeRange()).
		Msg("time bucket updated")

	return bucket, nil
}

// Delete removes a bucket and its items.
func (s *TimeBucketService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.bucketRepo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, domain.ErrTimeBucketNotFound) {
			return domain.ErrTimeBucketNotFound
		}
		s.logger.Error().Err(err).Str("time_bucket_id", id.String()).Msg("failed to delete time bucket")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("time_bucket_id", id.String()).Msg("time bucket deleted")
	return nil
}

// GenerateTemplate partitions the user's lifespan at the given granularity and
// stores every bucket in one batch. If any generated bucket fails validation
// against the existing plan, nothing is stored.
func (s *TimeBucketService) GenerateTemplate(ctx context.Context, userID uuid.UUID, granularity domain.Granularity) (*GenerateTemplateOutput, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	slots, err := s.generator.Generate(user, granularity)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.metrics.RecordValidationFailure("time_bucket_template")
		}
		return nil, err
	}

	out := &GenerateTemplateOutput{}
	err = s.planLock.WithUser(ctx, userID, func(ctx context.Context) error {
		existing, err := s.bucketRepo.ListByUser(ctx, userID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load plan")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		now := s.clock.Now()
		batch := make([]*domain.TimeBucket, 0, len(slots))
		peers := append([]*domain.TimeBucket(nil), existing...)
		for _, slot := range slots {
			bucket := slot.TimeBucket(userID, now)
			if v := domain.ValidateTimeBucket(bucket, peers); v.HasErrors() {
				s.metrics.RecordValidationFailure("time_bucket_template")
				return v
			}
			batch = append(batch, bucket)
			peers = append(peers, bucket)
		}

		if err := s.bucketRepo.CreateBatch(ctx, batch); err != nil {
			return s.writeError(ctx, err, userID, batch...)
		}

		buckets, err := s.bucketRepo.ListByUser(ctx, userID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to reload plan")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		out.Created = len(batch)
		out.Buckets = buckets
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBucketsCreated(metrics.SourceTemplate, out.Created)
	s.logger.Info().
		Str("user_id", userID.String()).
		Str("granularity", string(granularity)).
		Int("created", out.Created).
		Msg("time bucket template generated")

	return out, nil
}

// writeError turns constraint violations reported by storage into validation errors.
// written holds the buckets the failed write tried to store.
func (s *TimeBucketService) writeError(ctx context.Context, err error, userID uuid.UUID, written ...*domain.TimeBucket) error {
	switch {
	case errors.Is(err, domain.ErrTimeBucketPositionTaken):
		s.metrics.RecordValidationFailure("time_bucket")
		return domain.NewValidationError("position", "has already been taken")
	case errors.Is(err, domain.ErrTimeBucketOverlap):
		s.metrics.RecordValidationFailure("time_bucket")
		return domain.NewValidationError(domain.BaseField, s.overlapMessage(ctx, userID, written))
	case errors.Is(err, domain.ErrTimeBucketNotFound), errors.Is(err, domain.ErrUserNotFound):
		return err
	}

	ev := s.logger.Error().Err(err)
	if len(written) == 1 {
		ev = ev.Str("time_bucket_id", written[0].ID.String())
	}
	ev.Msg("failed to store time bucket")
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}

// overlapMessage names the stored bucket that a rejected write collided with.
// The write raced past validation, so the plan is read again to find it.
func (s *TimeBucketService) overlapMessage(ctx context.Context, userID uuid.UUID, written []*domain.TimeBucket) string {
	stored, err := s.bucketRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to reload plan after overlap")
	}
	for _, candidate := range written {
		for _, other := range stored {
			if other.ID != candidate.ID && candidate.Overlaps(other) {
				return domain.OverlapMessagePrefix + other.Label
			}
		}
	}
	return "Time bucket overlaps with an existing bucket"
}

// validateWithBlanks runs the bucket validator and reports the given numeric fields
// as blank instead of range-checking their zero values. The overlap and ordering
// rules are dropped while either age is unknown; the position rule still runs.
func validateWithBlanks(bucket *domain.TimeBucket, others []*domain.TimeBucket, blank []string) *domain.ValidationError {
	if len(blank) == 0 {
		return domain.ValidateTimeBucket(bucket, others)
	}

	skip := make(map[string]bool, len(blank))
	for _, f := range blank {
		skip[f] = true
	}
	ageUnknown := skip["start_age"] || skip["end_age"]

	out := &domain.ValidationError{}
	for _, e := range domain.ValidateTimeBucket(bucket, others).Errors {
		if skip[e.Field] {
			continue
		}
		if ageUnknown && e.Field == "end_age" && e.Message == domain.EndAgeOrderMessage {
			continue
		}
		if ageUnknown && e.Field == domain.BaseField && strings.HasPrefix(e.Message, domain.OverlapMessagePrefix) {
			continue
		}
		out.Add(e.Field, e.Message)
	}
	for _, f := range blank {
		out.Add(f, "can't be blank")
	}
	return out
}
