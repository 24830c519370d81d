package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/planner"
	"github.com/prn-tf/timebucket/internal/repository"
)

// Uploader stores an export object and returns where it landed.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ExportService writes JSON snapshots of a user's plan to object storage.
type ExportService struct {
	userRepo   repository.UserRepository
	bucketRepo repository.TimeBucketRepository
	itemRepo   repository.BucketItemRepository
	uploader   Uploader
	prefix     string
	clock      clock.Clock
	logger     zerolog.Logger
}

// NewExportService creates a new ExportService. A nil uploader disables exports.
func NewExportService(
	userRepo repository.UserRepository,
	bucketRepo repository.TimeBucketRepository,
	itemRepo repository.BucketItemRepository,
	uploader Uploader,
	prefix string,
	clk clock.Clock,
	logger zerolog.Logger,
) *ExportService {
	return &ExportService{
		userRepo:   userRepo,
		bucketRepo: bucketRepo,
		itemRepo:   itemRepo,
		uploader:   uploader,
		prefix:     strings.Trim(prefix, "/"),
		clock:      clk,
		logger:     logger.With().Str("service", "export").Logger(),
	}
}

// Snapshot is the exported document.
type Snapshot struct {
	ExportedAt  time.Time            `json:"exported_at"`
	User        *domain.User         `json:"user"`
	TimeBuckets []*domain.TimeBucket `json:"time_buckets"`
	BucketItems []*domain.BucketItem `json:"bucket_items"`
	Dashboard   *planner.Report      `json:"dashboard"`
}

// ExportResult describes a stored snapshot.
type ExportResult struct {
	Key      string
	Location string
	Size     int
}

// Enabled reports whether an uploader is configured.
func (s *ExportService) Enabled() bool {
	return s.uploader != nil
}

// Build assembles the snapshot without uploading it.
func (s *ExportService) Build(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

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

	return &Snapshot{
		ExportedAt:  s.clock.Now(),
		User:        user,
		TimeBuckets: buckets,
		BucketItems: items,
		Dashboard:   planner.BuildReport(buckets, items),
	}, nil
}

// Export builds the snapshot and uploads it under {prefix}/{user_id}/{timestamp}.json.
func (s *ExportService) Export(ctx context.Context, userID uuid.UUID) (*ExportResult, error) {
	if s.uploader == nil {
		return nil, ErrExportDisabled
	}

	snapshot, err := s.Build(ctx, userID)
	if err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %v", ErrInternalError, err)
	}

	key := s.objectKey(userID, snapshot.ExportedAt)
	location, err := s.uploader.Upload(ctx, key, body, "application/json")
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Str("key", key).Msg("failed to upload snapshot")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("key", key).
		Int("size", len(body)).
		Msg("plan exported")

	return &ExportResult{Key: key, Location: location, Size: len(body)}, nil
}

func (s *ExportService) objectKey(userID uuid.UUID, at time.Time) string {
	name := at.UTC().Format("20060102T150405Z") + ".json"
	if s.prefix == "" {
		return path.Join(userID.String(), name)
	}
	return path.Join(s.prefix, userID.String(), name)
}
