// Package repository defines data access interfaces for timebucket.
// These interfaces abstract database operations, allowing for different implementations
// (PostgreSQL, SQLite) while keeping the service layer clean.
//
// Every lookup that takes a userID is ownership-scoped: a record that exists but
// belongs to someone else is reported with the entity's domain not-found error.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user together with its default notification preference.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByProvider retrieves a user by external identity.
	GetByProvider(ctx context.Context, provider, uid string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user and everything they own.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)
}

// =============================================================================
// Notification Preference Repository
// =============================================================================

// NotificationPreferenceRepository defines the interface for notification settings.
type NotificationPreferenceRepository interface {
	// GetByUserID retrieves the preference owned by userID.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error)

	// Update updates the preference owned by pref.UserID.
	Update(ctx context.Context, pref *domain.NotificationPreference) error
}

// =============================================================================
// Time Bucket Repository
// =============================================================================

// TimeBucketRepository defines the interface for time bucket data access.
type TimeBucketRepository interface {
	// Create creates a new time bucket.
	Create(ctx context.Context, bucket *domain.TimeBucket) error

	// CreateBatch inserts all buckets in a single transaction. Nothing is
	// stored if any insert fails.
	CreateBatch(ctx context.Context, buckets []*domain.TimeBucket) error

	// GetByID retrieves a bucket owned by userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.TimeBucket, error)

	// ListByUser returns the user's buckets ordered by position.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.TimeBucket, error)

	// Update updates an existing bucket.
	Update(ctx context.Context, bucket *domain.TimeBucket) error

	// Delete deletes a bucket owned by userID. Its items are removed with it.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// =============================================================================
// Bucket Item Repository
// =============================================================================

// BucketItemRepository defines the interface for bucket item data access.
type BucketItemRepository interface {
	// Create creates a new item.
	Create(ctx context.Context, item *domain.BucketItem) error

	// GetByID retrieves an item whose bucket is owned by userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.BucketItem, error)

	// ListByTimeBucket returns the items of a bucket owned by userID in creation order.
	ListByTimeBucket(ctx context.Context, userID, bucketID uuid.UUID) ([]*domain.BucketItem, error)

	// ListByUser returns every item across the user's buckets,
	// ordered by bucket position then creation time.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.BucketItem, error)

	// Update updates an existing item.
	Update(ctx context.Context, item *domain.BucketItem) error

	// Delete deletes an item whose bucket is owned by userID.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// =============================================================================
// Session Repository
// =============================================================================

// SessionRepository defines the interface for login session storage.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *domain.Session) error

	// GetByTokenHash retrieves a session by the hash of its token.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)

	// Delete removes a session by ID.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByUser removes every session of a user and returns how many were removed.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteExpired removes sessions that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Limit is the maximum number of items to return.
	Limit int

	// Offset is the number of items to skip.
	Offset int
}

// Normalize clamps the options to sane bounds.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 || o.Limit > 1000 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

// =============================================================================
// Aggregate
// =============================================================================

// Repositories holds all repository instances.
type Repositories struct {
	User                   UserRepository
	NotificationPreference NotificationPreferenceRepository
	TimeBucket             TimeBucketRepository
	BucketItem             BucketItemRepository
	Session                SessionRepository
}

// DatabaseHealth is an interface for database health checks.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Close() error
}
