package sqlite

import "github.com/prn-tf/timebucket/internal/repository"

// NewRepositories returns the full repository set backed by db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:                   NewUserRepository(db),
		NotificationPreference: NewNotificationPreferenceRepository(db),
		TimeBucket:             NewTimeBucketRepository(db),
		BucketItem:             NewBucketItemRepository(db),
		Session:                NewSessionRepository(db),
	}
}
