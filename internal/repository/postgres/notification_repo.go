package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

// notificationPreferenceRepository implements repository.NotificationPreferenceRepository.
type notificationPreferenceRepository struct {
	db *DB
}

// NewNotificationPreferenceRepository creates a new PostgreSQL notification preference repository.
func NewNotificationPreferenceRepository(db *DB) repository.NotificationPreferenceRepository {
	return &notificationPreferenceRepository{db: db}
}

// GetByUserID retrieves the preference owned by userID.
func (r *notificationPreferenceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error) {
	query := `
		SELECT id, user_id, email_enabled, slack_webhook_url, digest_time, events, created_at, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	var (
		pref  domain.NotificationPreference
		slack *string
	)
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&pref.ID,
		&pref.UserID,
		&pref.EmailEnabled,
		&slack,
		&pref.DigestTime,
		&pref.Events,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotificationPreferenceNotFound
		}
		return nil, fmt.Errorf("failed to get notification preference: %w", err)
	}

	if slack != nil {
		pref.SlackWebhookURL = *slack
	}
	if pref.Events == nil {
		pref.Events = map[string]bool{}
	}
	return &pref, nil
}

// Update updates the preference owned by pref.UserID.
func (r *notificationPreferenceRepository) Update(ctx context.Context, pref *domain.NotificationPreference) error {
	var slack *string
	if pref.SlackWebhookURL != "" {
		slack = &pref.SlackWebhookURL
	}
	events := pref.Events
	if events == nil {
		events = map[string]bool{}
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE notification_preferences
		SET email_enabled = $2, slack_webhook_url = $3, digest_time = $4, events = $5, updated_at = $6
		WHERE user_id = $1
	`, pref.UserID, pref.EmailEnabled, slack, pref.DigestTime, events, pref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update notification preference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationPreferenceNotFound
	}
	return nil
}
