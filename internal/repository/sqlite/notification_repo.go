package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

// notificationPreferenceRepository implements repository.NotificationPreferenceRepository for SQLite.
type notificationPreferenceRepository struct {
	db *DB
}

// NewNotificationPreferenceRepository creates a new SQLite notification preference repository.
func NewNotificationPreferenceRepository(db *DB) repository.NotificationPreferenceRepository {
	return &notificationPreferenceRepository{db: db}
}

// GetByUserID retrieves the preference owned by userID.
func (r *notificationPreferenceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error) {
	query := `
		SELECT id, user_id, email_enabled, slack_webhook_url, digest_time, events, created_at, updated_at
		FROM notification_preferences
		WHERE user_id = ?
	`

	var (
		pref                 domain.NotificationPreference
		id, owner            string
		emailEnabled         int
		slack                sql.NullString
		events               string
		createdAt, updatedAt string
	)

	err := r.db.QueryRowContext(ctx, query, userID.String()).Scan(
		&id, &owner, &emailEnabled, &slack, &pref.DigestTime, &events, &createdAt, &updatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotificationPreferenceNotFound
		}
		return nil, fmt.Errorf("failed to get notification preference: %w", err)
	}

	pref.ID, _ = uuid.Parse(id)
	pref.UserID, _ = uuid.Parse(owner)
	pref.EmailEnabled = emailEnabled != 0
	pref.SlackWebhookURL = slack.String
	pref.Events = map[string]bool{}
	if err := unmarshalJSON(events, &pref.Events); err != nil {
		return nil, err
	}
	pref.CreatedAt = parseTime(createdAt)
	pref.UpdatedAt = parseTime(updatedAt)

	return &pref, nil
}

// Update updates the preference owned by pref.UserID.
func (r *notificationPreferenceRepository) Update(ctx context.Context, pref *domain.NotificationPreference) error {
	events, err := marshalJSON(pref.Events, "{}")
	if err != nil {
		return err
	}

	slack := sql.NullString{String: pref.SlackWebhookURL, Valid: pref.SlackWebhookURL != ""}

	result, err := r.db.ExecContext(ctx, `
		UPDATE notification_preferences
		SET email_enabled = ?, slack_webhook_url = ?, digest_time = ?, events = ?, updated_at = ?
		WHERE user_id = ?
	`,
		boolToInt(pref.EmailEnabled),
		slack,
		pref.DigestTime,
		events,
		formatTime(pref.UpdatedAt),
		pref.UserID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update notification preference: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotificationPreferenceNotFound
	}

	return nil
}
