package domain

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDigestTime is the local time daily digests are sent at.
const DefaultDigestTime = "09:00"

var digestTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// NotificationPreference holds a user's delivery toggles. Exactly one exists per user;
// it is created together with the user.
type NotificationPreference struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	// EmailEnabled toggles email delivery. Defaults to true.
	EmailEnabled bool `json:"email_enabled"`

	// SlackWebhookURL is an optional incoming-webhook URL (http or https).
	SlackWebhookURL string `json:"slack_webhook_url"`

	// DigestTime is HH:MM in the user's timezone. Blank disables the digest.
	DigestTime string `json:"digest_time"`

	// Events maps event names to on/off switches.
	Events map[string]bool `json:"events"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNotificationPreference returns the defaults given to every new user.
func NewNotificationPreference(userID uuid.UUID, now time.Time) *NotificationPreference {
	now = now.UTC()
	return &NotificationPreference{
		ID:           uuid.New(),
		UserID:       userID,
		EmailEnabled: true,
		DigestTime:   DefaultDigestTime,
		Events:       map[string]bool{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ValidateNotificationPreference checks the optional formatted fields.
func ValidateNotificationPreference(p *NotificationPreference) *ValidationError {
	v := &ValidationError{}

	if p.DigestTime != "" && !digestTimeRegex.MatchString(p.DigestTime) {
		v.Add("digest_time", "must be in HH:MM format")
	}

	if p.SlackWebhookURL != "" && !isHTTPURL(p.SlackWebhookURL) {
		v.Add("slack_webhook_url", "must be a valid URL")
	}

	return v
}

func isHTTPURL(raw string) bool {
	if strings.ContainsAny(raw, " \t\n") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
