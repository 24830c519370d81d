package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/auth"
	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/service"
)

// ProfileHandler serves the signed-in user's profile and notification settings.
type ProfileHandler struct {
	users         *service.UserService
	notifications *service.NotificationService
	maxBodySize   int64
	logger        zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(users *service.UserService, notifications *service.NotificationService, maxBodySize int64, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		users:         users,
		notifications: notifications,
		maxBodySize:   maxBodySize,
		logger:        logger.With().Str("handler", "profile").Logger(),
	}
}

// profileResponse renders the birthdate as a calendar date.
type profileResponse struct {
	ID         uuid.UUID      `json:"id"`
	Email      string         `json:"email"`
	Birthdate  *string        `json:"birthdate"`
	BirthYear  *int           `json:"birth_year"`
	CurrentAge *int           `json:"current_age"`
	Timezone   string         `json:"timezone"`
	ValuesTags map[string]any `json:"values_tags"`
	Provider   string         `json:"provider"`
}

func newProfileResponse(p *service.Profile) profileResponse {
	resp := profileResponse{
		ID:         p.User.ID,
		Email:      p.User.Email,
		BirthYear:  p.BirthYear,
		CurrentAge: p.CurrentAge,
		Timezone:   p.User.Timezone,
		ValuesTags: p.User.ValuesTags,
		Provider:   p.User.Provider,
	}
	if p.User.Birthdate != nil {
		s := p.User.Birthdate.Format(domain.DateLayout)
		resp.Birthdate = &s
	}
	if resp.ValuesTags == nil {
		resp.ValuesTags = map[string]any{}
	}
	return resp
}

// notificationResponse is the flat settings document.
type notificationResponse struct {
	EmailEnabled    bool            `json:"email_enabled"`
	SlackWebhookURL *string         `json:"slack_webhook_url"`
	DigestTime      string          `json:"digest_time"`
	Events          map[string]bool `json:"events"`
}

func newNotificationResponse(p *domain.NotificationPreference) notificationResponse {
	resp := notificationResponse{
		EmailEnabled: p.EmailEnabled,
		DigestTime:   p.DigestTime,
		Events:       p.Events,
	}
	if p.SlackWebhookURL != "" {
		url := p.SlackWebhookURL
		resp.SlackWebhookURL = &url
	}
	if resp.Events == nil {
		resp.Events = map[string]bool{}
	}
	return resp
}

// Show handles GET /api/v1/profile.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	profile, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(profile))
}

// Update handles PATCH /api/v1/profile with {"profile": {...}}.
// A null or empty birthdate clears it.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	a, err := decodeAttrs(w, r, h.maxBodySize, "profile")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	f := newFieldReader(a)
	input := service.UpdateProfileInput{
		UserID:     userID,
		Birthdate:  f.Date("birthdate"),
		Timezone:   f.String("timezone"),
		ValuesTags: f.Object("values_tags"),
	}
	if err := f.Err(); err != nil {
		writeBadRequest(w, err)
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(profile))
}

// ShowNotifications handles GET /api/v1/notification-settings.
func (h *ProfileHandler) ShowNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pref, err := h.notifications.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newNotificationResponse(pref))
}

// UpdateNotifications handles PATCH /api/v1/notification-settings.
// The settings are top-level fields, not nested under a root key.
func (h *ProfileHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	a, err := decodeAttrs(w, r, h.maxBodySize, "")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	f := newFieldReader(a)
	input := service.UpdateNotificationInput{
		UserID:          userID,
		EmailEnabled:    f.Bool("email_enabled"),
		SlackWebhookURL: f.String("slack_webhook_url"),
		DigestTime:      f.String("digest_time"),
		Events:          f.BoolMap("events"),
	}
	if err := f.Err(); err != nil {
		writeBadRequest(w, err)
		return
	}

	pref, err := h.notifications.Update(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newNotificationResponse(pref))
}
