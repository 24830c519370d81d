package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/auth"
	"github.com/prn-tf/timebucket/internal/repository"
	"github.com/prn-tf/timebucket/internal/service"
)

// SessionHandler serves logout and the unauthenticated health endpoints.
type SessionHandler struct {
	sessions     *service.SessionService
	database     repository.DatabaseHealth
	cookieName   string
	cookieSecure bool
	logger       zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler. database may be nil, in
// which case /healthz only reports the process as alive.
func NewSessionHandler(sessions *service.SessionService, database repository.DatabaseHealth, cookieName string, cookieSecure bool, logger zerolog.Logger) *SessionHandler {
	if cookieName == "" {
		cookieName = auth.DefaultCookieName
	}
	return &SessionHandler{
		sessions:     sessions,
		database:     database,
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
		logger:       logger.With().Str("handler", "session").Logger(),
	}
}

// Logout handles DELETE /api/v1/logout. It revokes the presented session and
// clears the cookie.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromRequest(r, h.cookieName)
	if err == nil {
		if err := h.sessions.Revoke(r.Context(), token); err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Up handles GET /up.
func (h *SessionHandler) Up(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Healthz handles GET /healthz and pings the database.
func (h *SessionHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.database != nil {
		if err := h.database.Ping(r.Context()); err != nil {
			h.logger.Error().Err(err).Msg("database health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
