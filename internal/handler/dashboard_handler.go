package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/auth"
	"github.com/prn-tf/timebucket/internal/service"
)

// DashboardHandler serves the read-only dashboard views.
type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		logger:    logger.With().Str("handler", "dashboard").Logger(),
	}
}

// Summary handles GET /api/v1/dashboard/summary.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	summary, err := h.dashboard.Summary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ActionsNow handles GET /api/v1/dashboard/actions-now.
// Users without a birthdate get 400.
func (h *DashboardHandler) ActionsNow(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	actions, err := h.dashboard.ActionsNow(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// ReviewCompleted handles GET /api/v1/dashboard/review-completed.
func (h *DashboardHandler) ReviewCompleted(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	review, err := h.dashboard.ReviewCompleted(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
