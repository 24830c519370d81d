package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/auth"
	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/service"
)

// errorResponse is the body of every non-validation failure.
type errorResponse struct {
	Error string `json:"error"`
}

// validationResponse lists every failed rule of a rejected write.
type validationResponse struct {
	Errors []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service failure to its HTTP response.
// Ownership mismatches arrive as the same not-found errors as missing rows.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: verr.FullMessages()})

	case errors.Is(err, domain.ErrBirthdateRequired):
		writeError(w, http.StatusBadRequest, domain.UserMessage(err))

	case errors.Is(err, domain.ErrTimeBucketNotFound):
		writeError(w, http.StatusNotFound, "Time bucket not found")

	case errors.Is(err, domain.ErrBucketItemNotFound):
		writeError(w, http.StatusNotFound, "Bucket item not found")

	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNotificationPreferenceNotFound):
		writeError(w, http.StatusNotFound, "Not found")

	case errors.Is(err, service.ErrConcurrentModification):
		writeError(w, http.StatusConflict, service.ErrConcurrentModification.Error())

	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthorized")

	default:
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeBadRequest answers a body that could not be decoded.
func writeBadRequest(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: verr.FullMessages()})
		return
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
