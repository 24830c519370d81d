// Package service provides the application services of timebucket.
// Services load a user's plan through the repositories, hand it to the pure
// validators and planners, and persist the outcome.
package service

import "errors"

// Common service errors.
var (
	// Session errors
	ErrInvalidSession = errors.New("invalid or expired session")

	// Write serialization errors
	ErrConcurrentModification = errors.New("plan is being modified by another request, try again")

	// Export errors
	ErrExportDisabled = errors.New("export is not configured")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
