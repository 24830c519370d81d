// Package domain contains the core business entities for the time bucket planner.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same email or provider identity exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrBirthdateRequired indicates an operation needs the user's birthdate
	// (template generation, actions-now triage) and none is recorded.
	ErrBirthdateRequired = errors.New("birthdate is required")

	// ===========================================
	// Time Bucket Errors
	// ===========================================

	// ErrTimeBucketNotFound indicates the bucket does not exist or belongs to another user.
	ErrTimeBucketNotFound = errors.New("time bucket not found")

	// ErrTimeBucketOverlap indicates the storage layer rejected an overlapping age range.
	ErrTimeBucketOverlap = errors.New("time bucket overlaps with an existing bucket")

	// ErrTimeBucketPositionTaken indicates another bucket of the same user holds the position.
	ErrTimeBucketPositionTaken = errors.New("time bucket position already taken")

	// ===========================================
	// Bucket Item Errors
	// ===========================================

	// ErrBucketItemNotFound indicates the item does not exist or belongs to another user.
	ErrBucketItemNotFound = errors.New("bucket item not found")

	// ===========================================
	// Notification Preference Errors
	// ===========================================

	// ErrNotificationPreferenceNotFound indicates the user has no preference row.
	ErrNotificationPreferenceNotFound = errors.New("notification preference not found")

	// ===========================================
	// Session Errors
	// ===========================================

	// ErrSessionNotFound indicates the session token is unknown or was revoked.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session is past its expiry.
	ErrSessionExpired = errors.New("session has expired")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context, suitable for showing to the user.
	Message string

	// Resource identifies the affected resource (e.g., bucket id, email).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// UserMessage returns the message intended for the end user.
// Falls back to the underlying error text when no message is attached.
func UserMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return err.Error()
}
