package auth

import (
	"errors"
	"net/http"
)

// Authentication errors.
var (
	// ErrMissingCredentials indicates the request carried no session token.
	ErrMissingCredentials = errors.New("missing session credentials")

	// ErrInvalidAuthorizationHeader indicates the Authorization header is not a bearer credential.
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrUnauthenticated indicates the token did not resolve to a live session.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// AuthError is an authentication failure ready to be written as a response.
type AuthError struct {
	// Message is shown to the client.
	Message string

	// HTTPStatus is the HTTP status code.
	HTTPStatus int

	// Err is the underlying cause. Never sent to the client.
	Err error
}

func (e *AuthError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError classifies err. Credential problems become 401 and
// anything else, such as a storage failure during lookup, becomes 500.
func NewAuthError(err error) *AuthError {
	switch {
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrInvalidAuthorizationHeader),
		errors.Is(err, ErrUnauthenticated):
		return &AuthError{
			Message:    "Unauthorized",
			HTTPStatus: http.StatusUnauthorized,
			Err:        err,
		}

	default:
		return &AuthError{
			Message:    "Internal server error",
			HTTPStatus: http.StatusInternalServerError,
			Err:        err,
		}
	}
}
