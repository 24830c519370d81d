// Package auth resolves session tokens presented by API clients.
// A token travels in the session cookie or as an Authorization bearer credential.
package auth

// =============================================================================
// Constants
// =============================================================================

const (
	// AuthorizationHeader is the HTTP header for bearer credentials.
	AuthorizationHeader = "Authorization"

	// BearerScheme prefixes the token in AuthorizationHeader.
	BearerScheme = "Bearer"

	// DefaultCookieName is the session cookie used when none is configured.
	DefaultCookieName = "timebucket_session"
)
