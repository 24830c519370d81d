package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/timebucket/internal/service"
)

// Authenticator resolves a presented session token to its user.
// *service.SessionService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

// Config contains configuration for the auth middleware.
type Config struct {
	// CookieName is the cookie that carries the session token.
	CookieName string

	// SkipPaths are paths served without a session.
	SkipPaths []string
}

// DefaultConfig returns the default auth configuration.
func DefaultConfig() Config {
	return Config{
		CookieName: DefaultCookieName,
		SkipPaths:  []string{"/up", "/healthz"},
	}
}

type contextKey struct{}

var userIDContextKey = contextKey{}

// Middleware creates an authentication middleware. Requests without a live
// session get a 401 JSON body; authenticated requests carry the user ID in
// their context.
func Middleware(authn Authenticator, config Config) func(http.Handler) http.Handler {
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			token, err := TokenFromRequest(r, config.CookieName)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			userID, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidSession) {
					err = ErrUnauthenticated
				}
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("session authentication failed")
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// TokenFromRequest returns the session token from the named cookie, falling
// back to an "Authorization: Bearer <token>" header.
func TokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	header := r.Header.Get(AuthorizationHeader)
	if header == "" {
		return "", ErrMissingCredentials
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", ErrInvalidAuthorizationHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidAuthorizationHeader
	}
	return token, nil
}

// writeAuthError writes a JSON error response.
func writeAuthError(w http.ResponseWriter, err error) {
	authErr := NewAuthError(err)

	if authErr.HTTPStatus == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", BearerScheme)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": authErr.Message})
}

// ContextWithUserID returns a copy of ctx carrying the authenticated user.
func ContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the authenticated user, if any.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// RequireUser returns the authenticated user or ErrUnauthenticated.
func RequireUser(ctx context.Context) (uuid.UUID, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthenticated
	}
	return userID, nil
}
