package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/timebucket/internal/service"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write([]byte(userID.String()))
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		cookie  string
		header  string
		want    string
		wantErr error
	}{
		{name: "cookie", cookie: "abc", want: "abc"},
		{name: "cookie wins over header", cookie: "abc", header: "Bearer def", want: "abc"},
		{name: "bearer", header: "Bearer def", want: "def"},
		{name: "bearer case insensitive", header: "bearer def", want: "def"},
		{name: "missing", wantErr: ErrMissingCredentials},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrInvalidAuthorizationHeader},
		{name: "empty bearer", header: "Bearer  ", wantErr: ErrInvalidAuthorizationHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				r.Header.Set(AuthorizationHeader, tt.header)
			}

			got, err := TokenFromRequest(r, DefaultCookieName)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	userID := uuid.New()

	authn := &mockAuthenticator{}
	authn.On("Authenticate", mock.Anything, "good").Return(userID, nil)
	authn.On("Authenticate", mock.Anything, "stale").Return(uuid.Nil, service.ErrInvalidSession)
	authn.On("Authenticate", mock.Anything, "broken").Return(uuid.Nil, errors.New("db down"))

	handler := Middleware(authn, DefaultConfig())(http.HandlerFunc(echoUser))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "authenticated", path: "/api/v1/profile", header: "Bearer good", wantStatus: http.StatusOK, wantBody: userID.String()},
		{name: "expired session", path: "/api/v1/profile", header: "Bearer stale", wantStatus: http.StatusUnauthorized, wantBody: `{"error":"Unauthorized"}`},
		{name: "no credentials", path: "/api/v1/profile", wantStatus: http.StatusUnauthorized, wantBody: `{"error":"Unauthorized"}`},
		{name: "lookup failure", path: "/api/v1/profile", header: "Bearer broken", wantStatus: http.StatusInternalServerError, wantBody: `{"error":"Internal server error"}`},
		{name: "skipped path", path: "/up", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				r.Header.Set(AuthorizationHeader, tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, w.Body.String())
			} else if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, BearerScheme, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	_, err := RequireUser(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	userID := uuid.New()
	got, err := RequireUser(ContextWithUserID(context.Background(), userID))
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}
