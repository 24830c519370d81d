// Package handler provides the HTTP API of the timebucket server.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/auth"
	"github.com/prn-tf/timebucket/internal/metrics"
	"github.com/prn-tf/timebucket/internal/middleware"
	"github.com/prn-tf/timebucket/internal/repository"
	"github.com/prn-tf/timebucket/internal/service"
)

// RouterConfig contains the dependencies of the router.
type RouterConfig struct {
	TimeBuckets   *service.TimeBucketService
	BucketItems   *service.BucketItemService
	Dashboard     *service.DashboardService
	Users         *service.UserService
	Notifications *service.NotificationService
	Sessions      *service.SessionService

	// Database backs /healthz. Optional.
	Database repository.DatabaseHealth

	// Authenticator resolves session tokens; defaults to Sessions.
	Authenticator auth.Authenticator

	// RateLimiter throttles authenticated API calls. Optional.
	RateLimiter *middleware.RateLimiter

	// Metrics records request counts and latency. Optional.
	Metrics *metrics.Metrics

	CookieName     string
	CookieSecure   bool
	AllowedOrigins []string
	CORSMaxAge     time.Duration
	MaxBodySize    int64

	Logger zerolog.Logger
}

// NewRouter builds the chi router with the full middleware chain:
// request id, real ip, recovery, request logging, metrics, CORS, then
// session auth and rate limiting on /api/v1.
func NewRouter(cfg RouterConfig) http.Handler {
	authn := cfg.Authenticator
	if authn == nil {
		authn = cfg.Sessions
	}

	buckets := NewTimeBucketHandler(cfg.TimeBuckets, cfg.MaxBodySize, cfg.Logger)
	items := NewBucketItemHandler(cfg.BucketItems, cfg.MaxBodySize, cfg.Logger)
	dashboard := NewDashboardHandler(cfg.Dashboard, cfg.Logger)
	profile := NewProfileHandler(cfg.Users, cfg.Notifications, cfg.MaxBodySize, cfg.Logger)
	sessions := NewSessionHandler(cfg.Sessions, cfg.Database, cfg.CookieName, cfg.CookieSecure, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS(cfg.AllowedOrigins, cfg.CORSMaxAge))

	r.Get("/up", sessions.Up)
	r.Get("/healthz", sessions.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		authConfig := auth.DefaultConfig()
		if cfg.CookieName != "" {
			authConfig.CookieName = cfg.CookieName
		}
		r.Use(auth.Middleware(authn, authConfig))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware())
		}

		r.Delete("/logout", sessions.Logout)

		r.Get("/profile", profile.Show)
		r.Patch("/profile", profile.Update)
		r.Get("/notification-settings", profile.ShowNotifications)
		r.Patch("/notification-settings", profile.UpdateNotifications)

		r.Route("/time_buckets", func(r chi.Router) {
			r.Get("/", buckets.List)
			r.Post("/", buckets.Create)
			r.Post("/templates", buckets.GenerateTemplate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", buckets.Get)
				r.Patch("/", buckets.Update)
				r.Put("/", buckets.Update)
				r.Delete("/", buckets.Delete)

				r.Get("/bucket_items", items.List)
				r.Post("/bucket_items", items.Create)
			})
		})

		r.Route("/bucket_items/{id}", func(r chi.Router) {
			r.Get("/", items.Get)
			r.Patch("/", items.Update)
			r.Put("/", items.Update)
			r.Delete("/", items.Delete)
			r.Patch("/complete", items.Complete)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", dashboard.Summary)
			r.Get("/actions-now", dashboard.ActionsNow)
			r.Get("/review-completed", dashboard.ReviewCompleted)
		})
	})

	return r
}
