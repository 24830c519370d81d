// Package main is the entry point for the timebucket API server.
// timebucket plans a life as a sequence of age ranges holding bucket-list items.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/prn-tf/timebucket/internal/cache/memory"
	rediscache "github.com/prn-tf/timebucket/internal/cache/redis"
	"github.com/prn-tf/timebucket/internal/config"
	"github.com/prn-tf/timebucket/internal/handler"
	"github.com/prn-tf/timebucket/internal/lock"
	"github.com/prn-tf/timebucket/internal/logging"
	"github.com/prn-tf/timebucket/internal/metrics"
	"github.com/prn-tf/timebucket/internal/middleware"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/pkg/crypto"
	"github.com/prn-tf/timebucket/internal/planner"
	"github.com/prn-tf/timebucket/internal/repository"
	"github.com/prn-tf/timebucket/internal/service"
	"github.com/prn-tf/timebucket/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, "timebucket-server")
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("db_driver", cfg.Database.Driver).
		Str("lock_driver", cfg.Locking.Driver).
		Msg("starting timebucket server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server exited")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// -------- Storage -----------------------
	store, err := storage.Open(ctx, cfg.Database, storage.Options{AutoMigrate: cfg.Database.AutoMigrate}, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// -------- Redis, locker, cache ----------
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = connectRedis(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	locker, closeLocker := newLocker(cfg.Locking.Driver, redisClient)
	defer closeLocker()

	var sessionCache repository.Cache
	if redisClient != nil {
		sessionCache = rediscache.NewCache(redisClient, "timebucket:cache:")
	} else {
		mc := memory.NewCache(time.Minute)
		defer mc.Stop()
		sessionCache = mc
	}

	// -------- Metrics -----------------------
	var m *metrics.Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)

		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler(reg))
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	// -------- Services ----------------------
	clk := clock.Real{}
	hasher, err := crypto.NewTokenHasher(cfg.Auth.SessionSecret)
	if err != nil {
		return err
	}

	repos := store.Repos
	planLock := service.NewPlanLocker(locker, lock.Policy{
		TTL:        cfg.Locking.TTL,
		MaxRetries: cfg.Locking.MaxRetries,
		RetryDelay: cfg.Locking.RetryDelay,
	})

	users := service.NewUserService(repos.User, clk, m, logger)
	sessions := service.NewSessionService(repos.Session, repos.User, hasher, sessionCache, service.SessionConfig{
		TTL:      cfg.Auth.SessionTTL,
		CacheTTL: cfg.Auth.SessionCacheTTL,
	}, clk, logger)

	if cfg.Auth.PurgeInterval > 0 {
		sweeper := service.NewSessionSweeper(sessions, locker, cfg.Auth.PurgeInterval, logger)
		sweeper.Start()
		defer sweeper.Stop()
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:            rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst:           cfg.RateLimit.BurstSize,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
		}, m, logger)
		defer rateLimiter.Stop()
	}

	router := handler.NewRouter(handler.RouterConfig{
		TimeBuckets:    service.NewTimeBucketService(repos.TimeBucket, repos.User, planLock, planner.NewTemplateGenerator(cfg.Planner.TemplateLabelSuffix), clk, m, logger),
		BucketItems:    service.NewBucketItemService(repos.BucketItem, repos.TimeBucket, repos.User, clk, m, logger),
		Dashboard:      service.NewDashboardService(repos.User, repos.TimeBucket, repos.BucketItem, clk, logger),
		Users:          users,
		Notifications:  service.NewNotificationService(repos.NotificationPreference, clk, m, logger),
		Sessions:       sessions,
		Database:       store.Database,
		RateLimiter:    rateLimiter,
		Metrics:        m,
		CookieName:     cfg.Auth.CookieName,
		CookieSecure:   cfg.Auth.CookieSecure,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAge,
		MaxBodySize:    cfg.Server.MaxBodySize,
		Logger:         logger,
	})

	// -------- HTTP servers ------------------
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if metricsServer != nil {
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down server")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server forced to shutdown")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server forced to shutdown")
		}
	}

	return serveErr
}

// newLocker picks the plan locker for driver. The returned func releases its resources.
func newLocker(driver string, redisClient *goredis.Client) (lock.Locker, func()) {
	switch driver {
	case "redis":
		return lock.NewRedisLocker(redisClient, "timebucket:"), func() {}
	case "none":
		return lock.NewNoOpLocker(), func() {}
	default:
		ml := lock.NewMemoryLocker()
		return ml, ml.Close
	}
}

// connectRedis dials redis, retrying with exponential backoff while it starts up.
func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*goredis.Client, error) {
	var client *goredis.Client
	connect := func() error {
		c, err := rediscache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		client = c
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.Database.ConnectRetries), ctx)
	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr()).Dur("retry_in", wait).Msg("redis not ready, retrying")
	}
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("addr", cfg.Redis.Addr()).Msg("connected to redis")
	return client, nil
}
