package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/config"
	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/export"
	"github.com/prn-tf/timebucket/internal/lock"
	"github.com/prn-tf/timebucket/internal/logging"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/pkg/crypto"
	"github.com/prn-tf/timebucket/internal/planner"
	"github.com/prn-tf/timebucket/internal/service"
	"github.com/prn-tf/timebucket/internal/storage"
)

// app holds the services one admin command runs against.
type app struct {
	cfg    *config.Config
	store  *storage.Store
	logger zerolog.Logger

	users       *service.UserService
	sessions    *service.SessionService
	timeBuckets *service.TimeBucketService
	exports     *service.ExportService
}

// openApp loads configuration and opens the database. The caller closes it.
// Plan writes skip the lock; database constraints still reject overlaps.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(cfg.Logging, "timebucket-admin")

	store, err := storage.Open(ctx, cfg.Database, storage.Options{AutoMigrate: cfg.Database.AutoMigrate}, logger)
	if err != nil {
		return nil, err
	}

	hasher, err := crypto.NewTokenHasher(cfg.Auth.SessionSecret)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	clk := clock.Real{}
	repos := store.Repos
	planLock := service.NewPlanLocker(lock.NewNoOpLocker(), lock.Policy{TTL: cfg.Locking.TTL})

	a := &app{
		cfg:    cfg,
		store:  store,
		logger: logger,
		users:  service.NewUserService(repos.User, clk, nil, logger),
		sessions: service.NewSessionService(repos.Session, repos.User, hasher, nil, service.SessionConfig{
			TTL: cfg.Auth.SessionTTL,
		}, clk, logger),
		timeBuckets: service.NewTimeBucketService(repos.TimeBucket, repos.User, planLock,
			planner.NewTemplateGenerator(cfg.Planner.TemplateLabelSuffix), clk, nil, logger),
	}

	var uploader service.Uploader
	if cfg.Export.Enabled {
		s3, err := export.NewS3Uploader(ctx, cfg.Export)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		uploader = s3
	}
	a.exports = service.NewExportService(repos.User, repos.TimeBucket, repos.BucketItem, uploader, cfg.Export.Prefix, clk, logger)

	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp runs fn against a freshly opened app with a bounded deadline.
func withApp(timeout time.Duration, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// userByEmail resolves the --email flag shared by most commands.
func (a *app) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return user, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe renders validation failures the way the API reports them.
func describe(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("validation failed:\n  %s", strings.Join(verr.FullMessages(), "\n  "))
	}
	return err
}
