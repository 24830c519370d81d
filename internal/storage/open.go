// Package storage opens the configured database backend and exposes the
// repository set built on it.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/config"
	"github.com/prn-tf/timebucket/internal/repository"
	"github.com/prn-tf/timebucket/internal/repository/postgres"
	"github.com/prn-tf/timebucket/internal/repository/sqlite"
)

// Store bundles the repositories with the connection that backs them.
type Store struct {
	Repos    *repository.Repositories
	Database repository.DatabaseHealth
	Driver   string
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.Database.Close()
}

// Options tune Open.
type Options struct {
	// AutoMigrate applies pending migrations on open: golang-migrate for
	// PostgreSQL, the embedded runner for SQLite.
	AutoMigrate bool

	// InitialInterval is the first retry delay when the database is unreachable.
	InitialInterval time.Duration
}

// Open connects to the configured backend, retrying with exponential backoff
// up to cfg.ConnectRetries times.
func Open(ctx context.Context, cfg config.DatabaseConfig, opts Options, logger zerolog.Logger) (*Store, error) {
	var store *Store

	connect := func() error {
		s, err := open(ctx, cfg, opts, logger)
		if err != nil {
			return err
		}
		store = s
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	if opts.InitialInterval > 0 {
		exp.InitialInterval = opts.InitialInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, cfg.ConnectRetries), ctx)

	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Str("driver", cfg.Driver).Dur("retry_in", wait).Msg("database not ready, retrying")
	}

	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	return store, nil
}

func open(ctx context.Context, cfg config.DatabaseConfig, opts Options, logger zerolog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if opts.AutoMigrate {
			if err := postgres.RunMigrations(cfg.MigrationURL()); err != nil {
				_ = db.Close()
				return nil, backoff.Permanent(err)
			}
		}
		return &Store{Repos: postgres.NewRepositories(db), Database: db, Driver: cfg.Driver}, nil

	case "sqlite":
		sc := sqlite.DefaultConfig(cfg.Path)
		if cfg.JournalMode != "" {
			sc.JournalMode = cfg.JournalMode
		}
		if cfg.BusyTimeout > 0 {
			sc.BusyTimeout = cfg.BusyTimeout
		}

		db, err := sqlite.NewDB(ctx, sc, logger)
		if err != nil {
			return nil, err
		}
		if opts.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, backoff.Permanent(err)
			}
		}
		return &Store{Repos: sqlite.NewRepositories(db), Database: db, Driver: cfg.Driver}, nil

	default:
		return nil, backoff.Permanent(fmt.Errorf("unsupported database driver %q", cfg.Driver))
	}
}
