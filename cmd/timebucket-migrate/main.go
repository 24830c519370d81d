// Package main is the entry point for the timebucket database migration tool.
// PostgreSQL schemas are managed with golang-migrate; SQLite databases use the
// embedded forward-only runner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/config"
	"github.com/prn-tf/timebucket/internal/logging"
	"github.com/prn-tf/timebucket/internal/repository/postgres"
	"github.com/prn-tf/timebucket/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	switch command {
	case "help", "-h", "--help":
		printUsage()
		return
	case "version":
		fmt.Printf("timebucket migration tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
	case "up", "down", "force":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging, "timebucket-migrate")

	if cfg.Database.IsEmbedded() {
		err = runSQLite(cfg.Database, command, logger)
	} else {
		err = runPostgres(cfg.Database, command, args[1:], logger)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
}

func runPostgres(cfg config.DatabaseConfig, command string, args []string, logger zerolog.Logger) error {
	m, err := postgres.NewMigrator(cfg.MigrationURL())
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	case "force":
		if len(args) != 1 {
			return errors.New("force requires a version argument")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("failed to force version %d: %w", version, err)
		}
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info().Str("driver", "postgres").Msg("schema has no migrations applied")
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	default:
		logger.Info().Str("driver", "postgres").Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	}
	return nil
}

func runSQLite(cfg config.DatabaseConfig, command string, logger zerolog.Logger) error {
	ctx := context.Background()

	sc := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		sc.JournalMode = cfg.JournalMode
	}
	db, err := sqlite.NewDB(ctx, sc, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	case "down", "force":
		return fmt.Errorf("%s is not supported for sqlite; migrations are forward-only", command)
	}

	version, err := db.Version(ctx)
	if err != nil {
		return err
	}
	logger.Info().Str("driver", "sqlite").Str("path", cfg.Path).Int("version", version).Msg("schema version")
	return nil
}

func printUsage() {
	fmt.Println(`timebucket migration tool

Usage:
  timebucket-migrate [-config path] <command> [arguments]

Commands:
  up          Apply all pending migrations
  down        Roll back the last migration (postgres only)
  force N     Force set the migration version after a failed run (postgres only)
  version     Print tool and schema version
  help        Show this help message

Environment Variables:
  TIMEBUCKET_DATABASE_DRIVER    postgres or sqlite
  TIMEBUCKET_DATABASE_HOST      PostgreSQL host
  TIMEBUCKET_DATABASE_PATH      SQLite database file

Examples:
  timebucket-migrate up
  timebucket-migrate down
  timebucket-migrate force 1`)
}
