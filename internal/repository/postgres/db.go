// Package postgres provides PostgreSQL repositories backed by pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/config"
	"github.com/prn-tf/timebucket/internal/repository"
)

// DB wraps the pgx pool shared by the repositories.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB opens the pool and verifies the server is reachable.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	logger = logger.With().Str("component", "postgres").Logger()

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	// Birthdates and completion stamps are stored as UTC; user-local dates
	// are derived in the application.
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "timebucket"
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	if logger.GetLevel() <= zerolog.TraceLevel {
		poolConfig.ConnConfig.Tracer = &statementLogger{logger: logger}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: logger}, nil
}

// Close closes the pool.
func (db *DB) Close() error {
	db.Pool.Close()
	db.logger.Info().Msg("connection pool closed")
	return nil
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

var _ repository.DatabaseHealth = (*DB)(nil)

// WithTx runs fn in a transaction, committing when it returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{}, fn)
}

// WithUserPlanTx runs fn in a transaction holding the user's advisory lock,
// so writes to one plan are applied one at a time even when the application
// lock is disabled. The overlap read happens before fn, outside this
// transaction; the time_buckets_no_overlap exclusion constraint rejects a
// write that races past it.
func (db *DB) WithUserPlanTx(ctx context.Context, userID uuid.UUID, fn func(tx pgx.Tx) error) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "time_buckets:"+userID.String()); err != nil {
			return fmt.Errorf("failed to lock plan: %w", err)
		}
		return fn(tx)
	})
}

// statementLogger traces every statement with its latency.
type statementLogger struct {
	logger zerolog.Logger
}

type statementStartKey struct{}

type statementStart struct {
	sql string
	at  time.Time
}

func (s *statementLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, statementStartKey{}, statementStart{sql: data.SQL, at: time.Now()})
}

func (s *statementLogger) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(statementStartKey{}).(statementStart)
	if !ok {
		return
	}

	event := s.logger.Trace().
		Str("sql", start.sql).
		Dur("duration", time.Since(start.at)).
		Int64("rows", data.CommandTag.RowsAffected())
	if data.Err != nil {
		event = event.Err(data.Err)
	}
	event.Msg("statement")
}

// Querier is satisfied by both the pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)
