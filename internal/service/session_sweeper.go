package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/lock"
)

// SessionSweeper periodically deletes expired sessions.
// Across several instances only the holder of the purge lock sweeps.
type SessionSweeper struct {
	sessions *SessionService
	locker   lock.Locker
	interval time.Duration
	logger   zerolog.Logger

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	// Deleted is the number of sessions removed.
	Deleted int64

	// Skipped is true when another instance held the purge lock.
	Skipped bool

	// Duration is how long the run took.
	Duration time.Duration
}

// NewSessionSweeper creates a sweeper that runs every interval.
func NewSessionSweeper(
	sessions *SessionService,
	locker lock.Locker,
	interval time.Duration,
	logger zerolog.Logger,
) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		locker:   locker,
		interval: interval,
		logger:   logger.With().Str("service", "session_sweeper").Logger(),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the sweep scheduler.
func (s *SessionSweeper) Start() {
	s.mu.Lock()
	if s.running || s.interval <= 0 {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.interval).Msg("starting session sweeper")

	go s.runLoop()
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *SessionSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	<-s.doneChan

	s.logger.Info().Msg("session sweeper stopped")
}

func (s *SessionSweeper) runLoop() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// RunOnce performs a single sweep.
func (s *SessionSweeper) RunOnce(ctx context.Context) SweepResult {
	start := time.Now()
	result := SweepResult{}

	// The lock outlives a crashed holder by at most half an interval.
	lockTTL := s.interval / 2
	if lockTTL < time.Minute {
		lockTTL = time.Minute
	}

	key, owner := lock.Keys.SessionPurge(), lock.NewOwner()
	acquired, err := s.locker.Acquire(ctx, key, owner, lockTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to acquire session purge lock")
		result.Duration = time.Since(start)
		return result
	}
	if !acquired {
		s.logger.Debug().Msg("session purge lock held by another instance, skipping run")
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}
	defer func() {
		if _, err := s.locker.Release(context.WithoutCancel(ctx), key, owner); err != nil {
			s.logger.Error().Err(err).Msg("failed to release session purge lock")
		}
	}()

	deleted, err := s.sessions.PurgeExpired(ctx)
	if err == nil {
		result.Deleted = deleted
	}
	result.Duration = time.Since(start)

	s.logger.Debug().
		Int64("deleted", result.Deleted).
		Dur("duration", result.Duration).
		Msg("session sweep completed")

	return result
}
