// Package lock serializes writes that must read-check-write a user's plan.
// MemoryLocker covers a single server; RedisLocker covers several.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotAcquired indicates the lock stayed held by someone else for every attempt.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out expiring named locks.
type Locker interface {
	// Acquire takes key for ttl on behalf of owner. It reports false, without
	// error, when the key is held by anyone.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// AcquireWithRetry repeats Acquire up to maxRetries more times.
	AcquireWithRetry(ctx context.Context, key, owner string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release frees key if owner still holds it and reports whether it did.
	// A lock that expired and was taken by someone else is left alone.
	Release(ctx context.Context, key, owner string) (bool, error)

	// Extend resets the ttl of a key owner still holds.
	Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	IsHeld(ctx context.Context, key string) (bool, error)
}

// Policy describes how long a lock lives and how hard to wait for it.
type Policy struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// With runs fn while holding key. It returns ErrNotAcquired when the lock
// could not be taken within the policy, and the error of fn otherwise.
func With(ctx context.Context, locker Locker, key string, p Policy, fn func(ctx context.Context) error) error {
	owner := NewOwner()
	acquired, err := locker.AcquireWithRetry(ctx, key, owner, p.TTL, p.MaxRetries, p.RetryDelay)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !acquired {
		return ErrNotAcquired
	}

	defer func() {
		// Release must run even when ctx is already cancelled.
		_, _ = locker.Release(context.WithoutCancel(ctx), key, owner)
	}()

	return fn(ctx)
}

// NewOwner returns a fresh token identifying one acquisition.
func NewOwner() string {
	return uuid.NewString()
}

// Keys names the locks taken by the services.
var Keys lockKeys

type lockKeys struct{}

// UserTimeBuckets guards the overlap and position checks over one user's buckets.
func (lockKeys) UserTimeBuckets(userID uuid.UUID) string {
	return "lock:user:" + userID.String() + ":time_buckets"
}

// SessionPurge guards the periodic expired-session sweep.
func (lockKeys) SessionPurge() string {
	return "lock:gc:sessions"
}

// retry calls try up to maxRetries+1 times, sleeping retryDelay in between.
func retry(ctx context.Context, maxRetries int, retryDelay time.Duration, try func() (bool, error)) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := try()
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}
