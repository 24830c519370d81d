package lock

import (
	"context"
	"time"
)

// NoOpLocker grants every lock immediately. It backs locking.driver=none,
// where the database constraints are the only guard against overlaps.
type NoOpLocker struct{}

// NewNoOpLocker creates a NoOpLocker.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

// Acquire succeeds unless ctx is done.
func (n *NoOpLocker) Acquire(ctx context.Context, _, _ string, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (n *NoOpLocker) AcquireWithRetry(ctx context.Context, key, owner string, ttl time.Duration, _ int, _ time.Duration) (bool, error) {
	return n.Acquire(ctx, key, owner, ttl)
}

func (n *NoOpLocker) Release(context.Context, string, string) (bool, error) {
	return true, nil
}

func (n *NoOpLocker) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return n.Acquire(ctx, key, owner, ttl)
}

// IsHeld is always false: nothing is ever recorded.
func (n *NoOpLocker) IsHeld(ctx context.Context, _ string) (bool, error) {
	return false, ctx.Err()
}

var _ Locker = (*NoOpLocker)(nil)
