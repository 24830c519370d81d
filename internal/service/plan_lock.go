package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/lock"
)

// PlanLocker serializes the read-check-write sequences that validate a
// candidate bucket against the rest of the user's plan.
type PlanLocker struct {
	locker lock.Locker
	policy lock.Policy
}

// NewPlanLocker creates a PlanLocker on top of locker.
func NewPlanLocker(locker lock.Locker, policy lock.Policy) *PlanLocker {
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &PlanLocker{locker: locker, policy: policy}
}

// WithUser runs fn while holding the user's time bucket lock.
// A lock that stays held past the retry budget yields ErrConcurrentModification.
func (p *PlanLocker) WithUser(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	err := lock.With(ctx, p.locker, lock.Keys.UserTimeBuckets(userID), p.policy, fn)
	if errors.Is(err, lock.ErrNotAcquired) {
		return ErrConcurrentModification
	}
	return err
}
