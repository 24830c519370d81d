package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker keeps lock holders in a map. It serializes writers inside one
// process only; run the Redis locker when several servers share a database.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type memoryLock struct {
	owner    string
	deadline time.Time
}

// NewMemoryLocker creates a MemoryLocker. Close stops its background sweep.
func NewMemoryLocker() *MemoryLocker {
	ml := &MemoryLocker{
		locks: make(map[string]memoryLock),
		now:   time.Now,
		done:  make(chan struct{}),
	}
	go ml.sweepEvery(30 * time.Second)
	return ml
}

// Close stops the sweeper. Held locks stay valid until they expire.
func (m *MemoryLocker) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *MemoryLocker) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for key, l := range m.locks {
				if !now.Before(l.deadline) {
					delete(m.locks, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

// holder returns the owner of an unexpired lock on key. Caller holds m.mu.
func (m *MemoryLocker) holder(key string) (string, bool) {
	l, ok := m.locks[key]
	if !ok {
		return "", false
	}
	if !m.now().Before(l.deadline) {
		delete(m.locks, key)
		return "", false
	}
	return l.owner, true
}

// heldBy reports whether owner holds key. Caller holds m.mu.
func (m *MemoryLocker) heldBy(key, owner string) bool {
	holder, ok := m.holder(key)
	return ok && holder == owner
}

// Acquire takes key for ttl unless someone holds it.
func (m *MemoryLocker) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.holder(key); ok {
		return false, nil
	}
	m.locks[key] = memoryLock{owner: owner, deadline: m.now().Add(ttl)}
	return true, nil
}

func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key, owner string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return retry(ctx, maxRetries, retryDelay, func() (bool, error) {
		return m.Acquire(ctx, key, owner, ttl)
	})
}

// Release frees key if owner holds it. It reports false when the lock had
// expired, whether or not someone else has taken it since.
func (m *MemoryLocker) Release(ctx context.Context, key, owner string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.heldBy(key, owner) {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

// Extend pushes the deadline of a lock owner holds to now+ttl.
func (m *MemoryLocker) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.heldBy(key, owner) {
		return false, nil
	}
	m.locks[key] = memoryLock{owner: owner, deadline: m.now().Add(ttl)}
	return true, nil
}

func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.holder(key)
	return ok, nil
}

var _ Locker = (*MemoryLocker)(nil)
