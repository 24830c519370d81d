package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/lock"
	"github.com/prn-tf/timebucket/internal/pkg/clock"
	"github.com/prn-tf/timebucket/internal/planner"
	"github.com/prn-tf/timebucket/internal/repository"
)

// =============================================================================
// In-memory repositories
// =============================================================================

// memStore backs every fake repository so ownership joins work like the SQL ones.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domain.User
	prefs    map[uuid.UUID]*domain.NotificationPreference
	buckets  map[uuid.UUID]*domain.TimeBucket
	items    map[uuid.UUID]*domain.BucketItem
	sessions map[uuid.UUID]*domain.Session

	// failCreateBatchAt makes CreateBatch fail at that index when >= 0.
	failCreateBatchAt int
	listErr           error

	// concurrentBucket is stored by the next Create just before its own insert,
	// as if another writer committed between validation and write.
	concurrentBucket *domain.TimeBucket
}

func newMemStore() *memStore {
	return &memStore{
		users:             make(map[uuid.UUID]*domain.User),
		prefs:             make(map[uuid.UUID]*domain.NotificationPreference),
		buckets:           make(map[uuid.UUID]*domain.TimeBucket),
		items:             make(map[uuid.UUID]*domain.BucketItem),
		sessions:          make(map[uuid.UUID]*domain.Session),
		failCreateBatchAt: -1,
	}
}

func (s *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		User:                   (*memUserRepo)(s),
		NotificationPreference: (*memPrefRepo)(s),
		TimeBucket:             (*memBucketRepo)(s),
		BucketItem:             (*memItemRepo)(s),
		Session:                (*memSessionRepo)(s),
	}
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

type memUserRepo memStore

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || (user.Provider != "" && u.Provider == user.Provider && u.UID == user.UID) {
			return domain.ErrUserAlreadyExists
		}
	}
	r.users[user.ID] = copyOf(user)
	r.prefs[user.ID] = domain.NewNotificationPreference(user.ID, user.CreatedAt)
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return copyOf(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return copyOf(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) GetByProvider(ctx context.Context, provider, uid string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Provider == provider && u.UID == uid {
			return copyOf(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = copyOf(user)
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	delete(r.prefs, id)
	for bid, b := range r.buckets {
		if b.UserID == id {
			delete(r.buckets, bid)
			for iid, it := range r.items {
				if it.TimeBucketID == bid {
					delete(r.items, iid)
				}
			}
		}
	}
	return nil
}

func (r *memUserRepo) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := &repository.ListResult[domain.User]{Total: int64(len(r.users)), Limit: opts.Limit, Offset: opts.Offset}
	for _, u := range r.users {
		out.Items = append(out.Items, copyOf(u))
	}
	return out, nil
}

type memPrefRepo memStore

func (r *memPrefRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.prefs[userID]; ok {
		return copyOf(p), nil
	}
	return nil, domain.ErrNotificationPreferenceNotFound
}

func (r *memPrefRepo) Update(ctx context.Context, pref *domain.NotificationPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prefs[pref.UserID]; !ok {
		return domain.ErrNotificationPreferenceNotFound
	}
	r.prefs[pref.UserID] = copyOf(pref)
	return nil
}

type memBucketRepo memStore

func (r *memBucketRepo) positionTaken(b *domain.TimeBucket) bool {
	for _, other := range r.buckets {
		if other.UserID == b.UserID && other.ID != b.ID && other.Position == b.Position {
			return true
		}
	}
	return false
}

// overlapsStored mirrors the postgres exclusion constraint.
func (r *memBucketRepo) overlapsStored(b *domain.TimeBucket) bool {
	for _, other := range r.buckets {
		if other.UserID == b.UserID && other.ID != b.ID && b.Overlaps(other) {
			return true
		}
	}
	return false
}

func (r *memBucketRepo) Create(ctx context.Context, bucket *domain.TimeBucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[bucket.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if c := r.concurrentBucket; c != nil {
		r.buckets[c.ID] = copyOf(c)
		r.concurrentBucket = nil
	}
	if r.overlapsStored(bucket) {
		return domain.ErrTimeBucketOverlap
	}
	if r.positionTaken(bucket) {
		return domain.ErrTimeBucketPositionTaken
	}
	r.buckets[bucket.ID] = copyOf(bucket)
	return nil
}

func (r *memBucketRepo) CreateBatch(ctx context.Context, buckets []*domain.TimeBucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range buckets {
		if i == r.failCreateBatchAt {
			return domain.ErrTimeBucketOverlap
		}
		if r.positionTaken(b) {
			return domain.ErrTimeBucketPositionTaken
		}
	}
	for _, b := range buckets {
		r.buckets[b.ID] = copyOf(b)
	}
	return nil
}

func (r *memBucketRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.TimeBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[id]; ok && b.UserID == userID {
		return copyOf(b), nil
	}
	return nil, domain.ErrTimeBucketNotFound
}

func (r *memBucketRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.TimeBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.TimeBucket
	for _, b := range r.buckets {
		if b.UserID == userID {
			out = append(out, copyOf(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memBucketRepo) Update(ctx context.Context, bucket *domain.TimeBucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[bucket.ID]; !ok || b.UserID != bucket.UserID {
		return domain.ErrTimeBucketNotFound
	}
	if r.positionTaken(bucket) {
		return domain.ErrTimeBucketPositionTaken
	}
	r.buckets[bucket.ID] = copyOf(bucket)
	return nil
}

func (r *memBucketRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[id]; !ok || b.UserID != userID {
		return domain.ErrTimeBucketNotFound
	}
	delete(r.buckets, id)
	for iid, it := range r.items {
		if it.TimeBucketID == id {
			delete(r.items, iid)
		}
	}
	return nil
}

type memItemRepo memStore

func (r *memItemRepo) owned(userID uuid.UUID, item *domain.BucketItem) bool {
	b, ok := r.buckets[item.TimeBucketID]
	return ok && b.UserID == userID
}

func (r *memItemRepo) Create(ctx context.Context, item *domain.BucketItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buckets[item.TimeBucketID]; !ok {
		return domain.ErrTimeBucketNotFound
	}
	r.items[item.ID] = copyOf(item)
	return nil
}

func (r *memItemRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.BucketItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[id]; ok && r.owned(userID, it) {
		return copyOf(it), nil
	}
	return nil, domain.ErrBucketItemNotFound
}

func (r *memItemRepo) ListByTimeBucket(ctx context.Context, userID, bucketID uuid.UUID) ([]*domain.BucketItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.BucketItem
	for _, it := range r.items {
		if it.TimeBucketID == bucketID && r.owned(userID, it) {
			out = append(out, copyOf(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memItemRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.BucketItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.BucketItem
	for _, it := range r.items {
		if r.owned(userID, it) {
			out = append(out, copyOf(it))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := r.buckets[out[i].TimeBucketID].Position, r.buckets[out[j].TimeBucketID].Position
		if pi != pj {
			return pi < pj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memItemRepo) Update(ctx context.Context, item *domain.BucketItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return domain.ErrBucketItemNotFound
	}
	r.items[item.ID] = copyOf(item)
	return nil
}

func (r *memItemRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[id]; !ok || !r.owned(userID, it) {
		return domain.ErrBucketItemNotFound
	}
	delete(r.items, id)
	return nil
}

type memSessionRepo memStore

func (r *memSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[session.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	r.sessions[session.ID] = copyOf(session)
	return nil
}

func (r *memSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			return copyOf(s), nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *memSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.IsExpired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// testify mocks
// =============================================================================

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, body, contentType)
	return args.String(0), args.Error(1)
}

// =============================================================================
// Fixture
// =============================================================================

// testNow falls before the June 15 birthdays used by fixture users.
var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memStore
	clock    *clock.Fixed
	users    *UserService
	buckets  *TimeBucketService
	items    *BucketItemService
	board    *DashboardService
	notify   *NotificationService
	planLock *PlanLocker
}

func newFixture() *fixture {
	store := newMemStore()
	repos := store.repos()
	clk := clock.NewFixed(testNow)
	logger := zerolog.Nop()
	planLock := NewPlanLocker(lock.NewMemoryLocker(), lock.Policy{TTL: time.Second, MaxRetries: 0, RetryDelay: time.Millisecond})

	return &fixture{
		store:    store,
		clock:    clk,
		planLock: planLock,
		users:    NewUserService(repos.User, clk, nil, logger),
		buckets:  NewTimeBucketService(repos.TimeBucket, repos.User, planLock, planner.NewTemplateGenerator(""), clk, nil, logger),
		items:    NewBucketItemService(repos.BucketItem, repos.TimeBucket, repos.User, clk, nil, logger),
		board:    NewDashboardService(repos.User, repos.TimeBucket, repos.BucketItem, clk, logger),
		notify:   NewNotificationService(repos.NotificationPreference, clk, nil, logger),
	}
}

func (f *fixture) user(birthYear int) *domain.User {
	u := domain.NewUser(uuid.NewString()+"@example.com", testNow)
	if birthYear > 0 {
		b := time.Date(birthYear, 6, 15, 0, 0, 0, 0, time.UTC)
		u.Birthdate = &b
	}
	u.Timezone = "UTC"
	if err := (*memUserRepo)(f.store).Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func intp(v int) *int { return &v }
