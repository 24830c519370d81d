package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
)

var testNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestRepos(t *testing.T) (*DB, *repository.Repositories) {
	t.Helper()

	ctx := context.Background()
	db, err := NewDB(ctx, DefaultConfig(MemoryPath), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db, NewRepositories(db)
}

func createUser(t *testing.T, repos *repository.Repositories, email string) *domain.User {
	t.Helper()
	u := domain.NewUser(email, testNow)
	bd := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	u.Birthdate = &bd
	u.ValuesTags = map[string]any{"family": true}
	require.NoError(t, repos.User.Create(context.Background(), u))
	return u
}

func createBucket(t *testing.T, repos *repository.Repositories, userID uuid.UUID, start, end, pos int) *domain.TimeBucket {
	t.Helper()
	b := domain.NewTimeBucket(userID, testNow)
	b.Label = "bucket"
	b.StartAge, b.EndAge, b.Position = start, end, pos
	b.Granularity = domain.Granularity10Years
	require.NoError(t, repos.TimeBucket.Create(context.Background(), b))
	return b
}

func TestMigrate_Idempotent(t *testing.T) {
	db, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))

	v, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestConfig_DSN(t *testing.T) {
	dsn := DefaultConfig("/var/lib/timebucket.db").DSN()
	assert.Contains(t, dsn, "file:/var/lib/timebucket.db?")
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")

	mem := DefaultConfig(MemoryPath).DSN()
	assert.NotContains(t, mem, "journal_mode")
}

func TestUserRepository(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	u := createUser(t, repos, "a@example.com")

	got, err := repos.User.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
	require.NotNil(t, got.Birthdate)
	assert.Equal(t, "1990-06-15", got.Birthdate.Format(domain.DateLayout))
	assert.Equal(t, domain.DefaultTimezone, got.Timezone)
	assert.Equal(t, true, got.ValuesTags["family"])
	assert.True(t, got.CreatedAt.Equal(testNow))

	t.Run("default notification preference is created with the user", func(t *testing.T) {
		pref, err := repos.NotificationPreference.GetByUserID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, pref.EmailEnabled)
		assert.Equal(t, domain.DefaultDigestTime, pref.DigestTime)
		assert.Empty(t, pref.Events)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := repos.User.Create(ctx, domain.NewUser("a@example.com", testNow))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("update and clear birthdate", func(t *testing.T) {
		got.Birthdate = nil
		got.Timezone = "UTC"
		require.NoError(t, repos.User.Update(ctx, got))

		again, err := repos.User.GetByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Nil(t, again.Birthdate)
		assert.Equal(t, "UTC", again.Timezone)
	})

	t.Run("provider lookup", func(t *testing.T) {
		p := domain.NewUser("oauth@example.com", testNow)
		p.Provider, p.UID = "google_oauth2", "12345"
		require.NoError(t, repos.User.Create(ctx, p))

		found, err := repos.User.GetByProvider(ctx, "google_oauth2", "12345")
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)

		_, err = repos.User.GetByProvider(ctx, "", "")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("list", func(t *testing.T) {
		res, err := repos.User.List(ctx, repository.ListOptions{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total)
		assert.Len(t, res.Items, 1)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repos.User.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.ErrorIs(t, repos.User.Delete(ctx, uuid.New()), domain.ErrUserNotFound)
	})
}

func TestNotificationPreferenceRepository_Update(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, repos, "n@example.com")

	pref, err := repos.NotificationPreference.GetByUserID(ctx, u.ID)
	require.NoError(t, err)

	pref.EmailEnabled = false
	pref.SlackWebhookURL = "https://hooks.slack.com/services/T/B/X"
	pref.DigestTime = "21:15"
	pref.Events = map[string]bool{"weekly_digest": true}
	require.NoError(t, repos.NotificationPreference.Update(ctx, pref))

	got, err := repos.NotificationPreference.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.EmailEnabled)
	assert.Equal(t, "https://hooks.slack.com/services/T/B/X", got.SlackWebhookURL)
	assert.Equal(t, "21:15", got.DigestTime)
	assert.Equal(t, map[string]bool{"weekly_digest": true}, got.Events)

	_, err = repos.NotificationPreference.GetByUserID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotificationPreferenceNotFound)
}

func TestTimeBucketRepository(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	owner := createUser(t, repos, "owner@example.com")
	other := createUser(t, repos, "other@example.com")

	b2 := createBucket(t, repos, owner.ID, 30, 39, 1)
	b1 := createBucket(t, repos, owner.ID, 20, 29, 0)

	list, err := repos.TimeBucket.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b1.ID, list[0].ID, "ordered by position")
	assert.Equal(t, b2.ID, list[1].ID)

	t.Run("ownership scoped lookups", func(t *testing.T) {
		_, err := repos.TimeBucket.GetByID(ctx, other.ID, b1.ID)
		assert.ErrorIs(t, err, domain.ErrTimeBucketNotFound)
		assert.ErrorIs(t, repos.TimeBucket.Delete(ctx, other.ID, b1.ID), domain.ErrTimeBucketNotFound)
	})

	t.Run("position unique per user", func(t *testing.T) {
		dup := domain.NewTimeBucket(owner.ID, testNow)
		dup.Label, dup.StartAge, dup.EndAge, dup.Position = "x", 50, 59, 1
		dup.Granularity = domain.Granularity10Years
		assert.ErrorIs(t, repos.TimeBucket.Create(ctx, dup), domain.ErrTimeBucketPositionTaken)

		// Same position for another user is fine.
		createBucket(t, repos, other.ID, 20, 29, 1)
	})

	t.Run("update", func(t *testing.T) {
		b1.Label = "twenties"
		b1.Description = "early career"
		require.NoError(t, repos.TimeBucket.Update(ctx, b1))

		got, err := repos.TimeBucket.GetByID(ctx, owner.ID, b1.ID)
		require.NoError(t, err)
		assert.Equal(t, "twenties", got.Label)
		assert.Equal(t, "early career", got.Description)
	})

	t.Run("delete cascades items", func(t *testing.T) {
		item := domain.NewBucketItem(b2.ID, testNow)
		item.Title, item.Category = "trip", domain.CategoryTravel
		require.NoError(t, repos.BucketItem.Create(ctx, item))

		require.NoError(t, repos.TimeBucket.Delete(ctx, owner.ID, b2.ID))

		_, err := repos.BucketItem.GetByID(ctx, owner.ID, item.ID)
		assert.ErrorIs(t, err, domain.ErrBucketItemNotFound)
	})
}

func TestTimeBucketRepository_CreateBatchIsAtomic(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, repos, "batch@example.com")

	mk := func(start, end, pos int) *domain.TimeBucket {
		b := domain.NewTimeBucket(u.ID, testNow)
		b.Label, b.StartAge, b.EndAge, b.Position = "b", start, end, pos
		b.Granularity = domain.Granularity10Years
		return b
	}

	err := repos.TimeBucket.CreateBatch(ctx, []*domain.TimeBucket{mk(20, 29, 0), mk(30, 39, 0)})
	require.Error(t, err)

	list, err := repos.TimeBucket.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list, "failed batch must leave nothing behind")

	require.NoError(t, repos.TimeBucket.CreateBatch(ctx, []*domain.TimeBucket{mk(20, 29, 0), mk(30, 39, 1)}))
	list, err = repos.TimeBucket.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestBucketItemRepository(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	owner := createUser(t, repos, "items@example.com")
	stranger := createUser(t, repos, "stranger@example.com")
	b1 := createBucket(t, repos, owner.ID, 20, 29, 0)
	b2 := createBucket(t, repos, owner.ID, 30, 39, 1)

	high := domain.LevelHigh
	year := 2018
	item := domain.NewBucketItem(b2.ID, testNow)
	item.Title = "Climb Kilimanjaro"
	item.Category = domain.CategoryTravel
	item.RiskLevel = &high
	item.TargetYear = &year
	item.Tags = []string{"mountain", "africa"}
	require.NoError(t, repos.BucketItem.Create(ctx, item))

	early := domain.NewBucketItem(b1.ID, testNow.Add(time.Hour))
	early.Title, early.Category = "Learn Go", domain.CategoryLearning
	require.NoError(t, repos.BucketItem.Create(ctx, early))

	got, err := repos.BucketItem.GetByID(ctx, owner.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Climb Kilimanjaro", got.Title)
	assert.Nil(t, got.Difficulty)
	require.NotNil(t, got.RiskLevel)
	assert.Equal(t, domain.LevelHigh, *got.RiskLevel)
	assert.Equal(t, 2018, *got.TargetYear)
	assert.Equal(t, 0, *got.CostEstimate)
	assert.Equal(t, []string{"mountain", "africa"}, got.Tags)
	assert.Equal(t, domain.StatusPlanned, got.Status)

	t.Run("list by user follows bucket position", func(t *testing.T) {
		all, err := repos.BucketItem.ListByUser(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, early.ID, all[0].ID)
	})

	t.Run("list by bucket is ownership scoped", func(t *testing.T) {
		items, err := repos.BucketItem.ListByTimeBucket(ctx, owner.ID, b2.ID)
		require.NoError(t, err)
		assert.Len(t, items, 1)

		items, err = repos.BucketItem.ListByTimeBucket(ctx, stranger.ID, b2.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("complete", func(t *testing.T) {
		got.MarkDone(testNow)
		require.NoError(t, repos.BucketItem.Update(ctx, got))

		done, err := repos.BucketItem.GetByID(ctx, owner.ID, item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDone, done.Status)
		require.NotNil(t, done.CompletedAt)
		assert.True(t, done.CompletedAt.Equal(testNow))
	})

	t.Run("stranger cannot read or delete", func(t *testing.T) {
		_, err := repos.BucketItem.GetByID(ctx, stranger.ID, item.ID)
		assert.ErrorIs(t, err, domain.ErrBucketItemNotFound)
		assert.ErrorIs(t, repos.BucketItem.Delete(ctx, stranger.ID, item.ID), domain.ErrBucketItemNotFound)
	})

	t.Run("create in missing bucket", func(t *testing.T) {
		orphan := domain.NewBucketItem(uuid.New(), testNow)
		orphan.Title, orphan.Category = "x", domain.CategoryOther
		assert.ErrorIs(t, repos.BucketItem.Create(ctx, orphan), domain.ErrTimeBucketNotFound)
	})

	require.NoError(t, repos.BucketItem.Delete(ctx, owner.ID, item.ID))
}

func TestSessionRepository(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, repos, "s@example.com")

	live := &domain.Session{
		ID: uuid.New(), UserID: u.ID, TokenHash: "live",
		IPAddress: "127.0.0.1", UserAgent: "test",
		CreatedAt: testNow, ExpiresAt: testNow.Add(time.Hour),
	}
	stale := &domain.Session{
		ID: uuid.New(), UserID: u.ID, TokenHash: "stale",
		CreatedAt: testNow.Add(-2 * time.Hour), ExpiresAt: testNow,
	}
	require.NoError(t, repos.Session.Create(ctx, live))
	require.NoError(t, repos.Session.Create(ctx, stale))

	got, err := repos.Session.GetByTokenHash(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
	assert.Equal(t, "127.0.0.1", got.IPAddress)
	assert.True(t, got.ExpiresAt.Equal(live.ExpiresAt))

	n, err := repos.Session.DeleteExpired(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repos.Session.GetByTokenHash(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	n, err = repos.Session.DeleteByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, repos.Session.Delete(ctx, live.ID), domain.ErrSessionNotFound)
}
