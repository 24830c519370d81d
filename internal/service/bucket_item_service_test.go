package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/timebucket/internal/domain"
)

// itemFixture returns a fixture with a user born in 1990 owning the 20-29 bucket.
func itemFixture(t *testing.T) (*fixture, *domain.User, *domain.TimeBucket) {
	t.Helper()
	f := newFixture()
	user := f.user(1990)
	bucket, err := f.buckets.Create(context.Background(), createInput(user.ID, "20-29", 20, 29, 0))
	require.NoError(t, err)
	return f, user, bucket
}

func itemInput(user *domain.User, bucket *domain.TimeBucket) CreateBucketItemInput {
	return CreateBucketItemInput{
		UserID:         user.ID,
		TimeBucketID:   bucket.ID,
		Title:          "Walk the Camino",
		Category:       domain.CategoryTravel,
		ValueStatement: "Time alone before kids",
	}
}

func TestBucketItemService_Create_Defaults(t *testing.T) {
	f, user, bucket := itemFixture(t)

	item, err := f.items.Create(context.Background(), itemInput(user, bucket))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPlanned, item.Status)
	require.NotNil(t, item.CostEstimate)
	assert.Equal(t, 0, *item.CostEstimate)
	assert.Equal(t, []string{}, item.Tags)
	assert.Nil(t, item.CompletedAt)
	assert.Equal(t, bucket.ID, item.TimeBucketID)
}

func TestBucketItemService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *CreateBucketItemInput)
		want   []string
	}{
		{
			name:   "target year before bucket",
			modify: func(in *CreateBucketItemInput) { in.TargetYear = intp(2009) },
			want:   []string{"Target year must be between 2010 and 2019 for this bucket"},
		},
		{
			name:   "target year after bucket",
			modify: func(in *CreateBucketItemInput) { in.TargetYear = intp(2020) },
			want:   []string{"Target year must be between 2010 and 2019 for this bucket"},
		},
		{
			name:   "done without completion time",
			modify: func(in *CreateBucketItemInput) { in.Status = domain.StatusDone },
			want:   []string{"Completed at can't be blank when status is done"},
		},
		{
			name: "blank required fields",
			modify: func(in *CreateBucketItemInput) {
				in.Title = " "
				in.ValueStatement = ""
				in.CostEstimate = intp(-1)
			},
			want: []string{
				"Title can't be blank",
				"Value statement can't be blank",
				"Cost estimate must be greater than or equal to 0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, user, bucket := itemFixture(t)

			in := itemInput(user, bucket)
			tt.modify(&in)
			_, err := f.items.Create(context.Background(), in)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.FullMessages())
			assert.Empty(t, f.store.items)
		})
	}
}

func TestBucketItemService_TargetYearBoundsAreInclusive(t *testing.T) {
	f, user, bucket := itemFixture(t)

	for _, year := range []int{2010, 2019} {
		in := itemInput(user, bucket)
		in.TargetYear = intp(year)
		_, err := f.items.Create(context.Background(), in)
		assert.NoError(t, err, "year %d", year)
	}
}

func TestBucketItemService_TargetYearUnboundedWithoutBirthdate(t *testing.T) {
	f, user, bucket := itemFixture(t)
	f.store.users[user.ID].Birthdate = nil

	in := itemInput(user, bucket)
	in.TargetYear = intp(1900)
	_, err := f.items.Create(context.Background(), in)
	assert.NoError(t, err)
}

func TestBucketItemService_Complete(t *testing.T) {
	f, user, bucket := itemFixture(t)
	ctx := context.Background()

	item, err := f.items.Create(ctx, itemInput(user, bucket))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	done, err := f.items.Complete(ctx, user.ID, item.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, testNow.Add(time.Hour), *done.CompletedAt)

	stored, err := f.items.Get(ctx, user.ID, item.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDone())
}

func TestBucketItemService_Complete_RevalidatesItem(t *testing.T) {
	f, user, bucket := itemFixture(t)
	ctx := context.Background()

	item, err := f.items.Create(ctx, itemInput(user, bucket))
	require.NoError(t, err)

	// Corrupt the stored row the way a stale write would.
	f.store.items[item.ID].ValueStatement = ""

	_, err = f.items.Complete(ctx, user.ID, item.ID)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"can't be blank"}, verr.On("value_statement"))
	assert.Equal(t, domain.StatusPlanned, f.store.items[item.ID].Status)
}

func TestBucketItemService_Update(t *testing.T) {
	f, user, bucket := itemFixture(t)
	ctx := context.Background()

	in := itemInput(user, bucket)
	low := domain.LevelLow
	in.Difficulty = &low
	in.TargetYear = intp(2015)
	item, err := f.items.Create(ctx, in)
	require.NoError(t, err)

	t.Run("clears nullable fields", func(t *testing.T) {
		title := "Walk the whole Camino"
		got, err := f.items.Update(ctx, UpdateBucketItemInput{
			UserID:     user.ID,
			ID:         item.ID,
			Title:      &title,
			Difficulty: Null[domain.Level](),
			TargetYear: Null[int](),
			Tags:       []string{"walking"},
		})
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
		assert.Nil(t, got.Difficulty)
		assert.Nil(t, got.TargetYear)
		assert.Equal(t, []string{"walking"}, got.Tags)
		assert.Equal(t, "Time alone before kids", got.ValueStatement)
	})

	t.Run("done requires completed_at", func(t *testing.T) {
		done := domain.StatusDone
		_, err := f.items.Update(ctx, UpdateBucketItemInput{UserID: user.ID, ID: item.ID, Status: &done})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"Completed at can't be blank when status is done"}, verr.FullMessages())
	})

	t.Run("done with completed_at", func(t *testing.T) {
		done := domain.StatusDone
		at := testNow.Add(-24 * time.Hour)
		got, err := f.items.Update(ctx, UpdateBucketItemInput{
			UserID: user.ID, ID: item.ID, Status: &done, CompletedAt: Some(at),
		})
		require.NoError(t, err)
		assert.Equal(t, at, *got.CompletedAt)
	})
}

func TestBucketItemService_Ownership(t *testing.T) {
	f, user, bucket := itemFixture(t)
	ctx := context.Background()
	other := f.user(1985)

	item, err := f.items.Create(ctx, itemInput(user, bucket))
	require.NoError(t, err)

	_, err = f.items.Get(ctx, other.ID, item.ID)
	assert.ErrorIs(t, err, domain.ErrBucketItemNotFound)

	_, err = f.items.Complete(ctx, other.ID, item.ID)
	assert.ErrorIs(t, err, domain.ErrBucketItemNotFound)

	assert.ErrorIs(t, f.items.Delete(ctx, other.ID, item.ID), domain.ErrBucketItemNotFound)

	_, err = f.items.ListByTimeBucket(ctx, other.ID, bucket.ID)
	assert.ErrorIs(t, err, domain.ErrTimeBucketNotFound)

	_, err = f.items.Create(ctx, CreateBucketItemInput{
		UserID: other.ID, TimeBucketID: bucket.ID, Title: "x", Category: domain.CategoryOther, ValueStatement: "y",
	})
	assert.ErrorIs(t, err, domain.ErrTimeBucketNotFound)

	items, err := f.items.ListByTimeBucket(ctx, user.ID, bucket.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, f.items.Delete(ctx, user.ID, item.ID))
	_, err = f.items.Get(ctx, user.ID, item.ID)
	assert.ErrorIs(t, err, domain.ErrBucketItemNotFound)
}

func TestBucketItemService_UnknownBucket(t *testing.T) {
	f, user, _ := itemFixture(t)
	_, err := f.items.ListByTimeBucket(context.Background(), user.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrTimeBucketNotFound)
}
