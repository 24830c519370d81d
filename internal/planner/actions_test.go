package planner

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/timebucket/internal/domain"
)

func TestBuildActionsNow(t *testing.T) {
	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	user := userBornIn(1990)
	b := newBucket("30-39", 30, 39, 0)

	withYear := func(title string, status domain.ItemStatus, year int) *domain.BucketItem {
		item := newItem(b, domain.CategoryCareer, status, nil)
		item.Title = title
		item.TargetYear = intPtr(year)
		return item
	}

	items := []*domain.BucketItem{
		withYear("far", domain.StatusPlanned, 2025+11),
		withYear("plus five", domain.StatusPlanned, 2025+5),
		withYear("plus three", domain.StatusInProgress, 2025+3),
		withYear("overdue", domain.StatusPlanned, 2015),
		withYear("done overdue", domain.StatusDone, 2010),
		newItem(b, domain.CategoryOther, domain.StatusPlanned, nil),
	}

	got, err := BuildActionsNow(user, []*domain.TimeBucket{b}, items, today)
	require.NoError(t, err)

	assert.Equal(t, 34, got.CurrentAge)
	assert.Equal(t, 2025, got.CurrentYear)
	assert.Equal(t, 5, got.ThresholdYears)

	require.Len(t, got.Items, 3)
	assert.Equal(t, "overdue", got.Items[0].Title)
	assert.Equal(t, ReasonOverdue, got.Items[0].Reason)
	assert.Equal(t, -10, got.Items[0].YearsUntil)
	assert.Equal(t, "plus three", got.Items[1].Title)
	assert.Equal(t, ReasonApproaching, got.Items[1].Reason)
	assert.Equal(t, "plus five", got.Items[2].Title)
	assert.Equal(t, 5, got.Items[2].YearsUntil)
	assert.Equal(t, "30-39", got.Items[2].BucketLabel)
}

func TestBuildActionsNow_RequiresBirthdate(t *testing.T) {
	_, err := BuildActionsNow(&domain.User{ID: uuid.New()}, nil, nil, time.Now())

	assert.ErrorIs(t, err, domain.ErrBirthdateRequired)
	assert.Equal(t, "Birthdate is required to calculate actions now", domain.UserMessage(err))
}

func TestSelectActions_StableTies(t *testing.T) {
	b := newBucket("20-29", 20, 29, 0)
	var items []*domain.BucketItem
	for _, title := range []string{"a", "b", "c"} {
		item := newItem(b, domain.CategoryTravel, domain.StatusPlanned, nil)
		item.Title = title
		item.TargetYear = intPtr(2026)
		items = append(items, item)
	}

	got := SelectActions(items, nil, 2025, ActionThresholdYears)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Title, got[1].Title, got[2].Title})
}

func TestSelectActions_CurrentYearIsApproaching(t *testing.T) {
	b := newBucket("20-29", 20, 29, 0)
	item := newItem(b, domain.CategoryTravel, domain.StatusPlanned, nil)
	item.TargetYear = intPtr(2025)

	got := SelectActions([]*domain.BucketItem{item}, nil, 2025, ActionThresholdYears)

	require.Len(t, got, 1)
	assert.Equal(t, ReasonApproaching, got[0].Reason)
	assert.Zero(t, got[0].YearsUntil)
}
