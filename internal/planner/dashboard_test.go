package planner

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/timebucket/internal/domain"
)

func intPtr(v int) *int { return &v }

func newItem(b *domain.TimeBucket, category domain.Category, status domain.ItemStatus, cost *int) *domain.BucketItem {
	item := &domain.BucketItem{
		ID:           uuid.New(),
		TimeBucketID: b.ID,
		Title:        string(category) + " goal",
		Category:     category,
		Status:       status,
		CostEstimate: cost,
	}
	if status == domain.StatusDone {
		now := time.Now()
		item.CompletedAt = &now
	}
	return item
}

func newBucket(label string, start, end, pos int) *domain.TimeBucket {
	return &domain.TimeBucket{ID: uuid.New(), Label: label, StartAge: start, EndAge: end, Position: pos}
}

func TestBuildReport_Empty(t *testing.T) {
	r := BuildReport(nil, nil)

	assert.Empty(t, r.Summary.BucketDensity)
	require.Len(t, r.Summary.CategoryDistribution, len(domain.Categories))
	for _, share := range r.Summary.CategoryDistribution {
		assert.Zero(t, share.Count)
		assert.Zero(t, share.Percentage)
	}
	assert.Equal(t, CompletionStats{}, r.Summary.CompletionStats)
	assert.Zero(t, r.Summary.TotalItems)

	assert.Zero(t, r.Review.TotalCompleted)
	assert.Zero(t, r.Review.TotalCost)
	assert.NotNil(t, r.Review.Items)
	for _, a := range r.Review.CategoryAchievements {
		assert.Zero(t, a.AchievementRate)
	}
}

func TestBuildSummary(t *testing.T) {
	b1 := newBucket("20-29", 20, 29, 0)
	b2 := newBucket("30-39", 30, 39, 1)
	b3 := newBucket("40-49", 40, 49, 2)
	items := []*domain.BucketItem{
		newItem(b1, domain.CategoryTravel, domain.StatusDone, intPtr(1000)),
		newItem(b1, domain.CategoryTravel, domain.StatusPlanned, nil),
		newItem(b2, domain.CategoryCareer, domain.StatusInProgress, intPtr(250)),
	}

	s := BuildSummary([]*domain.TimeBucket{b1, b2, b3}, items)

	require.Len(t, s.BucketDensity, 3)
	assert.Equal(t, BucketDensity{BucketID: b1.ID, Label: "20-29", StartAge: 20, EndAge: 29, ItemCount: 2, TotalCost: 1000}, s.BucketDensity[0])
	assert.Equal(t, 1, s.BucketDensity[1].ItemCount)
	assert.Equal(t, 250, s.BucketDensity[1].TotalCost)
	assert.Zero(t, s.BucketDensity[2].ItemCount)

	assert.Equal(t, domain.CategoryTravel, s.CategoryDistribution[0].Category)
	assert.Equal(t, 2, s.CategoryDistribution[0].Count)
	assert.Equal(t, 66.67, s.CategoryDistribution[0].Percentage)
	assert.Equal(t, 33.33, s.CategoryDistribution[1].Percentage)
	assert.Zero(t, s.CategoryDistribution[2].Percentage)

	assert.Equal(t, CompletionStats{Total: 3, Completed: 1, InProgress: 1, Planned: 1, CompletionRate: 33.33}, s.CompletionStats)
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, 3, s.TotalBuckets)
}

func TestBuildReview(t *testing.T) {
	b1 := newBucket("20-29", 20, 29, 0)
	b2 := newBucket("30-39", 30, 39, 1)
	doneHealth := newItem(b1, domain.CategoryHealth, domain.StatusDone, intPtr(500))
	doneHealth.TargetYear = intPtr(2015)
	items := []*domain.BucketItem{
		doneHealth,
		newItem(b1, domain.CategoryHealth, domain.StatusPlanned, intPtr(9000)),
		newItem(b2, domain.CategoryFinance, domain.StatusInProgress, intPtr(700)),
		newItem(b2, domain.CategoryLearning, domain.StatusDone, nil),
	}

	r := BuildReview([]*domain.TimeBucket{b1, b2}, items)

	assert.Equal(t, 2, r.TotalCompleted)
	assert.Equal(t, 500, r.TotalCost)

	health := r.CategoryAchievements[4]
	assert.Equal(t, CategoryAchievement{Category: domain.CategoryHealth, Total: 2, Completed: 1, AchievementRate: 50.0}, health)
	assert.Equal(t, 0.0, r.CategoryAchievements[3].AchievementRate)
	assert.Equal(t, 100.0, r.CategoryAchievements[5].AchievementRate)

	require.Len(t, r.BucketCompletions, 2)
	assert.Equal(t, BucketCompletion{
		BucketID: b1.ID, Label: "20-29", StartAge: 20, EndAge: 29,
		CompletedCount: 1, TotalCount: 2, CumulativeCost: 500, CompletionRate: 50,
	}, r.BucketCompletions[0])
	assert.Equal(t, 0, r.BucketCompletions[1].CumulativeCost, "only done items contribute cost")

	require.Len(t, r.Items, 2)
	assert.Equal(t, CompletedItem{
		ID: doneHealth.ID, Title: doneHealth.Title, Category: domain.CategoryHealth,
		CostEstimate: intPtr(500), TargetYear: intPtr(2015),
		BucketLabel: "20-29", BucketAgeRange: "20-29",
	}, r.Items[0])
	assert.Equal(t, "30-39", r.Items[1].BucketAgeRange)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 14.29, Percent(1, 7))
	assert.Equal(t, 100.0, Percent(4, 4))
}
