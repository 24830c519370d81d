package planner

import (
	"math"

	"github.com/google/uuid"

	"github.com/prn-tf/timebucket/internal/domain"
)

// =============================================================================
// Report Sections
// =============================================================================

// BucketDensity summarizes the items planned in one bucket.
type BucketDensity struct {
	BucketID  uuid.UUID `json:"bucket_id"`
	Label     string    `json:"label"`
	StartAge  int       `json:"start_age"`
	EndAge    int       `json:"end_age"`
	ItemCount int       `json:"item_count"`
	TotalCost int       `json:"total_cost"`
}

// CategoryShare is one category's slice of all items.
type CategoryShare struct {
	Category   domain.Category `json:"category"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// CompletionStats counts items per status.
type CompletionStats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	Planned        int     `json:"planned"`
	CompletionRate float64 `json:"completion_rate"`
}

// CategoryAchievement compares done items to all items of one category.
type CategoryAchievement struct {
	Category        domain.Category `json:"category"`
	Total           int             `json:"total"`
	Completed       int             `json:"completed"`
	AchievementRate float64         `json:"achievement_rate"`
}

// BucketCompletion rolls up completion inside one bucket.
// CumulativeCost only sums done items.
type BucketCompletion struct {
	BucketID       uuid.UUID `json:"bucket_id"`
	Label          string    `json:"label"`
	StartAge       int       `json:"start_age"`
	EndAge         int       `json:"end_age"`
	CompletedCount int       `json:"completed_count"`
	TotalCount     int       `json:"total_count"`
	CumulativeCost int       `json:"cumulative_cost"`
	CompletionRate float64   `json:"completion_rate"`
}

// CompletedItem is a done item enriched with its bucket.
type CompletedItem struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Category       domain.Category `json:"category"`
	CostEstimate   *int            `json:"cost_estimate"`
	TargetYear     *int            `json:"target_year"`
	BucketLabel    string          `json:"bucket_label"`
	BucketAgeRange string          `json:"bucket_age_range"`
}

// Summary is the overview section of the dashboard.
type Summary struct {
	BucketDensity        []BucketDensity `json:"bucket_density"`
	CategoryDistribution []CategoryShare `json:"category_distribution"`
	CompletionStats      CompletionStats `json:"completion_stats"`
	TotalItems           int             `json:"total_items"`
	TotalBuckets         int             `json:"total_buckets"`
}

// Review is the looking-back section of the dashboard.
type Review struct {
	TotalCompleted       int                   `json:"total_completed"`
	TotalCost            int                   `json:"total_cost"`
	CategoryAchievements []CategoryAchievement `json:"category_achievements"`
	BucketCompletions    []BucketCompletion    `json:"bucket_completions"`
	Items                []CompletedItem       `json:"items"`
}

// Report bundles both dashboard views.
type Report struct {
	Summary Summary `json:"summary"`
	Review  Review  `json:"review"`
}

// =============================================================================
// Aggregation
// =============================================================================

// BuildReport computes every dashboard section for one user's buckets and items.
// Buckets are reported in the order given. Items whose bucket is absent from
// buckets still count toward totals and category figures.
func BuildReport(buckets []*domain.TimeBucket, items []*domain.BucketItem) *Report {
	return &Report{
		Summary: BuildSummary(buckets, items),
		Review:  BuildReview(buckets, items),
	}
}

// BuildSummary computes the overview section.
func BuildSummary(buckets []*domain.TimeBucket, items []*domain.BucketItem) Summary {
	return Summary{
		BucketDensity:        BucketDensities(buckets, items),
		CategoryDistribution: CategoryDistribution(items),
		CompletionStats:      Completion(items),
		TotalItems:           len(items),
		TotalBuckets:         len(buckets),
	}
}

// BuildReview computes the looking-back section.
func BuildReview(buckets []*domain.TimeBucket, items []*domain.BucketItem) Review {
	completed := CompletedItems(buckets, items)
	totalCost := 0
	for _, item := range items {
		if item.IsDone() {
			totalCost += item.Cost()
		}
	}

	return Review{
		TotalCompleted:       len(completed),
		TotalCost:            totalCost,
		CategoryAchievements: CategoryAchievements(items),
		BucketCompletions:    BucketCompletions(buckets, items),
		Items:                completed,
	}
}

// BucketDensities counts items and sums cost estimates per bucket.
func BucketDensities(buckets []*domain.TimeBucket, items []*domain.BucketItem) []BucketDensity {
	byBucket := groupByBucket(items)
	out := make([]BucketDensity, 0, len(buckets))
	for _, b := range buckets {
		d := BucketDensity{
			BucketID: b.ID,
			Label:    b.Label,
			StartAge: b.StartAge,
			EndAge:   b.EndAge,
		}
		for _, item := range byBucket[b.ID] {
			d.ItemCount++
			d.TotalCost += item.Cost()
		}
		out = append(out, d)
	}
	return out
}

// CategoryDistribution reports every category, including empty ones.
func CategoryDistribution(items []*domain.BucketItem) []CategoryShare {
	counts := make(map[domain.Category]int, len(domain.Categories))
	for _, item := range items {
		counts[item.Category]++
	}

	out := make([]CategoryShare, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, CategoryShare{
			Category:   c,
			Count:      counts[c],
			Percentage: Percent(counts[c], len(items)),
		})
	}
	return out
}

// Completion counts items per status.
func Completion(items []*domain.BucketItem) CompletionStats {
	stats := CompletionStats{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case domain.StatusDone:
			stats.Completed++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusPlanned:
			stats.Planned++
		}
	}
	stats.CompletionRate = Percent(stats.Completed, stats.Total)
	return stats
}

// CategoryAchievements compares done items to all items per category.
func CategoryAchievements(items []*domain.BucketItem) []CategoryAchievement {
	totals := make(map[domain.Category]int, len(domain.Categories))
	done := make(map[domain.Category]int, len(domain.Categories))
	for _, item := range items {
		totals[item.Category]++
		if item.IsDone() {
			done[item.Category]++
		}
	}

	out := make([]CategoryAchievement, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, CategoryAchievement{
			Category:        c,
			Total:           totals[c],
			Completed:       done[c],
			AchievementRate: Percent(done[c], totals[c]),
		})
	}
	return out
}

// BucketCompletions rolls completion up per bucket.
func BucketCompletions(buckets []*domain.TimeBucket, items []*domain.BucketItem) []BucketCompletion {
	byBucket := groupByBucket(items)
	out := make([]BucketCompletion, 0, len(buckets))
	for _, b := range buckets {
		c := BucketCompletion{
			BucketID: b.ID,
			Label:    b.Label,
			StartAge: b.StartAge,
			EndAge:   b.EndAge,
		}
		for _, item := range byBucket[b.ID] {
			c.TotalCount++
			if item.IsDone() {
				c.CompletedCount++
				c.CumulativeCost += item.Cost()
			}
		}
		c.CompletionRate = Percent(c.CompletedCount, c.TotalCount)
		out = append(out, c)
	}
	return out
}

// CompletedItems lists done items in input order with their bucket's label and age range.
func CompletedItems(buckets []*domain.TimeBucket, items []*domain.BucketItem) []CompletedItem {
	index := indexBuckets(buckets)
	out := make([]CompletedItem, 0)
	for _, item := range items {
		if !item.IsDone() {
			continue
		}
		ci := CompletedItem{
			ID:           item.ID,
			Title:        item.Title,
			Category:     item.Category,
			CostEstimate: item.CostEstimate,
			TargetYear:   item.TargetYear,
		}
		if b, ok := index[item.TimeBucketID]; ok {
			ci.BucketLabel = b.Label
			ci.BucketAgeRange = b.AgeRange()
		}
		out = append(out, ci)
	}
	return out
}

// Percent returns part/total*100 rounded to two decimals, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func groupByBucket(items []*domain.BucketItem) map[uuid.UUID][]*domain.BucketItem {
	out := make(map[uuid.UUID][]*domain.BucketItem)
	for _, item := range items {
		out[item.TimeBucketID] = append(out[item.TimeBucketID], item)
	}
	return out
}

func indexBuckets(buckets []*domain.TimeBucket) map[uuid.UUID]*domain.TimeBucket {
	out := make(map[uuid.UUID]*domain.TimeBucket, len(buckets))
	for _, b := range buckets {
		out[b.ID] = b
	}
	return out
}
